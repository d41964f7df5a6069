package handlers

import (
	"context"
	"io"
	"time"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
)

// chatStreamTimeout bounds one relayed chat completion.
const chatStreamTimeout = 5 * time.Minute

// FunctionsHandler serves the /functions/v1 endpoints the web client calls
// directly. Bodies are written without the {code,message,data} envelope.
type FunctionsHandler struct {
	documentSvc     DocumentServiceInterface
	billingSvc      BillingServiceInterface
	chatSvc         ChatServiceInterface
	draftingSvc     DraftingServiceInterface
	notificationSvc NotificationServiceInterface
	twilioSvc       TwilioServiceInterface
}

func NewFunctionsHandler(
	documentSvc DocumentServiceInterface,
	billingSvc BillingServiceInterface,
	chatSvc ChatServiceInterface,
	draftingSvc DraftingServiceInterface,
	notificationSvc NotificationServiceInterface,
	twilioSvc TwilioServiceInterface,
) *FunctionsHandler {
	return &FunctionsHandler{
		documentSvc:     documentSvc,
		billingSvc:      billingSvc,
		chatSvc:         chatSvc,
		draftingSvc:     draftingSvc,
		notificationSvc: notificationSvc,
		twilioSvc:       twilioSvc,
	}
}

// @Summary Analyze document
// @Description Summarize a released document or answer a question about it
// @Tags functions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param request body dto.AnalyzeDocumentRequest true "Document and action"
// @Success 200 {object} dto.SummaryResponse
// @Success 200 {object} dto.SearchResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /functions/v1/analyze-document [post]
func (h *FunctionsHandler) AnalyzeDocument(c *fiber.Ctx) error {
	var req dto.AnalyzeDocumentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.documentSvc.Analyze(c.UserContext(), c.Locals(shared.UserID).(string), req)
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, result)
}

// @Summary Check subscription
// @Description Report whether the caller has an active subscription or a completed one-time payment
// @Tags functions
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} dto.SubscriptionStatus
// @Failure 429 {object} shared.ErrorResponse
// @Router /functions/v1/check-subscription [post]
func (h *FunctionsHandler) CheckSubscription(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil || user.Email == "" {
		return shared.NewUnauthorizedError(nil, "User not authenticated or email not available")
	}

	status, err := h.billingSvc.CheckSubscription(c.UserContext(), user.Email)
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, status)
}

// @Summary FOIA assistant chat
// @Description Relay a conversation to the assistant and stream the reply as server-sent events
// @Tags functions
// @Accept json
// @Produce text/event-stream
// @Param request body dto.ChatRequest true "Conversation so far"
// @Success 200 {string} string "event stream"
// @Failure 429 {object} shared.ErrorResponse
// @Router /functions/v1/foia-chat [post]
func (h *FunctionsHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	// The body is written after this handler returns, so the stream gets its
	// own context which is released when fiber closes the reader.
	ctx, cancel := context.WithTimeout(context.Background(), chatStreamTimeout)
	body, err := h.chatSvc.Stream(ctx, req.Messages)
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	return c.Status(fiber.StatusOK).SendStream(&cancelOnClose{ReadCloser: body, cancel: cancel})
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}

// @Summary Generate FOIA request
// @Description Draft request text from the wizard answers
// @Tags functions
// @Accept json
// @Produce json
// @Param request body dto.WizardAnswers true "Wizard answers"
// @Success 200 {object} dto.DraftResult
// @Failure 402 {object} shared.ErrorResponse
// @Router /functions/v1/generate-foia [post]
func (h *FunctionsHandler) GenerateFoia(c *fiber.Ctx) error {
	var req dto.WizardAnswers
	if err := bind(c, &req); err != nil {
		return err
	}

	draft, err := h.draftingSvc.Draft(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, draft)
}

// @Summary Stripe config
// @Description Publishable Stripe key for the embedded checkout
// @Tags functions
// @Produce json
// @Success 200 {object} dto.StripeConfigResponse
// @Router /functions/v1/get-stripe-config [get]
func (h *FunctionsHandler) StripeConfig(c *fiber.Ctx) error {
	key, err := h.billingSvc.PublishableKey()
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, dto.StripeConfigResponse{PublishableKey: key})
}

// @Summary Notify status change
// @Description Email (and text, when enabled) the owner of a request about a status change
// @Tags functions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param request body dto.NotifyStatusChangeRequest true "Status change"
// @Success 200 {object} dto.NotifyStatusChangeResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /functions/v1/notify-status-change [post]
func (h *FunctionsHandler) NotifyStatusChange(c *fiber.Ctx) error {
	var req dto.NotifyStatusChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	resp, err := h.notificationSvc.StatusChanged(c.UserContext(), req.RequestID, req.NewStatus, req.OldStatus)
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, resp)
}

// @Summary Twilio message status
// @Description Delivery status of a sent text message. Phone numbers are masked.
// @Tags functions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param request body dto.MessageStatusRequest true "Message SID"
// @Success 200 {object} dto.MessageStatusResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /functions/v1/twilio-message-status [post]
func (h *FunctionsHandler) TwilioMessageStatus(c *fiber.Ctx) error {
	var req dto.MessageStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	status, err := h.twilioSvc.FetchMessage(c.UserContext(), req.MessageSid)
	if err != nil {
		return err
	}

	return shared.WriteJSON(c, fiber.StatusOK, status)
}
