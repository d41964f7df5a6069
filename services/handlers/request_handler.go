package handlers

import (
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
)

type RequestHandler struct {
	submissionSvc SubmissionServiceInterface
	foiaSvc       FoiaServiceInterface
}

func NewRequestHandler(submissionSvc SubmissionServiceInterface, foiaSvc FoiaServiceInterface) *RequestHandler {
	return &RequestHandler{
		submissionSvc: submissionSvc,
		foiaSvc:       foiaSvc,
	}
}

// @Summary List my requests
// @Description FOIA requests of the caller, newest first, each with its progress timeline
// @Tags requests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.FoiaRequestListResponse}
// @Router /api/v1/requests [get]
func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	requests, err := h.foiaSvc.ListRequests(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", requests)
}

// @Summary Get request
// @Description One FOIA request of the caller with its progress timeline
// @Tags requests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param id path string true "Request ID"
// @Success 200 {object} shared.Response{data=dto.FoiaRequestResponse}
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /api/v1/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	request, err := h.foiaSvc.GetRequest(userID, c.Params("id"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", request)
}

// @Summary Validate submission
// @Description Trim and check a request before checkout
// @Tags requests
// @Accept json
// @Produce json
// @Param request body dto.SubmissionRequest true "Submission"
// @Success 200 {object} shared.Response{data=dto.ValidateSubmissionResponse}
// @Failure 400 {object} shared.ErrorResponse{errors=[]dto.ValidationError}
// @Router /api/v1/requests/validate [post]
func (h *RequestHandler) ValidateSubmission(c *fiber.Ctx) error {
	var req dto.SubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	normalized, err := h.submissionSvc.Validate(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", dto.ValidateSubmissionResponse{Valid: true, Request: normalized})
}

// @Summary Suggest request text
// @Description AI draft of the request description from the wizard answers
// @Tags requests
// @Accept json
// @Produce json
// @Param request body dto.WizardAnswers true "Wizard answers"
// @Success 200 {object} shared.Response{data=dto.DraftResult}
// @Failure 400 {object} shared.ErrorResponse{errors=[]dto.ValidationError}
// @Failure 402 {object} shared.ErrorResponse
// @Router /api/v1/requests/suggest [post]
func (h *RequestHandler) SuggestDraft(c *fiber.Ctx) error {
	var req dto.WizardAnswers
	if err := bind(c, &req); err != nil {
		return err
	}

	draft, err := h.submissionSvc.Suggest(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", draft)
}

// @Summary Start checkout
// @Description Hold the submission and open an embedded checkout session for the chosen plan
// @Tags requests
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param request body dto.CheckoutRequest true "Submission and plan"
// @Success 201 {object} shared.Response{data=dto.CheckoutResponse}
// @Failure 400 {object} shared.ErrorResponse{errors=[]dto.ValidationError}
// @Router /api/v1/requests/checkout [post]
func (h *RequestHandler) StartCheckout(c *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	resp, err := h.submissionSvc.StartCheckout(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Checkout started", resp)
}

// @Summary Confirm checkout
// @Description Record the FOIA request once its checkout session is paid. Repeated calls return the same request.
// @Tags requests
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param request body dto.ConfirmCheckoutRequest true "Checkout session"
// @Success 200 {object} shared.Response{data=dto.FoiaRequestResponse}
// @Failure 402 {object} shared.ErrorResponse
// @Failure 410 {object} shared.ErrorResponse
// @Router /api/v1/requests/confirm [post]
func (h *RequestHandler) ConfirmCheckout(c *fiber.Ctx) error {
	var req dto.ConfirmCheckoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	request, err := h.submissionSvc.ConfirmCheckout(c.UserContext(), middleware.CurrentUser(c), req.SessionID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Request submitted", request)
}

// @Summary Update request status (Admin)
// @Description Move a request to a new status and notify its owner
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param id path string true "Request ID"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} shared.Response{data=dto.FoiaRequestResponse}
// @Failure 404 {object} shared.ErrorResponse
// @Router /api/v1/admin/requests/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	userID := c.Locals(shared.UserID).(string)
	request, err := h.foiaSvc.UpdateStatus(c.UserContext(), userID, c.Params("id"), req.Status)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Status updated", request)
}
