package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const SUBMISSION_SVC = "submission_svc"

const (
	draftKeyPrefix = "checkout:draft:"
	draftTTL       = 24 * time.Hour
)

// CheckoutGateway is the payment side of a submission.
type CheckoutGateway interface {
	Plan(id string) (Plan, bool)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// DraftStore parks a validated submission until its checkout is paid.
// LoadDraft returns nil, nil for a missing or expired draft.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft *dto.PendingSubmission, ttl time.Duration) error
	LoadDraft(ctx context.Context, id string) (*dto.PendingSubmission, error)
	DeleteDraft(ctx context.Context, id string) error
}

type SubmissionStore interface {
	CreateRequest(req *model.FoiaRequest) (*model.FoiaRequest, error)
	GetRequestByStripeSession(sessionID string) (*model.FoiaRequest, error)
}

type Drafter interface {
	Draft(ctx context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error)
}

// SubmissionService runs validate, suggest, checkout and confirm in order.
// Nothing is written to the requests table until payment is confirmed.
type SubmissionService struct {
	appContext.DefaultService

	requests SubmissionStore
	activity ActivityRecorder
	drafts   DraftStore
	checkout CheckoutGateway
	drafter  Drafter
	now      func() time.Time

	pgSvc *PostgresService
}

func NewSubmissionService(requests SubmissionStore, activity ActivityRecorder, drafts DraftStore, checkout CheckoutGateway, drafter Drafter) *SubmissionService {
	return &SubmissionService{
		requests: requests,
		activity: activity,
		drafts:   drafts,
		checkout: checkout,
		drafter:  drafter,
		now:      time.Now,
	}
}

func (svc SubmissionService) Id() string {
	return SUBMISSION_SVC
}

func (svc *SubmissionService) Configure(ctx *appContext.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.drafts = &redisDraftStore{redis: ctx.Service(REDIS_SVC).(*RedisService)}
	svc.checkout = ctx.Service(BILLING_SVC).(*BillingService)
	svc.drafter = ctx.Service(DRAFTING_SVC).(*DraftingService)
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

// Start binds the repositories, which exist only once the database is up.
func (svc *SubmissionService) Start() error {
	svc.requests = svc.pgSvc.Requests()
	svc.activity = svc.pgSvc.Profiles()
	return nil
}

// Validate normalizes req. A non-nil error carries the field errors.
func (svc *SubmissionService) Validate(req dto.SubmissionRequest) (dto.SubmissionRequest, error) {
	normalized, fieldErrors := dto.ValidateSubmission(req)
	if len(fieldErrors) > 0 {
		return normalized, shared.NewValidationError(fieldErrors)
	}
	return normalized, nil
}

// Suggest returns an AI draft for the wizard answers. A failure here is for
// the caller to show; it does not affect checkout.
func (svc *SubmissionService) Suggest(ctx context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error) {
	return svc.drafter.Draft(ctx, answers)
}

// StartCheckout parks the normalized submission and opens an embedded
// checkout session for it.
func (svc *SubmissionService) StartCheckout(ctx context.Context, user *dto.AuthUser, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if user == nil || user.ID == "" {
		return nil, shared.NewUnauthorizedError(nil, "Authentication required")
	}

	plan, ok := svc.checkout.Plan(req.PlanID)
	if !ok {
		return nil, shared.NewValidationError([]dto.ValidationError{{Field: "planId", Message: "Unknown plan"}})
	}

	submission, err := svc.Validate(req.Submission)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to start checkout")
	}
	draft := &dto.PendingSubmission{
		ID:        id.String(),
		UserID:    user.ID,
		Email:     user.Email,
		PlanID:    plan.ID,
		Request:   submission,
		CreatedAt: svc.now().UTC(),
	}
	if err := svc.drafts.SaveDraft(ctx, draft, draftTTL); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Failed to store checkout draft")
		return nil, shared.NewInternalError(err, "Failed to start checkout")
	}

	session, err := svc.checkout.CreateCheckoutSession(ctx, CheckoutParams{
		Plan:          plan,
		CustomerEmail: user.Email,
		UserID:        user.ID,
		DraftID:       draft.ID,
	})
	if err != nil {
		if delErr := svc.drafts.DeleteDraft(ctx, draft.ID); delErr != nil {
			log.WithError(delErr).WithField("draft_id", draft.ID).Warn("Failed to discard checkout draft")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":    user.ID,
		"draft_id":   draft.ID,
		"session_id": session.ID,
		"plan_id":    plan.ID,
	}).Info("Checkout started")

	return &dto.CheckoutResponse{
		ClientSecret: session.ClientSecret,
		SessionID:    session.ID,
	}, nil
}

// ConfirmCheckout turns a paid session into a pending request. Confirming the
// same session again returns the request created the first time.
func (svc *SubmissionService) ConfirmCheckout(ctx context.Context, user *dto.AuthUser, sessionID string) (*dto.FoiaRequestResponse, error) {
	if user == nil || user.ID == "" {
		return nil, shared.NewUnauthorizedError(nil, "Authentication required")
	}

	existing, err := svc.requests.GetRequestByStripeSession(sessionID)
	if err != nil {
		return nil, handleDBError(err)
	}
	if existing != nil {
		return svc.ownedResponse(existing, user)
	}

	session, err := svc.checkout.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Metadata["user_id"] != user.ID {
		log.WithFields(log.Fields{
			"session_id": sessionID,
			"user_id":    user.ID,
		}).Warn("Checkout confirmation by a different user")
		return nil, shared.NewForbiddenError(nil, "Checkout session belongs to another user")
	}
	if !session.Paid() {
		return nil, shared.NewPaymentRequiredError(nil, "Payment has not been completed")
	}

	draftID := session.Metadata["draft_id"]
	draft, err := svc.drafts.LoadDraft(ctx, draftID)
	if err != nil {
		log.WithFields(log.Fields{
			"session_id": sessionID,
			"draft_id":   draftID,
			"error":      err.Error(),
		}).Error("Paid checkout could not load its draft")
		return nil, shared.NewInternalError(err, "Failed to save FOIA request")
	}
	if draft == nil || draft.UserID != user.ID {
		log.WithFields(log.Fields{
			"session_id": sessionID,
			"draft_id":   draftID,
		}).Error("Paid checkout has no pending submission")
		return nil, shared.NewAppError(http.StatusGone, nil, "Checkout draft has expired, please contact support")
	}

	now := svc.now().UTC()
	sid := sessionID
	created, err := svc.requests.CreateRequest(&model.FoiaRequest{
		UserID:          user.ID,
		AgencyName:      draft.Request.AgencyName,
		AgencyType:      draft.Request.AgencyType,
		RecordType:      draft.Request.RecordType,
		Description:     draft.Request.RecordDescription,
		Status:          model.StatusPending.String(),
		StripeSessionID: &sid,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if winner, getErr := svc.requests.GetRequestByStripeSession(sessionID); getErr == nil && winner != nil {
				return svc.ownedResponse(winner, user)
			}
		}
		log.WithFields(log.Fields{
			"session_id": sessionID,
			"user_id":    user.ID,
			"draft_id":   draftID,
			"error":      err.Error(),
		}).Error("Paid checkout could not be saved, reconcile manually")
		return nil, shared.NewInternalError(err, "Failed to save FOIA request")
	}

	recordActivity(svc.activity, user.ID, shared.ActivityRequestSubmitted,
		"Submitted FOIA request to "+created.AgencyName,
		map[string]interface{}{
			"request_id": created.ID,
			"session_id": sessionID,
			"plan_id":    draft.PlanID,
		})

	if err := svc.drafts.DeleteDraft(ctx, draftID); err != nil {
		log.WithError(err).WithField("draft_id", draftID).Warn("Failed to delete checkout draft")
	}

	RecordRequestSubmitted()
	log.WithFields(log.Fields{
		"request_id": created.ID,
		"session_id": sessionID,
		"user_id":    user.ID,
	}).Info("FOIA request submitted")

	resp := ToFoiaRequestResponse(created)
	return &resp, nil
}

func (svc *SubmissionService) ownedResponse(req *model.FoiaRequest, user *dto.AuthUser) (*dto.FoiaRequestResponse, error) {
	if req.UserID != user.ID {
		return nil, shared.NewForbiddenError(nil, "Checkout session belongs to another user")
	}
	resp := ToFoiaRequestResponse(req)
	return &resp, nil
}

type redisDraftStore struct {
	redis *RedisService
}

func (s *redisDraftStore) SaveDraft(ctx context.Context, draft *dto.PendingSubmission, ttl time.Duration) error {
	return s.redis.Set(ctx, draftKeyPrefix+draft.ID, draft, ttl)
}

func (s *redisDraftStore) LoadDraft(ctx context.Context, id string) (*dto.PendingSubmission, error) {
	if id == "" {
		return nil, nil
	}
	var draft dto.PendingSubmission
	found, err := s.redis.GetJSON(ctx, draftKeyPrefix+id, &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

func (s *redisDraftStore) DeleteDraft(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.redis.Delete(ctx, draftKeyPrefix+id)
}
