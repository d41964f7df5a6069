package handlers

import (
	"context"
	"io"

	"github.com/ezfoia/foia_api/dto"
)

type SubmissionServiceInterface interface {
	Validate(req dto.SubmissionRequest) (dto.SubmissionRequest, error)
	Suggest(ctx context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error)
	StartCheckout(ctx context.Context, user *dto.AuthUser, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	ConfirmCheckout(ctx context.Context, user *dto.AuthUser, sessionID string) (*dto.FoiaRequestResponse, error)
}

type DraftingServiceInterface interface {
	Draft(ctx context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error)
}

type FoiaServiceInterface interface {
	ListRequests(userID string) (*dto.FoiaRequestListResponse, error)
	GetRequest(userID, id string) (*dto.FoiaRequestResponse, error)
	UpdateStatus(ctx context.Context, actorID, id, status string) (*dto.FoiaRequestResponse, error)
}

type ProfileServiceInterface interface {
	GetProfile(user *dto.AuthUser) (*dto.ProfileResponse, error)
	UpdateProfile(user *dto.AuthUser, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	RecentActivity(user *dto.AuthUser, limit int) (*dto.ActivityListResponse, error)
}

type DocumentServiceInterface interface {
	Analyze(ctx context.Context, userID string, req dto.AnalyzeDocumentRequest) (interface{}, error)
}

type ChatServiceInterface interface {
	Stream(ctx context.Context, messages []dto.ChatMessage) (io.ReadCloser, error)
}

type BillingServiceInterface interface {
	PublishableKey() (string, error)
	CheckSubscription(ctx context.Context, email string) (*dto.SubscriptionStatus, error)
}

type NotificationServiceInterface interface {
	StatusChanged(ctx context.Context, requestID, newStatus, oldStatus string) (*dto.NotifyStatusChangeResponse, error)
}

type TwilioServiceInterface interface {
	FetchMessage(ctx context.Context, messageSid string) (*dto.MessageStatusResponse, error)
}
