package dto

import (
	"encoding/json"
	"strings"
	"time"
)

// ==================== SUBMISSION DTOs ====================

type SubmissionRequest struct {
	AgencyName        string `json:"agencyName" validate:"required,min=2,max=200" example:"Federal Bureau of Investigation"`
	AgencyType        string `json:"agencyType" validate:"required" example:"federal"`
	RecordType        string `json:"recordType" validate:"required" example:"emails"`
	RecordDescription string `json:"recordDescription" validate:"required,min=20,max=2000" example:"All emails between the field office and the city council regarding the 2024 permit."`
}

// Normalize trims every field so length rules apply to the visible text.
func (r SubmissionRequest) Normalize() SubmissionRequest {
	return SubmissionRequest{
		AgencyName:        strings.TrimSpace(r.AgencyName),
		AgencyType:        strings.TrimSpace(r.AgencyType),
		RecordType:        strings.TrimSpace(r.RecordType),
		RecordDescription: strings.TrimSpace(r.RecordDescription),
	}
}

func (r SubmissionRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ValidateSubmission normalizes raw input and returns either the normalized
// request or its field-level errors.
func ValidateSubmission(raw SubmissionRequest) (SubmissionRequest, []ValidationError) {
	normalized := raw.Normalize()
	if err := normalized.Validate(); err != nil {
		fieldErrors := FormatValidationErrors(err)
		if len(fieldErrors) == 0 {
			fieldErrors = []ValidationError{{Field: "request", Message: err.Error()}}
		}
		return normalized, fieldErrors
	}
	return normalized, nil
}

type ValidateSubmissionResponse struct {
	Valid   bool              `json:"valid"`
	Request SubmissionRequest `json:"request"`
}

type CheckoutRequest struct {
	Submission SubmissionRequest `json:"submission"`
	PlanID     string            `json:"planId" validate:"required" example:"single"`
}

type CheckoutResponse struct {
	ClientSecret string `json:"clientSecret"`
	SessionID    string `json:"sessionId"`
}

type ConfirmCheckoutRequest struct {
	SessionID string `json:"sessionId" validate:"required,notblank"`
}

func (r ConfirmCheckoutRequest) Validate() error {
	return GetValidator().Struct(r)
}

// PendingSubmission is what is parked in the cache between checkout and payment.
type PendingSubmission struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Email     string            `json:"email"`
	PlanID    string            `json:"plan_id"`
	Request   SubmissionRequest `json:"request"`
	CreatedAt time.Time         `json:"created_at"`
}

// ==================== REQUEST / TIMELINE DTOs ====================

type TimelineStep struct {
	ID          string     `json:"id" example:"review"`
	Label       string     `json:"label" example:"Under Review"`
	Description string     `json:"description"`
	Status      string     `json:"status" example:"current"`
	Date        *time.Time `json:"date,omitempty"`
}

type FoiaRequestResponse struct {
	ID          string         `json:"id"`
	AgencyName  string         `json:"agency_name"`
	AgencyType  string         `json:"agency_type"`
	RecordType  string         `json:"record_type"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Timeline    []TimelineStep `json:"timeline"`
}

type FoiaRequestListResponse struct {
	Requests []FoiaRequestResponse `json:"requests"`
	Total    int                   `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof_ci=pending in_progress processing completed rejected denied" example:"in_progress"`
}

func (r UpdateStatusRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== NOTIFICATION DTOs ====================

type NotifyStatusChangeRequest struct {
	RequestID string `json:"requestId" validate:"required,notblank"`
	NewStatus string `json:"newStatus" validate:"required,notblank"`
	OldStatus string `json:"oldStatus"`
}

func (r NotifyStatusChangeRequest) Validate() error {
	return GetValidator().Struct(r)
}

type NotifyStatusChangeResponse struct {
	Success       bool        `json:"success"`
	EmailResponse interface{} `json:"emailResponse"`
}

// ==================== PROFILE DTOs ====================

type ProfileResponse struct {
	UserID             string `json:"user_id"`
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	PhoneDisplay       string `json:"phone_display"`
	EmailNotifications bool   `json:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications"`
}

type UpdateProfileRequest struct {
	FullName           *string `json:"full_name" validate:"omitempty,max=200"`
	Phone              *string `json:"phone" validate:"omitempty,us_phone"`
	EmailNotifications *bool   `json:"email_notifications"`
	SMSNotifications   *bool   `json:"sms_notifications"`
}

func (r UpdateProfileRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ActivityResponse struct {
	ID          string          `json:"id"`
	Action      string          `json:"action" example:"request_submitted"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata" swaggertype:"object"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ActivityListResponse struct {
	Activity []ActivityResponse `json:"activity"`
	Total    int                `json:"total"`
}
