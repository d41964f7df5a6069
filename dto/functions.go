package dto

import "time"

// ==================== analyze-document ====================

const (
	AnalyzeActionSummarize = "summarize"
	AnalyzeActionSearch    = "search"
)

type AnalyzeDocumentRequest struct {
	DocumentID string `json:"documentId" validate:"required,notblank"`
	Action     string `json:"action" validate:"required,oneof=summarize search"`
	Query      string `json:"query" validate:"required_if=Action search,max=1000"`
}

func (r AnalyzeDocumentRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SummaryResponse struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
}

type SearchResponse struct {
	Answer string `json:"answer"`
}

// ==================== check-subscription ====================

type SubscriptionStatus struct {
	Subscribed      bool    `json:"subscribed"`
	ProductID       *string `json:"product_id"`
	PriceID         *string `json:"price_id"`
	SubscriptionEnd *string `json:"subscription_end"`
	PaymentType     *string `json:"payment_type"`
}

// ==================== foia-chat ====================

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,notblank,max=8000"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

func (r ChatRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== get-stripe-config ====================

type StripeConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

// ==================== twilio-message-status ====================

type MessageStatusRequest struct {
	MessageSid string `json:"messageSid" validate:"required,message_sid"`
}

func (r MessageStatusRequest) Validate() error {
	return GetValidator().Struct(r)
}

type MessageStatusResponse struct {
	Sid          string     `json:"sid"`
	Status       string     `json:"status"`
	ErrorCode    *int       `json:"error_code"`
	ErrorMessage *string    `json:"error_message"`
	To           string     `json:"to"`
	From         string     `json:"from"`
	DateCreated  *time.Time `json:"date_created"`
	DateUpdated  *time.Time `json:"date_updated"`
}
