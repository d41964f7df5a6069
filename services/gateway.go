package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/ezfoia/foia_api/pkg/llm"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
)

const defaultAIModel = "google/gemini-2.5-flash"

func newGatewayClient() *llm.Client {
	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = defaultAIModel
	}
	return llm.New(llm.Config{
		BaseURL: os.Getenv("AI_GATEWAY_URL"),
		APIKey:  os.Getenv("AI_GATEWAY_API_KEY"),
		Model:   model,
	})
}

// gatewayError maps a gateway failure onto the user-facing error for it.
// Provider bodies are logged, never returned.
func gatewayError(err error, failureMessage string) error {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Error("AI gateway is not configured")
		return shared.NewInternalError(fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err), "Service temporarily unavailable")
	case errors.Is(err, llm.ErrRateLimited):
		log.WithError(err).Warn("AI gateway rate limited")
		return shared.NewTooManyRequestsError(err, "Rate limits exceeded, please try again later.")
	case errors.Is(err, llm.ErrPaymentRequired):
		log.WithError(err).Warn("AI gateway credits exhausted")
		return shared.NewPaymentRequiredError(err, "AI usage limit reached. Please add credits to continue.")
	}

	fields := log.Fields{"error": err.Error()}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.StatusCode
		fields["body"] = apiErr.Body
	}
	log.WithFields(fields).Error("AI gateway call failed")
	return shared.NewInternalError(err, failureMessage)
}
