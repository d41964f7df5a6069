package llm

import (
	"errors"
	"strconv"
)

var (
	// ErrNotConfigured is returned before any network call when the gateway key is empty.
	ErrNotConfigured = errors.New("llm: gateway api key not configured")
	// ErrRateLimited maps an upstream HTTP 429.
	ErrRateLimited = errors.New("llm: rate limited by gateway")
	// ErrPaymentRequired maps an upstream HTTP 402 (credits exhausted).
	ErrPaymentRequired = errors.New("llm: gateway credits exhausted")
)

// Message represents a chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the gateway.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Config holds the gateway connection settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// APIError carries a non-2xx gateway reply. The body is for logs only.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "llm: gateway returned status " + strconv.Itoa(e.StatusCode)
}
