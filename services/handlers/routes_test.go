package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/pkg/ratelimit"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
)

type fakeVerifier struct{}

func (fakeVerifier) ExtractTokenFromHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func (fakeVerifier) VerifyJWTToken(token string) (*dto.AuthUser, error) {
	switch token {
	case "alice":
		return &dto.AuthUser{ID: "user-alice", Email: "alice@example.com"}, nil
	case "admin":
		return &dto.AuthUser{ID: "user-admin", Email: "admin@example.com"}, nil
	}
	return nil, errors.New("invalid token")
}

type fakeRoles struct{}

func (fakeRoles) HasRole(userID, role string) (bool, error) {
	return userID == "user-admin" && role == shared.RoleAdmin, nil
}

type fakeSubmission struct{}

func (fakeSubmission) Validate(req dto.SubmissionRequest) (dto.SubmissionRequest, error) {
	normalized, fieldErrors := dto.ValidateSubmission(req)
	if len(fieldErrors) > 0 {
		return normalized, shared.NewValidationError(fieldErrors)
	}
	return normalized, nil
}

func (fakeSubmission) Suggest(_ context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error) {
	return &dto.DraftResult{Message: "Records held by " + answers.AgencyName, Tips: []string{}}, nil
}

func (fakeSubmission) StartCheckout(_ context.Context, _ *dto.AuthUser, _ dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	return &dto.CheckoutResponse{ClientSecret: "cs_secret", SessionID: "cs_test"}, nil
}

func (fakeSubmission) ConfirmCheckout(_ context.Context, _ *dto.AuthUser, sessionID string) (*dto.FoiaRequestResponse, error) {
	return &dto.FoiaRequestResponse{ID: "req-" + sessionID, Status: "pending"}, nil
}

type fakeFoia struct{}

func (fakeFoia) ListRequests(userID string) (*dto.FoiaRequestListResponse, error) {
	return &dto.FoiaRequestListResponse{
		Requests: []dto.FoiaRequestResponse{{ID: "req-1", Status: "pending"}},
		Total:    1,
	}, nil
}

func (fakeFoia) GetRequest(userID, id string) (*dto.FoiaRequestResponse, error) {
	return nil, shared.NewNotFoundError(nil, "Request not found")
}

func (fakeFoia) UpdateStatus(_ context.Context, _, id, status string) (*dto.FoiaRequestResponse, error) {
	return &dto.FoiaRequestResponse{ID: id, Status: status}, nil
}

type fakeProfile struct{}

func (fakeProfile) GetProfile(user *dto.AuthUser) (*dto.ProfileResponse, error) {
	return &dto.ProfileResponse{UserID: user.ID, Email: user.Email, EmailNotifications: true}, nil
}

func (fakeProfile) UpdateProfile(user *dto.AuthUser, _ dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	return &dto.ProfileResponse{UserID: user.ID}, nil
}

func (fakeProfile) RecentActivity(_ *dto.AuthUser, limit int) (*dto.ActivityListResponse, error) {
	return &dto.ActivityListResponse{Activity: []dto.ActivityResponse{}, Total: limit}, nil
}

type fakeDocument struct{}

func (fakeDocument) Analyze(_ context.Context, userID string, _ dto.AnalyzeDocumentRequest) (interface{}, error) {
	return &dto.SummaryResponse{Summary: "summary for " + userID, Cached: true}, nil
}

type fakeChat struct{}

func (fakeChat) Stream(_ context.Context, _ []dto.ChatMessage) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n")), nil
}

type fakeBilling struct {
	keyErr error
}

func (f fakeBilling) PublishableKey() (string, error) {
	if f.keyErr != nil {
		return "", f.keyErr
	}
	return "pk_test_123", nil
}

func (fakeBilling) CheckSubscription(_ context.Context, email string) (*dto.SubscriptionStatus, error) {
	return &dto.SubscriptionStatus{Subscribed: email == "alice@example.com"}, nil
}

type fakeDrafting struct{}

func (fakeDrafting) Draft(_ context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error) {
	return &dto.DraftResult{Message: "Records about " + answers.RecordsDescription}, nil
}

type fakeNotification struct{}

func (fakeNotification) StatusChanged(_ context.Context, _, _, _ string) (*dto.NotifyStatusChangeResponse, error) {
	return &dto.NotifyStatusChangeResponse{Success: true}, nil
}

type fakeTwilio struct{}

func (fakeTwilio) FetchMessage(_ context.Context, sid string) (*dto.MessageStatusResponse, error) {
	return &dto.MessageStatusResponse{Sid: sid, Status: "delivered", To: "***-***-4567"}, nil
}

func newTestApp(billing fakeBilling) *fiber.App {
	app := NewApp("ezfoia-test")
	chatLimiter := ratelimit.New(ratelimit.Config{Name: "foia-chat", Max: 2, Window: time.Minute}, ratelimit.NewMemoryStore())
	subLimiter := ratelimit.New(ratelimit.Config{Name: "check-subscription", Max: 30, Window: time.Minute}, ratelimit.NewMemoryStore())

	Register(app, Routes{
		Functions: NewFunctionsHandler(fakeDocument{}, billing, fakeChat{}, fakeDrafting{}, fakeNotification{}, fakeTwilio{}),
		Requests:  NewRequestHandler(fakeSubmission{}, fakeFoia{}),
		Profile:   NewProfileHandler(fakeProfile{}),

		RequireAuth:       middleware.RequiredAuth(fakeVerifier{}),
		RequireAdmin:      middleware.RequireRole(fakeRoles{}, shared.RoleAdmin),
		ChatLimit:         middleware.RateLimit(chatLimiter, nil),
		SubscriptionLimit: middleware.RateLimit(subLimiter, nil),
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, raw
}

func TestPreflight(t *testing.T) {
	app := newTestApp(fakeBilling{})

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/foia-chat", nil)
	req.Header.Set("Origin", "https://app.ezfoia.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected any origin, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(got, "x-client-info") || !strings.Contains(got, "apikey") {
		t.Errorf("unexpected allowed headers %q", got)
	}

	bare, _ := doRequest(t, app, http.MethodOptions, "/functions/v1/generate-foia", "", "")
	if bare.StatusCode != http.StatusNoContent || bare.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight without Origin should still succeed, got %d", bare.StatusCode)
	}
}

func TestChatRateLimit(t *testing.T) {
	app := newTestApp(fakeBilling{})
	body := `{"messages":[{"role":"user","content":"What is FOIA?"}]}`

	for i := 0; i < 2; i++ {
		resp, raw := doRequest(t, app, http.MethodPost, "/functions/v1/foia-chat", "", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d %s", i+1, resp.StatusCode, raw)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("expected event stream, got %q", ct)
		}
		if !strings.Contains(string(raw), "[DONE]") {
			t.Errorf("stream body not relayed: %q", raw)
		}
	}

	resp, raw := doRequest(t, app, http.MethodPost, "/functions/v1/foia-chat", "", body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
	var errBody shared.ErrorResponse
	if err := sonic.Unmarshal(raw, &errBody); err != nil || errBody.Error == "" {
		t.Errorf("expected error envelope, got %s", raw)
	}
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(fakeBilling{})

	tests := []struct {
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{http.MethodPost, "/functions/v1/analyze-document", "", `{"documentId":"doc-1","action":"summarize"}`, http.StatusUnauthorized},
		{http.MethodPost, "/functions/v1/analyze-document", "forged", `{"documentId":"doc-1","action":"summarize"}`, http.StatusUnauthorized},
		{http.MethodPost, "/functions/v1/analyze-document", "alice", `{"documentId":"doc-1","action":"summarize"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/requests", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/profile", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/profile/activity", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/profile/activity?limit=5", "alice", "", http.StatusOK},
		{http.MethodPost, "/functions/v1/twilio-message-status", "alice", `{"messageSid":"SM0123456789abcdef0123456789abcdef"}`, http.StatusForbidden},
		{http.MethodPost, "/functions/v1/twilio-message-status", "admin", `{"messageSid":"SM0123456789abcdef0123456789abcdef"}`, http.StatusOK},
		{http.MethodPost, "/functions/v1/twilio-message-status", "admin", `{"messageSid":"not-a-sid"}`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/admin/requests/req-1/status", "alice", `{"status":"completed"}`, http.StatusForbidden},
		{http.MethodPut, "/api/v1/admin/requests/req-1/status", "admin", `{"status":"completed"}`, http.StatusOK},
		{http.MethodPost, "/functions/v1/notify-status-change", "alice", `{"requestId":"req-1","newStatus":"completed"}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		resp, raw := doRequest(t, app, tt.method, tt.path, tt.token, tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s %s as %q: expected %d, got %d %s", tt.method, tt.path, tt.token, tt.status, resp.StatusCode, raw)
		}
	}
}

func TestValidateSubmissionErrors(t *testing.T) {
	app := newTestApp(fakeBilling{})

	resp, raw := doRequest(t, app, http.MethodPost, "/api/v1/requests/validate", "",
		`{"agencyName":"F","agencyType":"federal","recordType":"emails","recordDescription":"too short"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body struct {
		Error  string                `json:"error"`
		Errors []dto.ValidationError `json:"errors"`
	}
	if err := sonic.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}
	fields := map[string]bool{}
	for _, e := range body.Errors {
		fields[e.Field] = true
	}
	if !fields["agencyName"] || !fields["recordDescription"] {
		t.Errorf("expected agencyName and recordDescription errors, got %+v", body.Errors)
	}
}

func TestEnvelopes(t *testing.T) {
	app := newTestApp(fakeBilling{})

	resp, raw := doRequest(t, app, http.MethodGet, "/api/v1/requests", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list struct {
		Code int                         `json:"code"`
		Data dto.FoiaRequestListResponse `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &list); err != nil {
		t.Fatal(err)
	}
	if list.Code != 200 || list.Data.Total != 1 {
		t.Errorf("unexpected list envelope %s", raw)
	}

	resp, raw = doRequest(t, app, http.MethodGet, "/functions/v1/get-stripe-config", "", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(raw)) != `{"publishableKey":"pk_test_123"}` {
		t.Errorf("functions bodies are written bare, got %d %s", resp.StatusCode, raw)
	}

	resp, raw = doRequest(t, app, http.MethodPost, "/api/v1/requests/suggest", "",
		`{"agencyName":"City of Springfield","jurisdictionType":"local","recordsDescription":"Council minutes"}`)
	var suggestion struct {
		Data dto.DraftResult `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &suggestion); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || suggestion.Data.Message != "Records held by City of Springfield" {
		t.Errorf("unexpected suggestion %d %s", resp.StatusCode, raw)
	}

	resp, raw = doRequest(t, app, http.MethodGet, "/api/v1/requests/req-9", "alice", "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(raw), "Request not found") {
		t.Errorf("expected 404 error body, got %d %s", resp.StatusCode, raw)
	}
}

func TestServerErrorsHideCause(t *testing.T) {
	app := newTestApp(fakeBilling{keyErr: shared.NewInternalError(errors.New("STRIPE_PUBLISHABLE_KEY missing"), "Service temporarily unavailable")})

	resp, raw := doRequest(t, app, http.MethodPost, "/functions/v1/get-stripe-config", "", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(string(raw), "STRIPE") {
		t.Errorf("cause leaked to client: %s", raw)
	}
	if !strings.Contains(string(raw), "Service temporarily unavailable") {
		t.Errorf("expected generic message, got %s", raw)
	}

	resp, _ = doRequest(t, app, http.MethodPost, "/functions/v1/generate-foia", "", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body should be 400, got %d", resp.StatusCode)
	}
}

func TestCheckSubscriptionUsesTokenEmail(t *testing.T) {
	app := newTestApp(fakeBilling{})

	resp, raw := doRequest(t, app, http.MethodPost, "/functions/v1/check-subscription", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", resp.StatusCode, raw)
	}
	var status dto.SubscriptionStatus
	if err := sonic.Unmarshal(raw, &status); err != nil {
		t.Fatal(err)
	}
	if !status.Subscribed {
		t.Error("subscription should be looked up by the token email")
	}
}
