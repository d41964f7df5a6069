package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/pkg/llm"
	"github.com/ezfoia/foia_api/shared"
)

type fakeCompleter struct {
	configured bool
	reply      string
	err        error
	got        []llm.Message
}

func (f *fakeCompleter) Configured() bool {
	return f.configured
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (*llm.Response, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

func sampleAnswers() dto.WizardAnswers {
	return dto.WizardAnswers{
		AgencyName:         "Springfield Police Department",
		AgencyCity:         "Springfield",
		AgencyState:        "IL",
		JurisdictionType:   "local",
		RecordsDescription: "Use of force reports filed in 2023",
		DateMode:           "range",
		DateFrom:           "2023-01-01",
		DateTo:             "2023-12-31",
		FormatPreference:   "Electronic (PDF)",
	}
}

func TestParseDraftStrict(t *testing.T) {
	raw := `{"message":"I request all use of force reports.","estimatedResponseTime":"5 business days","tips":["a","b","c"]}`
	got, outcome := ParseDraft(raw, "federal")
	if outcome != OutcomeStrict {
		t.Fatalf("expected strict, got %s", outcome)
	}
	if got.Message != "I request all use of force reports." || got.EstimatedResponseTime != "5 business days" || len(got.Tips) != 3 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestParseDraftFenced(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "Here you go:\n```json\n{\"message\":\"Body text\"}\n```\nThanks"},
		{"bare fence", "```\n{\"message\":\"Body text\"}\n```"},
	}

	for _, tt := range tests {
		got, outcome := ParseDraft(tt.raw, "state")
		if outcome != OutcomeFenced {
			t.Errorf("%s: expected fenced, got %s", tt.name, outcome)
			continue
		}
		if got.Message != "Body text" {
			t.Errorf("%s: unexpected message %q", tt.name, got.Message)
		}
		if got.EstimatedResponseTime != "10-20 business days" {
			t.Errorf("%s: missing estimate should default, got %q", tt.name, got.EstimatedResponseTime)
		}
		if len(got.Tips) != 2 {
			t.Errorf("%s: missing tips should default to two, got %v", tt.name, got.Tips)
		}
	}
}

func TestParseDraftPlainTextFallback(t *testing.T) {
	raw := "  I am requesting copies of all contracts signed in 2024.  "

	tests := []struct {
		jurisdiction string
		estimate     string
	}{
		{"federal", "20-30 business days"},
		{"Federal", "20-30 business days"},
		{"state", "10-20 business days"},
		{"local", "10-20 business days"},
		{"", "10-20 business days"},
	}

	for _, tt := range tests {
		got, outcome := ParseDraft(raw, tt.jurisdiction)
		if outcome != OutcomeFallback {
			t.Errorf("%q: expected fallback, got %s", tt.jurisdiction, outcome)
		}
		if got.Message != strings.TrimSpace(raw) {
			t.Errorf("%q: message should be the raw text, got %q", tt.jurisdiction, got.Message)
		}
		if got.EstimatedResponseTime != tt.estimate {
			t.Errorf("%q: expected %q, got %q", tt.jurisdiction, tt.estimate, got.EstimatedResponseTime)
		}
		if len(got.Tips) != 2 {
			t.Errorf("%q: expected two generic tips, got %v", tt.jurisdiction, got.Tips)
		}
	}
}

func TestParseDraftBrokenJSONFallsBack(t *testing.T) {
	for _, raw := range []string{
		`{"message": "unterminated`,
		"```json\n{not json}\n```",
		`{"message": ""}`,
		`{"message": "ok", "tips": "not-a-list"}`,
	} {
		got, outcome := ParseDraft(raw, "federal")
		if outcome != OutcomeFallback {
			t.Errorf("%q: expected fallback, got %s", raw, outcome)
		}
		if got.Message != strings.TrimSpace(raw) {
			t.Errorf("%q: fallback message should be the raw text, got %q", raw, got.Message)
		}
	}
}

func TestDraftPlainTextReply(t *testing.T) {
	gw := &fakeCompleter{configured: true, reply: "Please provide all use of force reports."}
	svc := NewDraftingService(gw)

	got, err := svc.Draft(context.Background(), sampleAnswers())
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "Please provide all use of force reports." {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.EstimatedResponseTime != "10-20 business days" {
		t.Errorf("local jurisdiction should default to 10-20 business days, got %q", got.EstimatedResponseTime)
	}

	if len(gw.got) != 2 || gw.got[0].Role != "system" || gw.got[1].Role != "user" {
		t.Fatalf("expected system and user messages, got %+v", gw.got)
	}
}

func TestDraftNormalizesJurisdiction(t *testing.T) {
	gw := &fakeCompleter{configured: true, reply: "Please provide all records."}
	answers := sampleAnswers()
	answers.JurisdictionType = " Federal "

	got, err := NewDraftingService(gw).Draft(context.Background(), answers)
	if err != nil {
		t.Fatal(err)
	}
	if got.EstimatedResponseTime != DefaultResponseTime("federal") {
		t.Errorf("mixed case federal should use the federal default, got %q", got.EstimatedResponseTime)
	}
	if !strings.Contains(gw.got[1].Content, "- Jurisdiction: federal\n") {
		t.Errorf("prompt should carry the normalized jurisdiction, got %q", gw.got[1].Content)
	}
}

func TestDraftErrors(t *testing.T) {
	tests := []struct {
		name    string
		gw      *fakeCompleter
		status  int
		message string
	}{
		{"not configured", &fakeCompleter{}, http.StatusInternalServerError, "Service temporarily unavailable"},
		{"rate limited", &fakeCompleter{configured: true, err: llm.ErrRateLimited}, http.StatusTooManyRequests, "Rate limits exceeded, please try again later."},
		{"credits", &fakeCompleter{configured: true, err: llm.ErrPaymentRequired}, http.StatusPaymentRequired, "AI usage limit reached. Please add credits to continue."},
		{"other", &fakeCompleter{configured: true, err: &llm.APIError{StatusCode: 500, Body: "secret detail"}}, http.StatusInternalServerError, "Failed to generate FOIA request"},
	}

	for _, tt := range tests {
		_, err := NewDraftingService(tt.gw).Draft(context.Background(), sampleAnswers())
		appErr, ok := shared.GetAppError(err)
		if !ok {
			t.Errorf("%s: expected AppError, got %v", tt.name, err)
			continue
		}
		if appErr.StatusCode != tt.status || appErr.Message != tt.message {
			t.Errorf("%s: got %d %q", tt.name, appErr.StatusCode, appErr.Message)
		}
		if strings.Contains(appErr.Message, "secret") || strings.Contains(appErr.Message, "AI_GATEWAY") {
			t.Errorf("%s: message leaks internals: %q", tt.name, appErr.Message)
		}
	}

	_, err := NewDraftingService(&fakeCompleter{}).Draft(context.Background(), sampleAnswers())
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("missing key should wrap ErrServiceUnavailable, got %v", err)
	}
}

func TestBuildDraftPromptSections(t *testing.T) {
	a := sampleAnswers()
	prompt := BuildDraftPrompt(a)

	for _, want := range []string{
		"AGENCY INFORMATION",
		"Springfield Police Department",
		"RECORDS REQUESTED",
		"TIMEFRAME",
		"From 2023-01-01 to 2023-12-31",
		"FORMAT PREFERENCE",
		"Electronic (PDF)",
		"Do not invent",
		"placeholders",
		"letter",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	for _, absent := range []string{"RELATED IDENTIFIERS", "ADDITIONAL CONTEXT"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("prompt should omit empty section %q", absent)
		}
	}

	a.CaseNumber = "2023-0042"
	a.AdditionalContext = "Related to a news investigation"
	prompt = BuildDraftPrompt(a)
	for _, want := range []string{"RELATED IDENTIFIERS", "2023-0042", "ADDITIONAL CONTEXT"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Index(prompt, "FORMAT PREFERENCE") > strings.Index(prompt, "ADDITIONAL CONTEXT") {
		t.Error("additional context follows format preference")
	}
}

func TestFindPlaceholders(t *testing.T) {
	if hits := FindPlaceholders("I request records about [Your Name] from {agency}."); len(hits) != 2 {
		t.Errorf("expected two placeholders, got %v", hits)
	}
	if hits := FindPlaceholders("I request all emails sent between March 1 and March 3, 2024."); len(hits) != 0 {
		t.Errorf("expected none, got %v", hits)
	}
}
