package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/pkg/llm"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
)

const DRAFTING_SVC = "drafting_svc"

const draftSystemPrompt = "You are an expert at writing Freedom of Information Act requests. " +
	"You write clear, specific and legally sound request text using only the facts you are given."

const (
	federalResponseTime = "20-30 business days"
	defaultResponseTime = "10-20 business days"
)

var defaultDraftTips = []string{
	"Keep a copy of your request and note the date you submitted it.",
	"If you have not heard back within the estimated time, follow up with the agency's FOIA officer.",
}

// ParseOutcome records which path ParseDraft took.
type ParseOutcome string

const (
	OutcomeStrict   ParseOutcome = "strict"
	OutcomeFenced   ParseOutcome = "fenced"
	OutcomeFallback ParseOutcome = "fallback"
)

var (
	jsonFencePattern  = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	plainFencePattern = regexp.MustCompile("(?s)```\\s*(.*?)```")

	placeholderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\[[^\[\]\n]{1,80}\]`),
		regexp.MustCompile(`\{\{?[^{}\n]{1,80}\}?\}`),
		regexp.MustCompile(`<[A-Za-z][^<>\n]{0,80}>`),
	}
)

// Completer is the part of the gateway client drafting needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error)
}

type DraftingService struct {
	appContext.DefaultService

	gateway Completer
}

func NewDraftingService(gateway Completer) *DraftingService {
	return &DraftingService{gateway: gateway}
}

func (svc DraftingService) Id() string {
	return DRAFTING_SVC
}

func (svc *DraftingService) Configure(ctx *appContext.Context) error {
	svc.gateway = newGatewayClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *DraftingService) Start() error {
	if !svc.gateway.Configured() {
		log.Warn("AI gateway key not set, drafting will report service unavailable")
	}
	return nil
}

// Draft asks the gateway for request text. Nothing is persisted and failed
// calls are not retried.
func (svc *DraftingService) Draft(ctx context.Context, answers dto.WizardAnswers) (*dto.DraftResult, error) {
	if svc.gateway == nil || !svc.gateway.Configured() {
		return nil, gatewayError(llm.ErrNotConfigured, "Failed to generate FOIA request")
	}
	answers.JurisdictionType = strings.ToLower(strings.TrimSpace(answers.JurisdictionType))

	resp, err := svc.gateway.Complete(ctx, []llm.Message{
		{Role: "system", Content: draftSystemPrompt},
		{Role: "user", Content: BuildDraftPrompt(answers)},
	})
	if err != nil {
		return nil, gatewayError(err, "Failed to generate FOIA request")
	}

	result, outcome := ParseDraft(resp.Content, answers.JurisdictionType)
	RecordDraftOutcome(string(outcome))

	if hits := FindPlaceholders(result.Message); len(hits) > 0 {
		RecordDraftPlaceholders()
		log.WithFields(log.Fields{
			"placeholders": hits,
			"outcome":      outcome,
		}).Warn("AI draft contains placeholder patterns")
	}

	return &result, nil
}

// BuildDraftPrompt renders the wizard answers as a sectioned brief followed by
// the output rules.
func BuildDraftPrompt(a dto.WizardAnswers) string {
	var b strings.Builder

	b.WriteString("Write the body of a FOIA request using only the information below.\n\n")

	b.WriteString("AGENCY INFORMATION\n")
	fmt.Fprintf(&b, "- Agency: %s\n", strings.TrimSpace(a.AgencyName))
	if city := strings.TrimSpace(a.AgencyCity); city != "" {
		fmt.Fprintf(&b, "- City: %s\n", city)
	}
	if state := strings.TrimSpace(a.AgencyState); state != "" {
		fmt.Fprintf(&b, "- State: %s\n", state)
	}
	fmt.Fprintf(&b, "- Jurisdiction: %s\n\n", a.JurisdictionType)

	b.WriteString("RECORDS REQUESTED\n")
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(a.RecordsDescription))

	b.WriteString("TIMEFRAME\n")
	switch a.DateMode {
	case "exact":
		fmt.Fprintf(&b, "- Specific date: %s\n\n", a.ExactDate)
	case "range":
		fmt.Fprintf(&b, "- From %s to %s\n\n", a.DateFrom, a.DateTo)
	default:
		b.WriteString("- No specific timeframe\n\n")
	}

	if a.HasRelatedIdentifiers() {
		b.WriteString("RELATED IDENTIFIERS\n")
		if a.RelatedNames != "" {
			fmt.Fprintf(&b, "- Names: %s\n", a.RelatedNames)
		}
		if a.CaseNumber != "" {
			fmt.Fprintf(&b, "- Case or incident number: %s\n", a.CaseNumber)
		}
		if a.Address != "" {
			fmt.Fprintf(&b, "- Address or location: %s\n", a.Address)
		}
		b.WriteString("\n")
	}

	b.WriteString("FORMAT PREFERENCE\n")
	if f := strings.TrimSpace(a.FormatPreference); f != "" {
		fmt.Fprintf(&b, "- %s\n\n", f)
	} else {
		b.WriteString("- No preference\n\n")
	}

	if extra := strings.TrimSpace(a.AdditionalContext); extra != "" {
		b.WriteString("ADDITIONAL CONTEXT\n")
		fmt.Fprintf(&b, "%s\n\n", extra)
	}

	b.WriteString("RULES\n")
	b.WriteString("- Do not invent names, dates, case numbers, addresses or any other facts not listed above.\n")
	b.WriteString("- Do not use placeholders such as [Your Name], [Date] or {agency}.\n")
	b.WriteString("- Do not format the text as a letter: no salutation, signature, date line or addresses.\n")
	b.WriteString("- Describe the records precisely enough for the agency to locate them.\n\n")

	b.WriteString("Reply with only a JSON object of the form:\n")
	b.WriteString(`{"message": "<request text>", "estimatedResponseTime": "<e.g. 20-30 business days>", "tips": ["<tip>", "<tip>"]}`)
	b.WriteString("\n")

	return b.String()
}

type draftPayload struct {
	Message               string   `json:"message"`
	EstimatedResponseTime string   `json:"estimatedResponseTime"`
	Tips                  []string `json:"tips"`
}

// ParseDraft turns a gateway reply into a DraftResult. The reply is decoded
// as JSON directly, then from a ```json fence, then from a bare fence.
// Anything else, including JSON with an empty message, falls back to using
// the trimmed reply as the message.
func ParseDraft(raw, jurisdiction string) (dto.DraftResult, ParseOutcome) {
	text := strings.TrimSpace(raw)

	if p, ok := decodeDraft(text); ok {
		return withDraftDefaults(p, jurisdiction), OutcomeStrict
	}

	for _, pattern := range []*regexp.Regexp{jsonFencePattern, plainFencePattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p, ok := decodeDraft(strings.TrimSpace(m[1])); ok {
			return withDraftDefaults(p, jurisdiction), OutcomeFenced
		}
	}

	return dto.DraftResult{
		Message:               text,
		EstimatedResponseTime: DefaultResponseTime(jurisdiction),
		Tips:                  append([]string(nil), defaultDraftTips...),
	}, OutcomeFallback
}

func decodeDraft(s string) (draftPayload, bool) {
	var p draftPayload
	if !strings.HasPrefix(s, "{") {
		return p, false
	}
	if err := sonic.UnmarshalString(s, &p); err != nil {
		return p, false
	}
	p.Message = strings.TrimSpace(p.Message)
	return p, p.Message != ""
}

func withDraftDefaults(p draftPayload, jurisdiction string) dto.DraftResult {
	result := dto.DraftResult{
		Message:               p.Message,
		EstimatedResponseTime: strings.TrimSpace(p.EstimatedResponseTime),
		Tips:                  p.Tips,
	}
	if result.EstimatedResponseTime == "" {
		result.EstimatedResponseTime = DefaultResponseTime(jurisdiction)
	}
	if len(result.Tips) == 0 {
		result.Tips = append([]string(nil), defaultDraftTips...)
	}
	return result
}

// DefaultResponseTime is the estimate used when the model gives none.
func DefaultResponseTime(jurisdiction string) string {
	if strings.EqualFold(strings.TrimSpace(jurisdiction), shared.JurisdictionFederal) {
		return federalResponseTime
	}
	return defaultResponseTime
}

// FindPlaceholders lists bracketed template fragments left in a draft.
func FindPlaceholders(message string) []string {
	var hits []string
	for _, p := range placeholderPatterns {
		hits = append(hits, p.FindAllString(message, -1)...)
	}
	return hits
}
