package dto

// WizardAnswers is the body of generate-foia: everything the multi-step
// wizard collected before asking for a draft.
type WizardAnswers struct {
	AgencyName         string `json:"agencyName" validate:"required,notblank,max=200"`
	AgencyCity         string `json:"agencyCity" validate:"max=100"`
	AgencyState        string `json:"agencyState" validate:"max=100"`
	JurisdictionType   string `json:"jurisdictionType" validate:"required,oneof_ci=federal state local"`
	RecordsDescription string `json:"recordsDescription" validate:"required,notblank,max=2000"`
	DateMode           string `json:"dateMode" validate:"omitempty,oneof=none exact range"`
	ExactDate          string `json:"exactDate" validate:"required_if=DateMode exact,max=40"`
	DateFrom           string `json:"dateFrom" validate:"required_if=DateMode range,max=40"`
	DateTo             string `json:"dateTo" validate:"required_if=DateMode range,max=40"`
	RelatedNames       string `json:"relatedNames" validate:"max=500"`
	CaseNumber         string `json:"caseNumber" validate:"max=100"`
	Address            string `json:"address" validate:"max=300"`
	FormatPreference   string `json:"formatPreference" validate:"max=50"`
	AdditionalContext  string `json:"additionalContext" validate:"max=2000"`
}

func (w WizardAnswers) Validate() error {
	return GetValidator().Struct(w)
}

func (w WizardAnswers) HasRelatedIdentifiers() bool {
	return w.RelatedNames != "" || w.CaseNumber != "" || w.Address != ""
}

type DraftResult struct {
	Message               string   `json:"message"`
	EstimatedResponseTime string   `json:"estimatedResponseTime"`
	Tips                  []string `json:"tips"`
}
