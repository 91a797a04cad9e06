package model

import "time"

// Classification is the outcome of comparing one claim against its fact
type Classification string

const (
	ClassExact           Classification = "EXACT"
	ClassWithinTolerance Classification = "WITHIN_TOLERANCE"
	ClassMinorDeviation  Classification = "MINOR_DEVIATION"
	ClassGrossMismatch   Classification = "GROSS_MISMATCH"
	ClassWrongCategory   Classification = "WRONG_CATEGORY"
	ClassUnverifiable    Classification = "UNVERIFIABLE"
)

// VerificationResult is the scored outcome for a single claim. Exactly one
// is produced per extracted claim; unresolvable claims come through as
// UNVERIFIABLE rather than being dropped.
type VerificationResult struct {
	Claim           Claim            `json:"claim"`
	Fact            *GroundTruthFact `json:"fact,omitempty"`
	DeviationRatio  *float64         `json:"deviation_ratio,omitempty"`
	Classification  Classification   `json:"classification"`
	Weight          float64          `json:"weight"`
	DefaultedPeriod bool             `json:"defaulted_period,omitempty"` // Resolver fell back to most recent period
	DefaultedEntity bool             `json:"defaulted_entity,omitempty"` // Resolver assumed the sole context entity
}

// Verdict is the user-visible gate decision
type Verdict string

const (
	VerdictShow   Verdict = "SHOW"
	VerdictReject Verdict = "REJECT"
)

// ResponseVerification is the sole artifact returned to the caller and
// persisted by the audit recorder.
type ResponseVerification struct {
	RequestID         string               `json:"request_id"`
	Results           []VerificationResult `json:"results"`
	OverallConfidence float64              `json:"overall_confidence"`
	Verdict           Verdict              `json:"verdict"`
	Annotations       []string             `json:"annotations,omitempty"`
	DisplayText       string               `json:"display_text,omitempty"` // Response text after any auto-correction
	CreatedAt         time.Time            `json:"created_at"`
}

// CountByClass tallies results per classification.
func (r ResponseVerification) CountByClass() map[Classification]int {
	counts := make(map[Classification]int)
	for _, res := range r.Results {
		counts[res.Classification]++
	}
	return counts
}

// HasWrongCategory reports whether any claim hit the most severe class.
func (r ResponseVerification) HasWrongCategory() bool {
	for _, res := range r.Results {
		if res.Classification == ClassWrongCategory {
			return true
		}
	}
	return false
}

// VerifyRequest is the input contract from the orchestrator that already
// ran the LLM call.
type VerifyRequest struct {
	ResponseText string         `json:"response_text"`
	Context      []ContextEntry `json:"context"`
}
