package model

// Span marks the byte offsets of a numeric token in the response text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Claim represents a numeric assertion extracted from generated text.
// Immutable after extraction; EntityID and MetricID stay empty until the
// resolver (or the extractor's label matcher) fills them in.
type Claim struct {
	Index       int     `json:"index"`                  // Position in extraction order (0-based)
	EntityID    string  `json:"entity_id,omitempty"`    // Resolved entity, empty if unknown
	MetricID    string  `json:"metric_id,omitempty"`    // Resolved metric, empty if unknown
	MetricLabel string  `json:"metric_label,omitempty"` // Raw surface form near the number
	PeriodLabel string  `json:"period_label,omitempty"` // Raw surface form ("FY2024", "this quarter")
	Value       float64 `json:"value"`                  // Parsed numeric value, pre-scale
	Unit        Unit    `json:"unit,omitempty"`         // Inferred from the token's own symbol/suffix
	Scale       float64 `json:"scale,omitempty"`        // Multiplier from suffix (B=1e9), 1 if none
	Raw         string  `json:"raw"`                    // The token as it appeared in the text
	Span        Span    `json:"span"`                   // Offsets into the response text
	Heuristic   string  `json:"heuristic,omitempty"`    // Which matching rule labeled the claim

	// MetricCandidates holds equally-plausible metric matches when the
	// label phrase was ambiguous; the resolver breaks the tie.
	MetricCandidates []string `json:"metric_candidates,omitempty"`
}

// BaseValue returns the claim's value with its scale multiplier applied.
func (c Claim) BaseValue() float64 {
	if c.Scale == 0 {
		return c.Value
	}
	return c.Value * c.Scale
}

// Unit categorizes what kind of quantity a value is
type Unit string

const (
	UnitUnknown Unit = ""       // Bare number, no symbol or suffix
	UnitUSD     Unit = "USD"    // Currency amounts
	UnitPercent Unit = "%"      // Percentages and rates
	UnitPoints  Unit = "points" // Index points
	UnitCount   Unit = "count"  // Plain counts (headcount, shares)
)

// Comparable reports whether two units can be meaningfully compared after
// scale normalization. An unknown unit is compatible with anything: bare
// numbers take the fact's unit at comparison time.
func (u Unit) Comparable(other Unit) bool {
	if u == UnitUnknown || other == UnitUnknown {
		return true
	}
	return u.category() == other.category()
}

func (u Unit) category() string {
	switch u {
	case UnitUSD:
		return "currency"
	case UnitPercent:
		return "ratio"
	case UnitPoints:
		return "index"
	case UnitCount:
		return "count"
	default:
		return "unknown"
	}
}
