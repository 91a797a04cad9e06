package model

import "time"

// ContextEntry is one {entity, metric, period, value} tuple that was handed
// to the language model as grounding. Owned by the calling orchestrator;
// the verifier borrows it read-only.
type ContextEntry struct {
	EntityID    string  `json:"entity_id"`
	EntityName  string  `json:"entity_name,omitempty"` // Display name ("Apple Inc.")
	MetricID    string  `json:"metric_id"`
	MetricLabel string  `json:"metric_label"`          // Display label ("Total Revenue")
	Period      string  `json:"period"`                // Canonical label, e.g. "FY2025", "Q3FY2024"
	Value       float64 `json:"value"`                 // Base-unit value (dollars, percent, points)
	Unit        Unit    `json:"unit"`
	Scale       float64 `json:"scale,omitempty"`       // Multiplier if Value is not base-unit, 1 if unset
	Mandatory   bool    `json:"mandatory,omitempty"`   // Primary metric the user asked about
	SourceLabel string  `json:"source_label,omitempty"`
}

// MetricContext is the full set of grounding tuples for one request.
// Immutable once constructed.
type MetricContext struct {
	Entries []ContextEntry `json:"entries"`
}

// Entities returns the distinct entity ids in context, in first-seen order.
func (m MetricContext) Entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.Entries {
		if !seen[e.EntityID] {
			seen[e.EntityID] = true
			out = append(out, e.EntityID)
		}
	}
	return out
}

// GroundTruthFact is a canonical, database-sourced value for a given
// entity/metric/period. Read-only reference data.
type GroundTruthFact struct {
	EntityID    string    `json:"entity_id"`
	MetricID    string    `json:"metric_id"`
	Period      Period    `json:"period"`
	Value       float64   `json:"value"` // Base-unit value
	Unit        Unit      `json:"unit"`
	Scale       float64   `json:"scale,omitempty"`
	Mandatory   bool      `json:"mandatory,omitempty"`
	SourceLabel string    `json:"source_label,omitempty"`
	AsOf        time.Time `json:"as_of,omitempty"`
}

// BaseValue returns the fact's value with its scale multiplier applied.
func (f GroundTruthFact) BaseValue() float64 {
	if f.Scale == 0 {
		return f.Value
	}
	return f.Value * f.Scale
}

// FactFromEntry converts a context entry to a ground-truth fact.
func FactFromEntry(e ContextEntry) GroundTruthFact {
	period, _ := ParsePeriod(e.Period)
	return GroundTruthFact{
		EntityID:    e.EntityID,
		MetricID:    e.MetricID,
		Period:      period,
		Value:       e.Value,
		Unit:        e.Unit,
		Scale:       e.Scale,
		Mandatory:   e.Mandatory,
		SourceLabel: e.SourceLabel,
	}
}
