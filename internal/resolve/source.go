package resolve

import (
	"context"

	"github.com/akranz/factgate/internal/model"
)

// Source supplies canonical facts for (entity, metric, period) tuples.
// A zero period asks for the most recent period the source knows about.
// The returned bool reports whether the source fell back to a default
// period rather than matching the requested one exactly.
//
// Lookups must honor ctx: a slow backing store times out per claim and
// that claim degrades to UNVERIFIABLE instead of stalling the pipeline.
type Source interface {
	Name() string
	Lookup(ctx context.Context, entityID, metricID string, period model.Period) (*model.GroundTruthFact, bool, error)
}

// ContextSource serves facts straight from the request's MetricContext.
// This is the production source: the verifier checks the answer against
// exactly the records the model was grounded on.
type ContextSource struct {
	index *Index
}

// NewContextSource indexes the given context.
func NewContextSource(mctx model.MetricContext) *ContextSource {
	return &ContextSource{index: NewIndex(mctx)}
}

// Name implements Source.
func (s *ContextSource) Name() string { return "context" }

// Lookup implements Source. An exact period match wins; when the period is
// zero or no fact exists for it, the most recent period for the entity and
// metric is returned with the defaulted flag set.
func (s *ContextSource) Lookup(ctx context.Context, entityID, metricID string, period model.Period) (*model.GroundTruthFact, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if !period.IsZero() {
		if fact, ok := s.index.Exact(entityID, metricID, period); ok {
			return fact, false, nil
		}
	}

	// Implicit or unmatched periods fall back to the most recent one;
	// either way the caller records that a default was applied.
	if fact, ok := s.index.MostRecent(entityID, metricID); ok {
		return fact, true, nil
	}

	return nil, false, nil
}
