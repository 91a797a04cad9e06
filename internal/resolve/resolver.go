package resolve

import (
	"context"
	"time"

	"github.com/akranz/factgate/internal/model"
	"github.com/akranz/factgate/internal/worker"
)

// Resolution is the outcome of matching one claim to ground truth.
// A nil Fact means the claim stays unresolved and will score UNVERIFIABLE.
type Resolution struct {
	ClaimIndex      int
	Fact            *model.GroundTruthFact
	DefaultedPeriod bool
	DefaultedEntity bool
	Err             error // Lookup failure or timeout; never fails the request
}

// GetError implements worker.Result.
func (r Resolution) GetError() error { return r.Err }

// Resolver maps claims to canonical facts with controlled fallback:
// exact (entity, metric, period) match, then most-recent-period default,
// then sole-entity default, then most-referenced-metric tiebreak. It never
// guesses past those steps; an unresolvable claim comes back with a nil
// fact rather than a silent best effort.
type Resolver struct {
	source  Source
	workers int
	timeout time.Duration
	limiter *worker.Limiter
}

// NewResolver creates a resolver over the given fact source.
func NewResolver(source Source, cfg model.ResolverConfig) *Resolver {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		source:  source,
		workers: workers,
		timeout: timeout,
		limiter: worker.NewLimiter(cfg.LookupsPerSecond, workers),
	}
}

// ResolveAll resolves every claim, issuing independent lookups through a
// bounded worker pool. The returned slice is ordered by claim index and
// always has exactly one entry per claim.
func (r *Resolver) ResolveAll(ctx context.Context, claims []model.Claim, mctx model.MetricContext) []Resolution {
	resolutions := make([]Resolution, len(claims))
	for i := range resolutions {
		resolutions[i].ClaimIndex = i
	}
	if len(claims) == 0 {
		return resolutions
	}

	entities := mctx.Entities()
	refs := metricReferenceCounts(claims)

	pool := worker.NewPool(r.workers)
	pool.Start()
	defer pool.Shutdown()

	// Submit from a goroutine so results drain while jobs queue up
	go func() {
		for i, claim := range claims {
			plan, ok := r.plan(claim, entities, refs)
			if !ok {
				// Unresolvable before any lookup; stays a nil-fact resolution
				continue
			}
			pool.Submit(&lookupJob{
				resolver: r,
				ctx:      ctx,
				plan:     plan,
				index:    i,
			})
		}
		pool.Finish()
	}()

	// Reassemble by claim index; completion order is irrelevant
	for res := range pool.Results() {
		resolution := res.(Resolution)
		resolutions[resolution.ClaimIndex] = resolution
	}

	return resolutions
}

// lookupPlan is a fully-determined lookup: entity, metric and period fixed
// before any I/O happens.
type lookupPlan struct {
	entityID        string
	metricID        string
	period          model.Period
	defaultedEntity bool
}

// plan determines what to look up for a claim, applying the entity and
// metric fallback steps. Returns false when no unique resolution exists.
func (r *Resolver) plan(claim model.Claim, entities []string, refs map[string]int) (lookupPlan, bool) {
	var plan lookupPlan

	plan.entityID = claim.EntityID
	if plan.entityID == "" {
		if len(entities) != 1 {
			return plan, false
		}
		plan.entityID = entities[0]
		plan.defaultedEntity = true
	}

	plan.metricID = claim.MetricID
	if plan.metricID == "" {
		metricID, ok := pickMetric(claim.MetricCandidates, refs)
		if !ok {
			return plan, false
		}
		plan.metricID = metricID
	}

	if !model.IsImplicitPeriod(claim.PeriodLabel) {
		if period, ok := model.ParsePeriod(claim.PeriodLabel); ok {
			plan.period = period
		}
	}

	return plan, true
}

type lookupJob struct {
	resolver *Resolver
	ctx      context.Context
	plan     lookupPlan
	index    int
}

// Execute implements worker.Job. Each lookup carries its own timeout so a
// slow source degrades one claim, never the whole pipeline.
func (j *lookupJob) Execute(_ context.Context) worker.Result {
	resolution := Resolution{
		ClaimIndex:      j.index,
		DefaultedEntity: j.plan.defaultedEntity,
	}

	ctx, cancel := context.WithTimeout(j.ctx, j.resolver.timeout)
	defer cancel()

	if err := j.resolver.limiter.Wait(ctx, j.resolver.source.Name()); err != nil {
		resolution.Err = err
		return resolution
	}

	fact, defaulted, err := j.resolver.source.Lookup(ctx, j.plan.entityID, j.plan.metricID, j.plan.period)
	if err != nil {
		resolution.Err = err
		return resolution
	}

	resolution.Fact = fact
	resolution.DefaultedPeriod = defaulted
	return resolution
}

// metricReferenceCounts tallies how often each metric is referenced by
// unambiguously-labeled claims in the same response.
func metricReferenceCounts(claims []model.Claim) map[string]int {
	refs := make(map[string]int)
	for _, c := range claims {
		if c.MetricID != "" {
			refs[c.MetricID]++
		}
	}
	return refs
}

// pickMetric breaks a tie between candidate metrics by preferring the one
// most referenced elsewhere in the response. A remaining tie means real
// ambiguity and the claim stays unresolved.
func pickMetric(candidates []string, refs map[string]int) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	best, bestCount, tied := "", -1, false
	for _, id := range candidates {
		count := refs[id]
		switch {
		case count > bestCount:
			best, bestCount, tied = id, count, false
		case count == bestCount:
			tied = true
		}
	}
	if tied || bestCount <= 0 {
		return "", false
	}
	return best, true
}
