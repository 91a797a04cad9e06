package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akranz/factgate/internal/model"
)

func testResolverConfig() model.ResolverConfig {
	return model.ResolverConfig{Workers: 4, LookupTimeout: time.Second}
}

func appleContext() model.MetricContext {
	return model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "revenue", MetricLabel: "Total Revenue",
			Period: "FY2024", Value: 281700000000, Unit: model.UnitUSD},
		{EntityID: "AAPL", MetricID: "revenue", MetricLabel: "Total Revenue",
			Period: "FY2025", Value: 296100000000, Unit: model.UnitUSD},
	}}
}

func TestResolve_ExactMatch(t *testing.T) {
	mctx := appleContext()
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{{
		Index: 0, EntityID: "AAPL", MetricID: "revenue", PeriodLabel: "FY2024",
	}}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	if len(resolutions) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolutions))
	}
	res := resolutions[0]
	if res.Fact == nil {
		t.Fatal("expected a resolved fact")
	}
	if res.Fact.Period.Key() != "FY2024" {
		t.Errorf("expected FY2024, got %s", res.Fact.Period.Key())
	}
	if res.DefaultedPeriod {
		t.Error("exact period match should not be tagged as defaulted")
	}
}

func TestResolve_ImplicitPeriodDefaultsToMostRecent(t *testing.T) {
	mctx := appleContext()
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{{
		Index: 0, EntityID: "AAPL", MetricID: "revenue", PeriodLabel: "this quarter",
	}}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	res := resolutions[0]
	if res.Fact == nil {
		t.Fatal("expected a resolved fact")
	}
	if res.Fact.Period.Key() != "FY2025" {
		t.Errorf("expected most recent FY2025, got %s", res.Fact.Period.Key())
	}
	if !res.DefaultedPeriod {
		t.Error("defaulted period must be tagged")
	}
}

func TestResolve_ExplicitPeriodMissFallsBack(t *testing.T) {
	// The only context fact is FY2025 but the claim says FY2024
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "revenue", Period: "FY2025",
			Value: 296100000000, Unit: model.UnitUSD},
	}}
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{{Index: 0, EntityID: "AAPL", MetricID: "revenue", PeriodLabel: "FY2024"}}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	res := resolutions[0]
	if res.Fact == nil || res.Fact.Period.Key() != "FY2025" {
		t.Fatalf("expected fallback to FY2025, got %+v", res.Fact)
	}
	if !res.DefaultedPeriod {
		t.Error("fallback must be tagged as defaulted")
	}
}

func TestResolve_SoleEntityAssumed(t *testing.T) {
	mctx := appleContext()
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{{Index: 0, MetricID: "revenue", PeriodLabel: "FY2024"}}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	res := resolutions[0]
	if res.Fact == nil {
		t.Fatal("expected sole-entity default to resolve")
	}
	if !res.DefaultedEntity {
		t.Error("entity default must be tagged")
	}
}

func TestResolve_MultipleEntitiesNoGuess(t *testing.T) {
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "revenue", Period: "FY2024", Value: 1, Unit: model.UnitUSD},
		{EntityID: "MSFT", MetricID: "revenue", Period: "FY2024", Value: 2, Unit: model.UnitUSD},
	}}
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{{Index: 0, MetricID: "revenue", PeriodLabel: "FY2024"}}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	if resolutions[0].Fact != nil {
		t.Error("resolver must not guess between multiple entities")
	}
}

func TestResolve_MetricTiebreakByReference(t *testing.T) {
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "gross_margin", Period: "FY2024", Value: 46.2, Unit: model.UnitPercent},
		{EntityID: "AAPL", MetricID: "operating_margin", Period: "FY2024", Value: 31.5, Unit: model.UnitPercent},
	}}
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{
		{Index: 0, EntityID: "AAPL", MetricID: "operating_margin", PeriodLabel: "FY2024"},
		// Ambiguous "margin" claim; operating_margin is referenced elsewhere
		{Index: 1, EntityID: "AAPL", MetricCandidates: []string{"gross_margin", "operating_margin"}, PeriodLabel: "FY2024"},
	}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	res := resolutions[1]
	if res.Fact == nil {
		t.Fatal("expected tiebreak to resolve")
	}
	if res.Fact.MetricID != "operating_margin" {
		t.Errorf("expected operating_margin via tiebreak, got %s", res.Fact.MetricID)
	}
}

func TestResolve_UnbreakableTieStaysUnresolved(t *testing.T) {
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "gross_margin", Period: "FY2024", Value: 46.2, Unit: model.UnitPercent},
		{EntityID: "AAPL", MetricID: "operating_margin", Period: "FY2024", Value: 31.5, Unit: model.UnitPercent},
	}}
	r := NewResolver(NewContextSource(mctx), testResolverConfig())

	claims := []model.Claim{
		{Index: 0, EntityID: "AAPL", MetricCandidates: []string{"gross_margin", "operating_margin"}, PeriodLabel: "FY2024"},
	}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	if resolutions[0].Fact != nil {
		t.Error("an unbreakable metric tie must stay unresolved")
	}
}

// slowSource blocks until its delay passes or the lookup context expires.
type slowSource struct {
	delay time.Duration
}

func (s *slowSource) Name() string { return "slow" }

func (s *slowSource) Lookup(ctx context.Context, entityID, metricID string, period model.Period) (*model.GroundTruthFact, bool, error) {
	select {
	case <-time.After(s.delay):
		return &model.GroundTruthFact{EntityID: entityID, MetricID: metricID}, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func TestResolve_SlowLookupDegradesClaim(t *testing.T) {
	mctx := appleContext()
	cfg := model.ResolverConfig{Workers: 2, LookupTimeout: 20 * time.Millisecond}
	r := NewResolver(&slowSource{delay: time.Second}, cfg)

	claims := []model.Claim{{Index: 0, EntityID: "AAPL", MetricID: "revenue", PeriodLabel: "FY2024"}}

	start := time.Now()
	resolutions := r.ResolveAll(context.Background(), claims, mctx)
	elapsed := time.Since(start)

	if resolutions[0].Fact != nil {
		t.Error("timed-out lookup must leave the claim unresolved")
	}
	if resolutions[0].Err == nil {
		t.Error("expected a timeout error on the resolution")
	}
	if !errors.Is(resolutions[0].Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", resolutions[0].Err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("lookup timeout did not bound latency, took %v", elapsed)
	}
}

func TestResolve_ManyClaimsReassembleByIndex(t *testing.T) {
	mctx := appleContext()
	r := NewResolver(NewContextSource(mctx), model.ResolverConfig{Workers: 3, LookupTimeout: time.Second})

	var claims []model.Claim
	for i := 0; i < 50; i++ {
		claims = append(claims, model.Claim{
			Index: i, EntityID: "AAPL", MetricID: "revenue", PeriodLabel: "FY2024",
		})
	}
	resolutions := r.ResolveAll(context.Background(), claims, mctx)

	if len(resolutions) != 50 {
		t.Fatalf("expected 50 resolutions, got %d", len(resolutions))
	}
	for i, res := range resolutions {
		if res.ClaimIndex != i {
			t.Fatalf("resolution %d carries claim index %d", i, res.ClaimIndex)
		}
		if res.Fact == nil {
			t.Fatalf("resolution %d unexpectedly unresolved", i)
		}
	}
}

func TestIndex_MostRecentOrdering(t *testing.T) {
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "revenue", Period: "Q3FY2025", Value: 1, Unit: model.UnitUSD},
		{EntityID: "AAPL", MetricID: "revenue", Period: "FY2024", Value: 2, Unit: model.UnitUSD},
		{EntityID: "AAPL", MetricID: "revenue", Period: "FY2025", Value: 3, Unit: model.UnitUSD},
	}}

	ix := NewIndex(mctx)
	fact, ok := ix.MostRecent("AAPL", "revenue")
	if !ok {
		t.Fatal("expected a most recent fact")
	}
	// Annual FY2025 outranks Q3FY2025
	if fact.Period.Key() != "FY2025" {
		t.Errorf("expected FY2025, got %s", fact.Period.Key())
	}
}
