package score

import (
	"errors"
	"math"
	"testing"

	"github.com/akranz/factgate/internal/model"
	"github.com/akranz/factgate/internal/resolve"
)

func testScorer() *Scorer {
	return NewScorer(model.DefaultConfig().Scoring)
}

func revenueFact() *model.GroundTruthFact {
	return &model.GroundTruthFact{
		EntityID: "AAPL",
		MetricID: "revenue",
		Period:   model.Period{Year: 2024},
		Value:    281700000000,
		Unit:     model.UnitUSD,
	}
}

func claimFor(value float64, scale float64, unit model.Unit) model.Claim {
	if scale == 0 {
		scale = 1
	}
	return model.Claim{
		MetricID: "revenue",
		Value:    value,
		Scale:    scale,
		Unit:     unit,
	}
}

func TestScore_ExactWithinRounding(t *testing.T) {
	s := testScorer()
	// "$281.7B" against 281,700,000,000
	claim := claimFor(281.7, 1e9, model.UnitUSD)

	result := s.Score(claim, resolve.Resolution{Fact: revenueFact()}, nil)

	if result.Classification != model.ClassExact {
		t.Errorf("expected EXACT, got %s", result.Classification)
	}
	if result.DeviationRatio == nil || *result.DeviationRatio > 0.005 {
		t.Errorf("unexpected deviation ratio: %v", result.DeviationRatio)
	}
}

func TestScore_Bands(t *testing.T) {
	s := testScorer()
	fact := &model.GroundTruthFact{
		MetricID: "revenue", Value: 100, Unit: model.UnitUSD,
	}

	cases := []struct {
		name    string
		claimed float64
		want    model.Classification
	}{
		{"exact boundary", 100.5, model.ClassExact},
		{"within tolerance", 103, model.ClassWithinTolerance},
		{"tolerance boundary", 105, model.ClassWithinTolerance},
		{"minor deviation", 115, model.ClassMinorDeviation},
		{"minor boundary", 125, model.ClassMinorDeviation},
		{"gross mismatch", 130, model.ClassGrossMismatch},
		{"wildly off", 1000, model.ClassGrossMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claim := claimFor(tc.claimed, 1, model.UnitUSD)
			result := s.Score(claim, resolve.Resolution{Fact: fact}, nil)
			if result.Classification != tc.want {
				t.Errorf("claimed %v: expected %s, got %s", tc.claimed, tc.want, result.Classification)
			}
		})
	}
}

func TestScore_DeviationAgainstOutdatedPeriod(t *testing.T) {
	s := testScorer()
	// FY2025 canonical 296.1 vs claimed 391.0 is a 32% gap
	fact := &model.GroundTruthFact{
		MetricID: "revenue",
		Period:   model.Period{Year: 2025},
		Value:    296100000000,
		Unit:     model.UnitUSD,
	}
	claim := claimFor(391.0, 1e9, model.UnitUSD)

	result := s.Score(claim, resolve.Resolution{Fact: fact, DefaultedPeriod: true}, nil)

	if result.Classification != model.ClassGrossMismatch {
		t.Errorf("expected GROSS_MISMATCH, got %s", result.Classification)
	}
	if !result.DefaultedPeriod {
		t.Error("defaulted period flag must survive scoring")
	}
	want := math.Abs(391000000000.0-296100000000.0) / 296100000000.0
	if math.Abs(*result.DeviationRatio-want) > 1e-9 {
		t.Errorf("expected ratio %v, got %v", want, *result.DeviationRatio)
	}
}

func TestScore_IncompatibleUnitsWrongCategory(t *testing.T) {
	s := testScorer()
	fact := &model.GroundTruthFact{MetricID: "gross_margin", Value: 46.2, Unit: model.UnitPercent}
	claim := model.Claim{MetricID: "gross_margin", Value: 46.2, Scale: 1, Unit: model.UnitUSD}

	result := s.Score(claim, resolve.Resolution{Fact: fact}, nil)

	if result.Classification != model.ClassWrongCategory {
		t.Errorf("expected WRONG_CATEGORY, got %s", result.Classification)
	}
	if result.DeviationRatio != nil {
		t.Error("category mismatch must not report a deviation ratio")
	}
}

func TestScore_AbsurdPercentIsCategoryConfusion(t *testing.T) {
	s := testScorer()
	// A revenue-sized number wearing a percent sign against a 2.5% fact
	fact := &model.GroundTruthFact{MetricID: "gdp_growth", Value: 2.5, Unit: model.UnitPercent}
	claim := model.Claim{MetricID: "gdp_growth", Value: 245122000000, Scale: 1, Unit: model.UnitPercent}

	result := s.Score(claim, resolve.Resolution{Fact: fact}, nil)

	if result.Classification != model.ClassWrongCategory {
		t.Errorf("expected WRONG_CATEGORY, got %s", result.Classification)
	}
}

func TestScore_PlausiblePercentStaysNumericDrift(t *testing.T) {
	s := testScorer()
	fact := &model.GroundTruthFact{MetricID: "gdp_growth", Value: 2.5, Unit: model.UnitPercent}
	claim := model.Claim{MetricID: "gdp_growth", Value: 3.1, Scale: 1, Unit: model.UnitPercent}

	result := s.Score(claim, resolve.Resolution{Fact: fact}, nil)

	if result.Classification != model.ClassGrossMismatch {
		t.Errorf("expected GROSS_MISMATCH, got %s", result.Classification)
	}
}

func TestScore_UnknownUnitComparable(t *testing.T) {
	s := testScorer()
	fact := &model.GroundTruthFact{MetricID: "revenue", Value: 100, Unit: model.UnitUSD}
	claim := model.Claim{MetricID: "revenue", Value: 100, Scale: 1, Unit: model.UnitUnknown}

	result := s.Score(claim, resolve.Resolution{Fact: fact}, nil)

	if result.Classification != model.ClassExact {
		t.Errorf("unitless claim should compare numerically, got %s", result.Classification)
	}
}

func TestScore_ZeroCanonicalValue(t *testing.T) {
	s := testScorer()
	fact := &model.GroundTruthFact{MetricID: "net_income", Value: 0, Unit: model.UnitUSD}

	exact := s.Score(claimFor(0, 1, model.UnitUSD), resolve.Resolution{Fact: fact}, nil)
	if exact.Classification != model.ClassExact {
		t.Errorf("0 vs 0 should be EXACT, got %s", exact.Classification)
	}

	off := s.Score(claimFor(5, 1, model.UnitUSD), resolve.Resolution{Fact: fact}, nil)
	if off.Classification != model.ClassGrossMismatch {
		t.Errorf("5 vs 0 should be GROSS_MISMATCH, got %s", off.Classification)
	}
}

func TestScore_NilFactUnverifiable(t *testing.T) {
	s := testScorer()

	result := s.Score(model.Claim{Raw: "42.5"}, resolve.Resolution{}, nil)

	if result.Classification != model.ClassUnverifiable {
		t.Errorf("expected UNVERIFIABLE, got %s", result.Classification)
	}
	if result.Weight != 0.5 {
		t.Errorf("bare unverifiable claim should weigh 0.5, got %v", result.Weight)
	}
}

func TestScore_LookupErrorUnverifiable(t *testing.T) {
	s := testScorer()
	res := resolve.Resolution{
		Fact: revenueFact(),
		Err:  errors.New("lookup timed out"),
	}

	result := s.Score(claimFor(281.7, 1e9, model.UnitUSD), res, nil)

	if result.Classification != model.ClassUnverifiable {
		t.Errorf("errored lookup must score UNVERIFIABLE, got %s", result.Classification)
	}
	if result.Fact != nil {
		t.Error("errored lookup must not expose a fact")
	}
}

func TestScore_MandatoryWeights(t *testing.T) {
	s := testScorer()
	mandatory := map[string]bool{"revenue": true}

	fact := revenueFact()
	fact.Mandatory = true
	matched := s.Score(claimFor(281.7, 1e9, model.UnitUSD), resolve.Resolution{Fact: fact}, mandatory)
	if matched.Weight != 3 {
		t.Errorf("mandatory metric should weigh 3, got %v", matched.Weight)
	}

	// Unverifiable but labeled with the mandatory metric keeps full weight
	unv := s.Score(model.Claim{MetricID: "revenue", Value: 281.7}, resolve.Resolution{}, mandatory)
	if unv.Weight != 3 {
		t.Errorf("unverifiable mandatory claim should weigh 3, got %v", unv.Weight)
	}

	side := s.Score(claimFor(6.08, 1, model.UnitUSD), resolve.Resolution{
		Fact: &model.GroundTruthFact{MetricID: "eps", Value: 6.08, Unit: model.UnitUSD},
	}, mandatory)
	if side.Weight != 1 {
		t.Errorf("non-mandatory metric should weigh 1, got %v", side.Weight)
	}
}

func TestScoreAll_OneResultPerClaim(t *testing.T) {
	s := testScorer()
	mctx := model.MetricContext{Entries: []model.ContextEntry{
		{EntityID: "AAPL", MetricID: "revenue", Period: "FY2024",
			Value: 281700000000, Unit: model.UnitUSD, Mandatory: true},
	}}

	claims := []model.Claim{
		{Index: 0, MetricID: "revenue", Value: 281.7, Scale: 1e9, Unit: model.UnitUSD},
		{Index: 1, Raw: "42.5", Value: 42.5, Scale: 1},
	}
	resolutions := []resolve.Resolution{
		{ClaimIndex: 0, Fact: &model.GroundTruthFact{
			MetricID: "revenue", Value: 281700000000, Unit: model.UnitUSD, Mandatory: true,
		}},
		{ClaimIndex: 1},
	}

	results := s.ScoreAll(claims, resolutions, mctx)

	if len(results) != len(claims) {
		t.Fatalf("expected %d results, got %d", len(claims), len(results))
	}
	if results[0].Classification != model.ClassExact {
		t.Errorf("claim 0: expected EXACT, got %s", results[0].Classification)
	}
	if results[0].Weight != 3 {
		t.Errorf("claim 0: expected weight 3, got %v", results[0].Weight)
	}
	if results[1].Classification != model.ClassUnverifiable {
		t.Errorf("claim 1: expected UNVERIFIABLE, got %s", results[1].Classification)
	}
}
