package score

import (
	"math"

	"github.com/akranz/factgate/internal/model"
	"github.com/akranz/factgate/internal/resolve"
)

// epsilon guards the deviation denominator against zero-valued facts
const epsilon = 1e-9

// Scorer compares claimed values against canonical facts and classifies
// the outcome. Scale normalization runs before any comparison: scale
// confusion (a dollar figure wearing a percent sign) is the most damaging
// error class in this domain and is classified apart from numeric drift.
type Scorer struct {
	cfg model.ScoringConfig
}

// NewScorer creates a scorer with the given classification bands.
func NewScorer(cfg model.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// ScoreAll produces exactly one VerificationResult per claim, in claim
// order. Claims without a resolved fact score UNVERIFIABLE, never vanish.
func (s *Scorer) ScoreAll(claims []model.Claim, resolutions []resolve.Resolution, mctx model.MetricContext) []model.VerificationResult {
	mandatory := mandatoryMetrics(mctx)

	results := make([]model.VerificationResult, len(claims))
	for i, claim := range claims {
		var res resolve.Resolution
		if i < len(resolutions) {
			res = resolutions[i]
		}
		results[i] = s.Score(claim, res, mandatory)
	}
	return results
}

// Score classifies a single claim against its resolution.
func (s *Scorer) Score(claim model.Claim, res resolve.Resolution, mandatory map[string]bool) model.VerificationResult {
	result := model.VerificationResult{
		Claim:           claim,
		Fact:            res.Fact,
		DefaultedPeriod: res.DefaultedPeriod,
		DefaultedEntity: res.DefaultedEntity,
	}

	if res.Fact == nil || res.Err != nil {
		result.Fact = nil
		result.Classification = model.ClassUnverifiable
		result.Weight = unverifiableWeight(claim, mandatory)
		return result
	}

	fact := *res.Fact
	result.Weight = 1
	if fact.Mandatory || mandatory[fact.MetricID] {
		result.Weight = 3
	}

	claimed, ok := s.normalize(claim, fact)
	if !ok {
		result.Classification = model.ClassWrongCategory
		return result
	}

	canonical := fact.BaseValue()
	ratio := math.Abs(claimed-canonical) / math.Max(math.Abs(canonical), epsilon)
	result.DeviationRatio = &ratio

	switch {
	case ratio <= s.cfg.ExactBand:
		result.Classification = model.ClassExact
	case ratio <= s.cfg.ToleranceBand:
		result.Classification = model.ClassWithinTolerance
	case ratio <= s.cfg.MinorBand:
		result.Classification = model.ClassMinorDeviation
	default:
		result.Classification = model.ClassGrossMismatch
	}

	return result
}

// normalize brings the claimed value into the fact's unit and scale.
// Returns false when the units are incompatible, the WRONG_CATEGORY case.
func (s *Scorer) normalize(claim model.Claim, fact model.GroundTruthFact) (float64, bool) {
	if !claim.Unit.Comparable(fact.Unit) {
		return 0, false
	}

	claimed := claim.BaseValue()

	// A "percentage" orders of magnitude beyond any plausible rate is a
	// mislabeled absolute figure, not a percentage that happens to be
	// wrong. Classified as category confusion, not drift.
	if fact.Unit == model.UnitPercent && claim.Unit == model.UnitPercent {
		if math.Abs(claimed) > s.cfg.PercentSanityBound {
			return 0, false
		}
	}

	return claimed, true
}

// unverifiableWeight: bare numbers weigh 0.5 so one stray unmatched digit
// cannot drag down an otherwise perfect answer; an unverifiable claim that
// did match the mandatory metric keeps full weight, since silence on the
// primary number is itself signal.
func unverifiableWeight(claim model.Claim, mandatory map[string]bool) float64 {
	if claim.MetricID != "" && mandatory[claim.MetricID] {
		return 3
	}
	return 0.5
}

func mandatoryMetrics(mctx model.MetricContext) map[string]bool {
	m := make(map[string]bool)
	for _, e := range mctx.Entries {
		if e.Mandatory {
			m[e.MetricID] = true
		}
	}
	return m
}
