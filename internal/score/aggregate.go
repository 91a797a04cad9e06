package score

import "github.com/akranz/factgate/internal/model"

// classScores is the fixed per-classification credit table. UNVERIFIABLE
// sits in a neutral band: absence of proof is not proof of absence, but it
// cannot earn full credit either.
var classScores = map[model.Classification]float64{
	model.ClassExact:           1.00,
	model.ClassWithinTolerance: 0.90,
	model.ClassMinorDeviation:  0.50,
	model.ClassUnverifiable:    0.60,
	model.ClassGrossMismatch:   0.05,
	model.ClassWrongCategory:   0.00,
}

// mandatoryWrongCategoryCap bounds overall confidence when the primary
// metric itself hit a category mismatch. Without the cap, enough EXACT
// side claims could float a weighted mean back over the strict threshold.
const mandatoryWrongCategoryCap = 0.5

// Aggregate reduces per-claim results to one response-level confidence in
// [0,1]: the weighted mean of classification scores. An empty result list
// is a purely qualitative answer and scores 1.0. Deterministic for a given
// result list.
func Aggregate(results []model.VerificationResult) float64 {
	if len(results) == 0 {
		return 1.0
	}

	var weightedSum, totalWeight float64
	capApplies := false
	for _, r := range results {
		weight := r.Weight
		if weight <= 0 {
			weight = 1
		}
		weightedSum += classScores[r.Classification] * weight
		totalWeight += weight

		if r.Classification == model.ClassWrongCategory && weight >= 3 {
			capApplies = true
		}
	}

	confidence := weightedSum / totalWeight
	if capApplies && confidence > mandatoryWrongCategoryCap {
		confidence = mandatoryWrongCategoryCap
	}
	return confidence
}
