package gate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/akranz/factgate/internal/model"
)

// autoCorrect substitutes the canonical formatting of a value into the
// display text for claims that are numerically right but formatted
// differently. Restricted to EXACT and WITHIN_TOLERANCE claims; gross
// numeric differences are never rewritten.
func autoCorrect(text string, results []model.VerificationResult) string {
	// Apply right-to-left so earlier spans stay valid
	ordered := make([]model.VerificationResult, 0, len(results))
	for _, r := range results {
		if r.Fact == nil {
			continue
		}
		if r.Classification != model.ClassExact && r.Classification != model.ClassWithinTolerance {
			continue
		}
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Claim.Span.Start > ordered[j].Claim.Span.Start
	})

	for _, r := range ordered {
		span := r.Claim.Span
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			continue
		}
		canonical := FormatFact(*r.Fact)
		if canonical == "" || canonical == text[span.Start:span.End] {
			continue
		}
		text = text[:span.Start] + canonical + text[span.End:]
	}

	return text
}

// FormatFact renders a fact's base value in its canonical display form:
// "$281.7B", "2.5%", "4,567.9 points", plain for counts.
func FormatFact(fact model.GroundTruthFact) string {
	v := fact.BaseValue()

	switch fact.Unit {
	case model.UnitUSD:
		return "$" + humanizeMagnitude(v)
	case model.UnitPercent:
		return trimFloat(v, 2) + "%"
	case model.UnitPoints:
		return groupThousands(v) + " points"
	default:
		return humanizeMagnitude(v)
	}
}

// humanizeMagnitude collapses large magnitudes to T/B/M/K suffixes.
func humanizeMagnitude(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return trimFloat(v/1e12, 2) + "T"
	case abs >= 1e9:
		return trimFloat(v/1e9, 2) + "B"
	case abs >= 1e6:
		return trimFloat(v/1e6, 2) + "M"
	case abs >= 1e4:
		return groupThousands(v)
	default:
		return trimFloat(v, 2)
	}
}

// trimFloat formats with up to prec decimals, dropping trailing zeros.
func trimFloat(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// groupThousands renders a value with comma separators and one decimal
// when the fraction matters.
func groupThousands(v float64) string {
	neg := v < 0
	abs := math.Abs(v)
	whole := int64(abs)
	frac := abs - float64(whole)

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	out := b.String()
	if frac >= 0.05 {
		out += fmt.Sprintf(".%d", int(math.Round(frac*10))%10)
	}
	if neg {
		out = "-" + out
	}
	return out
}
