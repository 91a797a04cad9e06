package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/akranz/factgate/internal/model"
)

// numToken is a numeric token found in the response text, with the unit
// and scale inferred from its own symbol/suffix only. Label context is
// attached later by the extractor.
type numToken struct {
	Raw   string
	Value float64
	Unit  model.Unit
	Scale float64
	Start int
	End   int
}

// Matches currency-scaled numbers, percentages, plain decimals and
// thousands-separated figures: "$281.7B", "245,122,000,000.0%", "3.2",
// "4.5 billion". Word suffixes are matched case-insensitively.
var tokenRe = regexp.MustCompile(`(?i)-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?(?:\s?(?:trillion|billion|million|thousand)\b|[KMBT]\b)?%?`)

// Words immediately after a number that carry its unit.
var unitWordRe = regexp.MustCompile(`(?i)^\s*(percentage\s+points|percent|points|pts|bps|basis\s+points)\b`)

var scaleSuffixes = map[string]float64{
	"k": 1e3, "thousand": 1e3,
	"m": 1e6, "million": 1e6,
	"b": 1e9, "billion": 1e9,
	"t": 1e12, "trillion": 1e12,
}

// scanNumbers finds every numeric token in text. It never fails: malformed
// fragments simply produce no tokens.
func scanNumbers(text string) []numToken {
	var tokens []numToken

	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		tok, ok := parseToken(raw, loc[0], loc[1])
		if !ok {
			continue
		}

		// A bare 4-digit integer in a plausible year range is almost
		// always a period reference ("in 2024"), not a claim.
		if looksLikeYear(tok) {
			continue
		}

		// Unit words after the token ("4,567 points", "2.5 percent").
		if tok.Unit == model.UnitUnknown {
			if m := unitWordRe.FindString(text[loc[1]:]); m != "" {
				switch strings.ToLower(strings.Fields(m)[0]) {
				case "percent":
					tok.Unit = model.UnitPercent
				case "points", "pts":
					tok.Unit = model.UnitPoints
				}
			}
		}

		tokens = append(tokens, tok)
	}

	return tokens
}

func parseToken(raw string, start, end int) (numToken, bool) {
	tok := numToken{Raw: raw, Scale: 1, Start: start, End: end}
	s := raw

	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if strings.HasPrefix(s, "$") {
		tok.Unit = model.UnitUSD
		s = s[1:]
	}
	if strings.HasSuffix(s, "%") {
		if tok.Unit == model.UnitUSD {
			// "$5%" is noise, not a claim
			return tok, false
		}
		tok.Unit = model.UnitPercent
		s = strings.TrimSuffix(s, "%")
	}

	// Scale suffix: single letter or word
	lower := strings.ToLower(strings.TrimSpace(s))
	for suffix, mult := range scaleSuffixes {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			rest := strings.TrimSpace(lower[:len(lower)-len(suffix)])
			if rest != "" && isNumeric(rest) {
				tok.Scale = mult
				s = rest
				break
			}
		}
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return tok, false
	}
	if strings.HasPrefix(raw, "-") {
		v = -v
	}
	tok.Value = v
	return tok, true
}

func isNumeric(s string) bool {
	s = strings.ReplaceAll(s, ",", "")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// looksLikeYear filters bare integers like "2024" that sit in period
// positions ("in 2024", "FY2024", "Q3 2024").
func looksLikeYear(tok numToken) bool {
	if tok.Unit != model.UnitUnknown || tok.Scale != 1 {
		return false
	}
	if tok.Value != float64(int(tok.Value)) {
		return false
	}
	if tok.Value < 1900 || tok.Value > 2100 {
		return false
	}
	if strings.Contains(tok.Raw, ".") || strings.Contains(tok.Raw, ",") {
		return false
	}
	return true
}
