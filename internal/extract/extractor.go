package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/akranz/factgate/internal/model"
)

// Extractor turns response text plus the grounding context into candidate
// numeric claims. Extraction never fails on malformed text; a response with
// no numeric tokens yields an empty list.
type Extractor struct {
	matcher *LabelMatcher
	window  int
}

// NewExtractor creates an extractor.
func NewExtractor(cfg model.MatcherConfig) *Extractor {
	window := cfg.WindowTokens
	if window <= 0 {
		window = 6
	}
	return &Extractor{
		matcher: NewLabelMatcher(cfg),
		window:  window,
	}
}

// Extract scans text for numeric tokens and labels each one from the
// nearest phrase that matches a metric or entity in context. Bare numbers
// with no resolvable label are still emitted so the scorer can mark them
// UNVERIFIABLE instead of silently dropping them. Claim spans index into
// the text passed here; callers that receive markup should run Plaintext
// first and keep the plain rendering for display.
func (e *Extractor) Extract(text string, mctx model.MetricContext) []model.Claim {
	tokens := scanNumbers(text)
	if len(tokens) == 0 {
		return nil
	}

	claims := make([]model.Claim, 0, len(tokens))
	for i, tok := range tokens {
		claim := model.Claim{
			Index: i,
			Value: tok.Value,
			Unit:  tok.Unit,
			Scale: tok.Scale,
			Raw:   tok.Raw,
			Span:  model.Span{Start: tok.Start, End: tok.End},
		}

		before := lastWords(text[:tok.Start], e.window)
		after := firstWords(text[tok.End:], e.window/2+1)
		window := strings.TrimSpace(before + " " + after)

		// Metric: prefer the preceding phrase, fall back to the following one
		ids := e.matcher.MatchMetric(before, mctx)
		label := before
		if len(ids) == 0 {
			ids = e.matcher.MatchMetric(after, mctx)
			label = after
		}
		switch len(ids) {
		case 0:
		case 1:
			claim.MetricID = ids[0]
			claim.MetricLabel = strings.TrimSpace(label)
			claim.Heuristic = "label:" + ids[0]
		default:
			claim.MetricCandidates = ids
			claim.MetricLabel = strings.TrimSpace(label)
			claim.Heuristic = "ambiguous"
		}

		if entityID, ok := e.matcher.MatchEntity(window, mctx); ok {
			claim.EntityID = entityID
		}

		claim.PeriodLabel = findPeriodLabel(window)

		if claim.MetricID == "" && len(claim.MetricCandidates) == 0 && claim.EntityID == "" {
			claim.Heuristic = "bare_number"
		}

		claims = append(claims, claim)
	}

	return claims
}

var markupRe = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

// Plaintext strips HTML/markup fragments from a response, returning the
// visible text. Non-markup input passes through untouched; parse problems
// fall back to the original text rather than failing extraction.
func Plaintext(text string) string {
	if !markupRe.MatchString(text) {
		return text
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String()
}

var periodLabelRe = regexp.MustCompile(`(?i)\bQ[1-4]\s*(?:FY)?\s?\d{4}\b|\bFY\s?\d{4}\b|\b(?:19|20)\d{2}\b`)

// findPeriodLabel pulls the period surface form out of a label window:
// an explicit fiscal key if present, otherwise an implicit phrase like
// "this quarter" for the resolver to default.
func findPeriodLabel(window string) string {
	if m := periodLabelRe.FindString(window); m != "" {
		return m
	}
	lower := strings.ToLower(window)
	for _, phrase := range []string{"this quarter", "latest quarter", "most recent quarter", "this year", "most recent", "latest", "currently", "current"} {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}

func lastWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
