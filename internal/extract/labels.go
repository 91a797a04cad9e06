package extract

import (
	"sort"
	"strings"
	"time"
	"unicode"

	gocache "github.com/patrickmn/go-cache"

	"github.com/akranz/factgate/internal/model"
)

// metricSynonyms maps canonical metric ids to surface forms the model is
// likely to use. Matching is deterministic: table lookup first, then a
// bounded edit-distance comparison, never an open-ended NLP step.
var metricSynonyms = map[string][]string{
	"revenue":          {"total revenue", "net sales", "sales", "top line", "turnover"},
	"net_income":       {"net income", "net profit", "profit", "earnings", "bottom line"},
	"eps":              {"earnings per share", "diluted eps", "eps"},
	"gross_margin":     {"gross margin", "gross profit margin"},
	"operating_margin": {"operating margin", "operating profit margin"},
	"operating_income": {"operating income", "income from operations"},
	"free_cash_flow":   {"free cash flow", "fcf"},
	"market_cap":       {"market cap", "market capitalization", "market value"},
	"gdp_growth":       {"gdp growth", "gross domestic product growth", "gdp growth rate"},
	"cpi":              {"cpi", "consumer price index", "inflation", "inflation rate"},
	"unemployment":     {"unemployment rate", "unemployment", "jobless rate"},
	"fed_funds_rate":   {"fed funds rate", "federal funds rate", "policy rate"},
}

// matchConfidence ranks how a candidate phrase matched a label
type matchConfidence int

const (
	matchNone matchConfidence = iota
	matchFuzzy
	matchContains
	matchExact
)

// LabelMatcher matches free-text label phrases against the metric labels
// and entity names present in a request's context. Match results for
// recurring phrases are memoized across requests.
type LabelMatcher struct {
	maxDist int
	cache   *gocache.Cache
}

// NewLabelMatcher creates a matcher with the configured edit-distance
// tolerance and memo TTL.
func NewLabelMatcher(cfg model.MatcherConfig) *LabelMatcher {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LabelMatcher{
		maxDist: cfg.MaxEditDistance,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// MatchMetric returns the metric ids whose labels best match the phrase,
// best matches only. One element means an unambiguous match; more than one
// means the resolver must break the tie; empty means no match.
func (m *LabelMatcher) MatchMetric(phrase string, mctx model.MetricContext) []string {
	norm := normalizeLabel(phrase)
	if norm == "" {
		return nil
	}

	key := "metric|" + norm + "|" + contextSignature(mctx)
	if cached, found := m.cache.Get(key); found {
		return cached.([]string)
	}

	best := matchNone
	var ids []string
	seen := make(map[string]bool)
	for _, entry := range mctx.Entries {
		if seen[entry.MetricID] {
			continue
		}
		seen[entry.MetricID] = true

		conf := m.matchAgainst(norm, metricCandidates(entry))
		if conf == matchNone || conf < best {
			continue
		}
		if conf > best {
			best = conf
			ids = ids[:0]
		}
		ids = append(ids, entry.MetricID)
	}

	sort.Strings(ids)
	m.cache.Set(key, ids, gocache.DefaultExpiration)
	return ids
}

// MatchEntity matches a phrase against entity names in context.
func (m *LabelMatcher) MatchEntity(phrase string, mctx model.MetricContext) (string, bool) {
	norm := normalizeLabel(phrase)
	if norm == "" {
		return "", false
	}

	key := "entity|" + norm + "|" + contextSignature(mctx)
	if cached, found := m.cache.Get(key); found {
		id := cached.(string)
		return id, id != ""
	}

	best := matchNone
	matched := ""
	ambiguous := false
	seen := make(map[string]bool)
	for _, entry := range mctx.Entries {
		if seen[entry.EntityID] {
			continue
		}
		seen[entry.EntityID] = true

		conf := m.matchAgainst(norm, entityCandidates(entry))
		if conf == matchNone || conf < best {
			continue
		}
		if conf > best {
			best = conf
			matched = entry.EntityID
			ambiguous = false
		} else if entry.EntityID != matched {
			ambiguous = true
		}
	}

	if ambiguous {
		matched = ""
	}
	m.cache.Set(key, matched, gocache.DefaultExpiration)
	return matched, matched != ""
}

func (m *LabelMatcher) matchAgainst(norm string, candidates []string) matchConfidence {
	best := matchNone
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		switch {
		case norm == cand:
			return matchExact
		case strings.Contains(norm, cand) || strings.Contains(cand, norm):
			if best < matchContains {
				best = matchContains
			}
		case m.maxDist > 0 && boundedLevenshtein(norm, cand, m.maxDist) >= 0:
			if best < matchFuzzy {
				best = matchFuzzy
			}
		}
	}
	return best
}

func metricCandidates(entry model.ContextEntry) []string {
	cands := []string{
		normalizeLabel(entry.MetricLabel),
		normalizeLabel(strings.ReplaceAll(entry.MetricID, "_", " ")),
	}
	for _, syn := range metricSynonyms[entry.MetricID] {
		cands = append(cands, normalizeLabel(syn))
	}
	return cands
}

func entityCandidates(entry model.ContextEntry) []string {
	cands := []string{
		normalizeLabel(entry.EntityName),
		normalizeLabel(entry.EntityID),
	}
	// "Apple Inc." should also match plain "Apple"
	if name := normalizeLabel(entry.EntityName); name != "" {
		for _, stop := range []string{" inc", " corp", " corporation", " ltd", " plc", " co"} {
			if strings.HasSuffix(name, stop) {
				cands = append(cands, strings.TrimSuffix(name, stop))
			}
		}
	}
	return cands
}

// normalizeLabel lowercases, strips punctuation and collapses whitespace.
func normalizeLabel(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// contextSignature keys the memo cache so matches against one request's
// context never leak into another's.
func contextSignature(mctx model.MetricContext) string {
	ids := make([]string, 0, len(mctx.Entries))
	seen := make(map[string]bool)
	for _, e := range mctx.Entries {
		k := e.EntityID + ":" + e.MetricID
		if !seen[k] {
			seen[k] = true
			ids = append(ids, k)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// boundedLevenshtein returns the edit distance between a and b if it is at
// most max, or -1 otherwise. Early exit keeps it cheap on long phrases.
func boundedLevenshtein(a, b string, max int) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb)-len(ra) > max {
		return -1
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		rowMin := curr[0]
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min3(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
			if curr[i] < rowMin {
				rowMin = curr[i]
			}
		}
		if rowMin > max {
			return -1
		}
		prev, curr = curr, prev
	}

	if prev[len(ra)] > max {
		return -1
	}
	return prev[len(ra)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
