package extract

import (
	"testing"

	"github.com/akranz/factgate/internal/model"
)

func testMatcher() *LabelMatcher {
	return NewLabelMatcher(model.DefaultConfig().Matcher)
}

func contextWith(entries ...model.ContextEntry) model.MetricContext {
	return model.MetricContext{Entries: entries}
}

func TestMatchMetric_ExactLabel(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(model.ContextEntry{
		EntityID: "AAPL", MetricID: "revenue", MetricLabel: "Total Revenue",
	})

	ids := m.MatchMetric("Total Revenue", mctx)
	if len(ids) != 1 || ids[0] != "revenue" {
		t.Errorf("expected [revenue], got %v", ids)
	}
}

func TestMatchMetric_Synonym(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(model.ContextEntry{
		EntityID: "AAPL", MetricID: "net_income", MetricLabel: "Net Income",
	})

	ids := m.MatchMetric("the company's bottom line", mctx)
	if len(ids) != 1 || ids[0] != "net_income" {
		t.Errorf("expected synonym match on [net_income], got %v", ids)
	}
}

func TestMatchMetric_EditDistance(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(model.ContextEntry{
		EntityID: "AAPL", MetricID: "revenue", MetricLabel: "Total Revenue",
	})

	// One typo within the tolerance
	ids := m.MatchMetric("totl revenue", mctx)
	if len(ids) != 1 || ids[0] != "revenue" {
		t.Errorf("expected fuzzy match on [revenue], got %v", ids)
	}
}

func TestMatchMetric_NoMatch(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(model.ContextEntry{
		EntityID: "AAPL", MetricID: "revenue", MetricLabel: "Total Revenue",
	})

	if ids := m.MatchMetric("employee headcount", mctx); len(ids) != 0 {
		t.Errorf("expected no match, got %v", ids)
	}
}

func TestMatchMetric_AmbiguousReturnsAll(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(
		model.ContextEntry{EntityID: "AAPL", MetricID: "gross_margin", MetricLabel: "Gross Margin"},
		model.ContextEntry{EntityID: "AAPL", MetricID: "operating_margin", MetricLabel: "Operating Margin"},
	)

	// "margin" is contained in both labels
	ids := m.MatchMetric("margin", mctx)
	if len(ids) != 2 {
		t.Errorf("expected both margin metrics, got %v", ids)
	}
}

func TestMatchEntity_StripsCorporateSuffix(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(model.ContextEntry{
		EntityID: "AAPL", EntityName: "Apple Inc.", MetricID: "revenue", MetricLabel: "Total Revenue",
	})

	id, ok := m.MatchEntity("Apple reported strong results", mctx)
	if !ok || id != "AAPL" {
		t.Errorf("expected AAPL, got %q ok=%v", id, ok)
	}
}

func TestMatchEntity_AmbiguousYieldsNone(t *testing.T) {
	m := testMatcher()
	mctx := contextWith(
		model.ContextEntry{EntityID: "AAPL", EntityName: "Apple Inc.", MetricID: "revenue"},
		model.ContextEntry{EntityID: "MSFT", EntityName: "Microsoft Corp", MetricID: "revenue"},
	)

	// Window mentions both; matching must not guess
	if id, ok := m.MatchEntity("Apple and Microsoft both grew", mctx); ok {
		t.Errorf("expected no unique entity, got %q", id)
	}
}

func TestBoundedLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		max  int
		want int
	}{
		{"revenue", "revenue", 2, 0},
		{"revenue", "revenu", 2, 1},
		{"revenue", "revenues", 2, 1},
		{"revenue", "net income", 2, -1},
		{"eps", "fps", 1, 1},
	}
	for _, c := range cases {
		if got := boundedLevenshtein(c.a, c.b, c.max); got != c.want {
			t.Errorf("levenshtein(%q,%q,%d) = %d, want %d", c.a, c.b, c.max, got, c.want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel("  Apple's Total-Revenue (FY2024)! "); got != "apple s total revenue fy2024" {
		t.Errorf("unexpected normalization: %q", got)
	}
}
