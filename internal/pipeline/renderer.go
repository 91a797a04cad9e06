package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/akranz/factgate/internal/model"
)

// Renderer writes verification results as JSON, Markdown or a terminal
// summary.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full verification as indented JSON.
func (r *Renderer) RenderJSON(rv *model.ResponseVerification, path string) error {
	data, err := json.MarshalIndent(rv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes a human-readable report.
func (r *Renderer) RenderMarkdown(rv *model.ResponseVerification, path string) error {
	var b strings.Builder

	b.WriteString("# Verification Report\n\n")
	fmt.Fprintf(&b, "- Request: `%s`\n", rv.RequestID)
	fmt.Fprintf(&b, "- Verdict: **%s**\n", rv.Verdict)
	fmt.Fprintf(&b, "- Confidence: %.2f\n", rv.OverallConfidence)
	fmt.Fprintf(&b, "- Checked: %s\n\n", rv.CreatedAt.Format("2006-01-02 15:04:05 UTC"))

	if len(rv.Results) == 0 {
		b.WriteString("No numeric claims found; a purely qualitative answer cannot be numerically wrong.\n")
	} else {
		b.WriteString("| # | Claimed | Entity | Metric | Period | Canonical | Deviation | Classification |\n")
		b.WriteString("|---|---------|--------|--------|--------|-----------|-----------|----------------|\n")
		for _, res := range rv.Results {
			entity, metric, period, canonical := "-", "-", "-", "-"
			if res.Fact != nil {
				entity = res.Fact.EntityID
				metric = res.Fact.MetricID
				period = res.Fact.Period.Key()
				if res.DefaultedPeriod {
					period += " (defaulted)"
				}
				canonical = fmt.Sprintf("%g %s", res.Fact.BaseValue(), res.Fact.Unit)
			}
			deviation := "-"
			if res.DeviationRatio != nil {
				deviation = fmt.Sprintf("%.2f%%", *res.DeviationRatio*100)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
				res.Claim.Index, res.Claim.Raw, entity, metric, period, canonical, deviation, res.Classification)
		}
	}

	if len(rv.Annotations) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, a := range rv.Annotations {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	if r.includeFooter {
		b.WriteString("\n---\nGenerated by factgate. Verdicts reflect agreement with the supplied source records, not truth.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a short result summary to stdout.
func (r *Renderer) RenderSummary(rv *model.ResponseVerification) {
	fmt.Printf("Verdict:    %s\n", rv.Verdict)
	fmt.Printf("Confidence: %.2f\n", rv.OverallConfidence)
	fmt.Printf("Claims:     %d\n", len(rv.Results))

	counts := rv.CountByClass()
	for _, class := range []model.Classification{
		model.ClassExact, model.ClassWithinTolerance, model.ClassMinorDeviation,
		model.ClassGrossMismatch, model.ClassWrongCategory, model.ClassUnverifiable,
	} {
		if n := counts[class]; n > 0 {
			fmt.Printf("  %-17s %d\n", class, n)
		}
	}

	for _, a := range rv.Annotations {
		fmt.Printf("Warning: %s\n", a)
	}
}
