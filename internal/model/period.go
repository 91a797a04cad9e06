package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Period is a normalized fiscal period key. Quarter 0 means a full fiscal
// year; a full year sorts above its own Q4 so "most recent" prefers the
// annual figure when both are present.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter,omitempty"` // 1-4, or 0 for full year
}

var (
	fyPattern      = regexp.MustCompile(`(?i)\bFY\s?(\d{4})\b`)
	quarterPattern = regexp.MustCompile(`(?i)\bQ([1-4])\s*(?:FY)?\s?(\d{4})\b`)
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Implicit period phrases resolve to "most recent in context" downstream.
var implicitPhrases = []string{
	"this quarter", "latest quarter", "most recent quarter",
	"this year", "latest", "most recent", "currently", "current",
}

// ParsePeriod normalizes a surface period label to a fiscal key.
// Returns false for empty or implicit labels ("this quarter"), which the
// resolver handles by defaulting to the most recent period in context.
func ParsePeriod(label string) (Period, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Period{}, false
	}

	if m := quarterPattern.FindStringSubmatch(label); m != nil {
		q, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return Period{Year: y, Quarter: q}, true
	}

	if m := fyPattern.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		return Period{Year: y}, true
	}

	if m := yearPattern.FindString(label); m != "" {
		y, _ := strconv.Atoi(m)
		return Period{Year: y}, true
	}

	return Period{}, false
}

// IsImplicit reports whether the label defers to the most recent period.
func IsImplicitPeriod(label string) bool {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return true
	}
	for _, phrase := range implicitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Key returns the canonical string form, e.g. "FY2024" or "Q3FY2024".
func (p Period) Key() string {
	if p.Quarter == 0 {
		return fmt.Sprintf("FY%d", p.Year)
	}
	return fmt.Sprintf("Q%dFY%d", p.Quarter, p.Year)
}

// SortKey orders periods chronologically. Annual figures rank above the
// quarters of the same year.
func (p Period) SortKey() int {
	q := p.Quarter
	if q == 0 {
		q = 5
	}
	return p.Year*10 + q
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0
}
