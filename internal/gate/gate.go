package gate

import (
	"fmt"
	"sync"

	"github.com/akranz/factgate/internal/model"
)

// RejectionMessage is the fixed text returned in place of a rejected
// response. Static and templated on purpose: a rejection can never itself
// be hallucinated.
const RejectionMessage = "I couldn't verify the figures in this answer against the source data. " +
	"Please rephrase the question or narrow its scope (one company or one metric at a time helps)."

// UnavailableAnnotation is attached when verification itself failed and
// permissive mode shows the response anyway.
const UnavailableAnnotation = "verification unavailable: the figures in this answer were not checked"

// Policy is the immutable gate configuration snapshot. Built once at
// process start from validated config; requests read it by value.
type Policy struct {
	Enabled       bool
	Strict        bool
	MinConfidence float64
	WarnBelow     float64
	AutoCorrect   bool
}

func policyFromConfig(cfg model.VerificationConfig) Policy {
	return Policy{
		Enabled:       cfg.Enabled,
		Strict:        cfg.StrictMode,
		MinConfidence: cfg.MinConfidence,
		WarnBelow:     cfg.WarnBelow,
		AutoCorrect:   cfg.AutoCorrect,
	}
}

func (p Policy) validate() error {
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min confidence threshold out of range: %v", p.MinConfidence)
	}
	if p.WarnBelow < 0 || p.WarnBelow > 1 {
		return fmt.Errorf("warn threshold out of range: %v", p.WarnBelow)
	}
	return nil
}

// Gate applies the configured policy to a scored verification. Stateless
// per request; the only shared state is the policy itself, swapped only
// through the serialized Reconfigure hook.
type Gate struct {
	mu     sync.RWMutex
	policy Policy
}

// New builds a gate. Misconfiguration is fatal here, at startup, never at
// request time.
func New(cfg model.VerificationConfig) (*Gate, error) {
	p := policyFromConfig(cfg)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Gate{policy: p}, nil
}

// Policy returns the current policy snapshot.
func (g *Gate) Policy() Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// Reconfigure atomically replaces the policy. Exists for tests and
// explicit hot reload; rejects invalid policies the same way New does.
func (g *Gate) Reconfigure(cfg model.VerificationConfig) error {
	p := policyFromConfig(cfg)
	if err := p.validate(); err != nil {
		return err
	}
	g.mu.Lock()
	g.policy = p
	g.mu.Unlock()
	return nil
}

// Decide fills the verdict, annotations and display text on a scored
// verification. The verdict is a pure function of the overall confidence,
// the operating mode and whether any result is WRONG_CATEGORY.
func (g *Gate) Decide(rv *model.ResponseVerification, responseText string) {
	p := g.Policy()

	wrongCategory := rv.HasWrongCategory()
	rv.Annotations = annotate(p, rv)

	if p.Strict && (rv.OverallConfidence < p.MinConfidence || wrongCategory) {
		rv.Verdict = model.VerdictReject
		rv.DisplayText = RejectionMessage
		return
	}

	rv.Verdict = model.VerdictShow
	rv.DisplayText = responseText
	if p.AutoCorrect {
		rv.DisplayText = autoCorrect(responseText, rv.Results)
	}
}

// FailClosed produces the decision for a verification that could not even
// be computed: strict mode rejects, permissive mode shows the response
// carrying an explicit warning. Unverified content never passes silently
// under strict mode.
func (g *Gate) FailClosed(rv *model.ResponseVerification, responseText string) {
	p := g.Policy()

	if p.Strict {
		rv.Verdict = model.VerdictReject
		rv.DisplayText = RejectionMessage
		rv.Annotations = nil
		return
	}

	rv.Verdict = model.VerdictShow
	rv.DisplayText = responseText
	rv.Annotations = []string{UnavailableAnnotation}
}

// annotate builds the human-readable warning strings rendered alongside a
// shown response. Safe to display directly; never raw model text.
func annotate(p Policy, rv *model.ResponseVerification) []string {
	var notes []string

	for _, r := range rv.Results {
		switch r.Classification {
		case model.ClassWrongCategory:
			notes = append(notes, fmt.Sprintf(
				"the figure %q does not match the type of the source value (unit or scale confusion)", r.Claim.Raw))
		case model.ClassGrossMismatch:
			if r.DeviationRatio != nil {
				notes = append(notes, fmt.Sprintf(
					"the figure %q deviates %.0f%% from the source value", r.Claim.Raw, *r.DeviationRatio*100))
			} else {
				notes = append(notes, fmt.Sprintf("the figure %q deviates sharply from the source value", r.Claim.Raw))
			}
		}
		if r.DefaultedPeriod && r.Fact != nil {
			notes = append(notes, fmt.Sprintf(
				"the figure %q was checked against the most recent period on record (%s)", r.Claim.Raw, r.Fact.Period.Key()))
		}
	}

	if !p.Strict && rv.OverallConfidence < p.WarnBelow && len(rv.Results) > 0 {
		notes = append(notes, fmt.Sprintf(
			"confidence in the figures of this answer is %.0f%%", rv.OverallConfidence*100))
	}

	return notes
}
