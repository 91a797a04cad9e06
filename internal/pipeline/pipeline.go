// Package pipeline wires the verification stages into the single entry
// point callers use: extract -> resolve -> score -> aggregate -> gate,
// with audit recording dispatched off the critical path.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/akranz/factgate/internal/audit"
	"github.com/akranz/factgate/internal/extract"
	"github.com/akranz/factgate/internal/gate"
	"github.com/akranz/factgate/internal/model"
	"github.com/akranz/factgate/internal/resolve"
	"github.com/akranz/factgate/internal/score"
)

// Verifier runs the full verification pipeline for one response at a time.
// Safe for concurrent use: per-request state lives on the stack, and the
// only shared mutable state is the gate's policy behind its own lock.
type Verifier struct {
	cfg       *model.Config
	extractor *extract.Extractor
	scorer    *score.Scorer
	gate      *gate.Gate
	recorder  *audit.Recorder
	sourceFor func(model.MetricContext) resolve.Source
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithSource overrides where ground-truth facts come from. The default
// checks against the request's own MetricContext.
func WithSource(f func(model.MetricContext) resolve.Source) Option {
	return func(v *Verifier) { v.sourceFor = f }
}

// WithRecorder injects a prebuilt audit recorder (used by tests).
func WithRecorder(r *audit.Recorder) Option {
	return func(v *Verifier) { v.recorder = r }
}

// NewVerifier validates the configuration and builds the pipeline.
// Config problems are fatal here, before any request is served. An
// unavailable audit store is not: audit is best-effort by contract.
func NewVerifier(cfg *model.Config, opts ...Option) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	g, err := gate.New(cfg.Verification)
	if err != nil {
		return nil, fmt.Errorf("policy gate: %w", err)
	}

	v := &Verifier{
		cfg:       cfg,
		extractor: extract.NewExtractor(cfg.Matcher),
		scorer:    score.NewScorer(cfg.Scoring),
		gate:      g,
		sourceFor: func(mctx model.MetricContext) resolve.Source {
			return resolve.NewContextSource(mctx)
		},
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.recorder == nil && cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit store unavailable, running without audit: %v\n", err)
		} else {
			v.recorder = audit.NewRecorder(store, cfg.Audit.QueueSize)
		}
	}

	return v, nil
}

// Gate exposes the policy gate, e.g. for reconfiguration in tests.
func (v *Verifier) Gate() *gate.Gate { return v.gate }

// Close flushes the audit recorder.
func (v *Verifier) Close() {
	if v.recorder != nil {
		v.recorder.Close()
	}
}

// Verify checks every numeric claim in the response against the context
// it was grounded on and returns the gated verdict. It does not fail on
// malformed responses; if verification itself cannot complete (cancelled
// context, internal panic) the gate fails closed and the error is
// reported alongside the fail-closed verdict.
func (v *Verifier) Verify(ctx context.Context, req model.VerifyRequest) (rv *model.ResponseVerification, err error) {
	rv = &model.ResponseVerification{
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	text := extract.Plaintext(req.ResponseText)

	// Verification must never take the response down with it
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verification pipeline: %v", r)
			rv.Results = nil
			rv.OverallConfidence = 0
			v.gate.FailClosed(rv, text)
		}
	}()

	if !v.cfg.Verification.Enabled {
		rv.OverallConfidence = 1.0
		rv.Verdict = model.VerdictShow
		rv.DisplayText = text
		return rv, nil
	}

	mctx := model.MetricContext{Entries: req.Context}
	claims := v.extractor.Extract(text, mctx)

	resolver := resolve.NewResolver(v.sourceFor(mctx), v.cfg.Resolver)
	resolutions := resolver.ResolveAll(ctx, claims, mctx)

	if ctxErr := ctx.Err(); ctxErr != nil {
		v.gate.FailClosed(rv, text)
		return rv, fmt.Errorf("verification cancelled: %w", ctxErr)
	}

	rv.Results = v.scorer.ScoreAll(claims, resolutions, mctx)
	rv.OverallConfidence = score.Aggregate(rv.Results)
	v.gate.Decide(rv, text)

	if v.recorder != nil {
		v.recorder.Record(*rv)
	}

	return rv, nil
}
