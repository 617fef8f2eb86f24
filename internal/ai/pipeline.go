package ai

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pipeline runs the model-backed recommendation flow and falls back to random picks when the model
// is unavailable or its call fails.
type Pipeline struct {
	completer Completer
	rngMu     sync.Mutex
	rng       *rand.Rand
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRand makes fallback sampling use the supplied source.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rng = rng
	}
}

// NewPipeline builds a pipeline around the completer. A nil completer puts the pipeline permanently
// in fallback mode.
func NewPipeline(completer Completer, opts ...Option) *Pipeline {
	p := &Pipeline{completer: completer}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelEnabled reports whether requests will reach the model.
func (p *Pipeline) ModelEnabled() bool {
	return p != nil && p.completer != nil && p.completer.Enabled()
}

// Recommend produces recommendations for the request. It never returns an error; the Outcome
// records which branch fired and why.
func (p *Pipeline) Recommend(ctx context.Context, req Request) Outcome {
	if !p.ModelEnabled() {
		return p.fallback(req, BranchFallbackUnavailable, ErrDisabled)
	}

	prompt, err := BuildPrompt(req.Preferences, req.History, req.Products)
	if err != nil {
		return p.fallback(req, BranchFallbackModelError, errors.Join(ErrModelCall, err))
	}

	reply, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		logrus.WithError(err).Warn("recommendation model call failed, serving fallback")
		return p.fallback(req, BranchFallbackModelError, err)
	}

	parsed, err := ParseResponse(reply)
	if err != nil {
		logrus.WithError(err).Warn("recommendation model reply unparseable")
		return Outcome{Result: newResult(nil), Branch: BranchParseFailed, Err: err}
	}

	if parsed.Skipped > 0 {
		logrus.WithField("skipped", parsed.Skipped).Debug("model reply contained non-object entries")
	}
	result, unmatched, browsed := Resolve(parsed, req.Products, req.History)
	for _, id := range unmatched {
		logrus.WithField("product_id", id).Debug("model recommended unknown product")
	}
	for _, id := range browsed {
		logrus.WithField("product_id", id).Debug("model recommended already browsed product")
	}
	return Outcome{Result: result, Branch: BranchModel, Unmatched: unmatched, Browsed: browsed}
}

func (p *Pipeline) fallback(req Request, branch Branch, cause error) Outcome {
	p.rngMu.Lock()
	result := Fallback(req.History, req.Products, p.rng)
	p.rngMu.Unlock()
	return Outcome{Result: result, Branch: branch, Err: cause}
}
