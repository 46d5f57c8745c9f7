package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Responses the router writes itself.
const (
	UnrecognizedResponse = "Unrecognized command. Please try again."
	DefaultResponse      = "Processed"
)

// Outcome tells apart the ways a pass can end. The user-visible Response for
// Ignored and Unrecognized is governed by the gate and dispatch rules; the
// outcome lets callers distinguish them anyway.
type Outcome int

const (
	OutcomeIgnored      Outcome = iota // wake word absent
	OutcomeSuppressed                  // addressed, but asked to be ignored
	OutcomeUnrecognized                // active, classifier returned Unknown
	OutcomeHandled                     // exactly one handler ran
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeUnrecognized:
		return "unrecognized"
	case OutcomeHandled:
		return "handled"
	}
	return "outcome(?)"
}

// Result describes one completed pass.
type Result struct {
	Outcome Outcome
	Intent  Intent
	Scores  Scores
}

// Options configures a Router.
type Options struct {
	WakeWord      string
	SuppressTerms []string
	Threshold     float64
	KeywordBonus  float64
	// Timeout bounds classification plus the handler call. Zero disables it.
	Timeout time.Duration
}

// Router runs the gate, classifier and dispatch table for one state at a
// time. It holds no per-pass state, so concurrent Run calls on distinct
// states are independent.
type Router struct {
	gate       *Gate
	classifier *Classifier
	handlers   Handlers
	timeout    time.Duration
	logger     *zap.Logger
}

// New wires a router. Every handler slot must be filled.
func New(opts Options, model TextClassifier, handlers Handlers, logger *zap.Logger) (*Router, error) {
	if model == nil {
		return nil, fmt.Errorf("router: text classifier is required")
	}
	if err := handlers.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		gate:       NewGate(opts.WakeWord, opts.SuppressTerms),
		classifier: NewClassifier(model, opts.WakeWord, opts.Threshold, opts.KeywordBonus),
		handlers:   handlers,
		timeout:    opts.Timeout,
		logger:     logger.Named("router"),
	}, nil
}

// Gate exposes the activation gate.
func (r *Router) Gate() *Gate { return r.gate }

// Run routes s through gate, classifier and at most one handler. The only
// error it returns is a classifier failure; handler failures surface as
// Response text.
func (r *Router) Run(ctx context.Context, s *CommandState) (Result, error) {
	r.logger.Info("received input", zap.String("input", s.input))

	if !r.gate.Apply(s) {
		s.phase = PhaseTerminated
		if s.Response == SuppressedResponse {
			r.logger.Info("ignoring command")
			return Result{Outcome: OutcomeSuppressed}, nil
		}
		r.logger.Debug("wake word absent, ending flow")
		return Result{Outcome: OutcomeIgnored}, nil
	}
	r.logger.Info("activated")

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	intent, scores, err := r.classifier.Classify(ctx, s.input)
	if err != nil {
		s.phase = PhaseTerminated
		r.logger.Error("classification failed", zap.Error(err))
		return Result{Outcome: OutcomeUnrecognized, Intent: Unknown}, err
	}
	r.logger.Info("detected intent", zap.Stringer("intent", intent), zap.Any("scores", scoreFields(scores)))

	h, ok := r.handlers.Dispatch(intent)
	if !ok {
		if s.Response == "" {
			s.Response = UnrecognizedResponse
		}
		s.phase = PhaseTerminated
		return Result{Outcome: OutcomeUnrecognized, Intent: intent, Scores: scores}, nil
	}

	s.phase = PhaseRouted
	r.invoke(ctx, intent, h, s)
	s.phase = PhaseTerminated
	return Result{Outcome: OutcomeHandled, Intent: intent, Scores: scores}, nil
}

func (r *Router) invoke(ctx context.Context, intent Intent, h Handler, s *CommandState) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panicked", zap.Stringer("intent", intent), zap.Any("panic", p))
			s.Response = fmt.Sprintf("Error: %s handler failed: %v", intent, p)
		}
	}()

	h.Handle(ctx, s)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("handler exceeded deadline", zap.Stringer("intent", intent), zap.Duration("timeout", r.timeout))
		s.Response = fmt.Sprintf("Error: %s command timed out after %s.", intent, r.timeout)
		return
	}
	if s.Response == "" {
		r.logger.Warn("handler left response empty", zap.Stringer("intent", intent))
		s.Response = DefaultResponse
	}
	r.logger.Info("handler finished",
		zap.Stringer("intent", intent),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("response", s.Response),
	)
}

func scoreFields(s Scores) map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k.String()] = v
	}
	return out
}
