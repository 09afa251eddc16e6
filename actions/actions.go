// Package actions adapts flow results into the envelope the dashboard
// consumes. Every outcome, success or failure, becomes a State with a
// safe user-facing message; raw provider errors stop here.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/artisanhub/craft-ai-bridge/flow"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the uniform response envelope. Errors carries per-field
// validation messages keyed by field name; Message is always safe to
// show to an end user.
type State struct {
	Status  Status              `json:"status"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Executor runs a named flow against validated form values.
type Executor interface {
	Execute(ctx context.Context, name flow.Name, values map[string]string) (*flow.Result, error)
}

type Adapter struct {
	executor Executor
	logger   *zap.Logger
	timeout  time.Duration
}

type Option func(*Adapter)

// WithTimeout bounds each invocation end to end. Zero disables the
// deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) { a.timeout = timeout }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAdapter(executor Executor, opts ...Option) *Adapter {
	a := &Adapter{
		executor: executor,
		logger:   zap.NewNop(),
		timeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the named flow and folds the outcome into a State. A
// deadline overrun is reported as temporary unavailability.
func (a *Adapter) Run(ctx context.Context, name flow.Name, values map[string]string) State {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	result, err := a.executor.Execute(ctx, name, values)
	if err != nil {
		return a.failure(name, err, time.Since(startedAt))
	}

	a.logger.Info("flow completed",
		zap.String("flow", string(name)),
		zap.String("invocation_id", result.InvocationID),
		zap.Duration("duration", time.Since(startedAt)),
	)
	return State{Status: StatusSuccess, Data: result.Output}
}

func (a *Adapter) failure(name flow.Name, err error, elapsed time.Duration) State {
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("flow timed out",
			zap.String("flow", string(name)),
			zap.Duration("duration", elapsed),
		)
		return State{
			Status:  StatusError,
			Message: "The assistant is temporarily unavailable. Please try again in a moment.",
		}
	}

	flowErr, ok := flow.AsError(err)
	if !ok {
		a.logger.Error("flow failed",
			zap.String("flow", string(name)),
			zap.Error(err),
		)
		return State{
			Status:  StatusError,
			Message: "Something went wrong. Please try again.",
		}
	}

	switch flowErr.Kind {
	case flow.KindValidation:
		a.logger.Info("flow input rejected",
			zap.String("flow", string(name)),
			zap.Int("fields", len(flowErr.Fields)),
		)
	default:
		a.logger.Warn("flow failed",
			zap.String("flow", string(name)),
			zap.String("kind", string(flowErr.Kind)),
			zap.Error(err),
		)
	}

	state := State{Status: StatusError, Message: flowErr.Message}
	if len(flowErr.Fields) > 0 {
		state.Errors = flowErr.Fields
	}
	return state
}
