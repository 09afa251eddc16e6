package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artisanhub/craft-ai-bridge/dialogue"
	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/observe"
	"github.com/artisanhub/craft-ai-bridge/prompt"
	"github.com/artisanhub/craft-ai-bridge/schema"
	"github.com/artisanhub/craft-ai-bridge/tools"
	"github.com/artisanhub/craft-ai-bridge/types"
)

// Result is the successful outcome of one invocation. Output is the
// contract-conforming JSON document; it is consumed immediately by the
// action layer and not persisted.
type Result struct {
	Flow         Name            `json:"flow"`
	InvocationID string          `json:"invocationId"`
	Output       json.RawMessage `json:"output"`
}

// Runner executes registered flows against a text provider and,
// optionally, an image provider. Runners hold no per-invocation state;
// concurrent invocations are independent.
type Runner struct {
	text            llm.Provider
	image           llm.ImageProvider
	sink            observe.Sink
	maxOutputTokens int
	retryPolicy     dialogue.RetryPolicy
	maxToolRounds   int
	toolTimeout     time.Duration
}

type Option func(*Runner)

func WithImageProvider(p llm.ImageProvider) Option {
	return func(r *Runner) { r.image = p }
}

func WithSink(sink observe.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

func WithMaxOutputTokens(max int) Option {
	return func(r *Runner) {
		if max > 0 {
			r.maxOutputTokens = max
		}
	}
}

func WithRetryPolicy(policy dialogue.RetryPolicy) Option {
	return func(r *Runner) { r.retryPolicy = dialogue.NormalizeRetryPolicy(policy) }
}

func WithMaxToolRounds(max int) Option {
	return func(r *Runner) {
		if max > 0 {
			r.maxToolRounds = max
		}
	}
}

func WithToolTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout >= 0 {
			r.toolTimeout = timeout
		}
	}
}

func NewRunner(text llm.Provider, opts ...Option) (*Runner, error) {
	if text == nil {
		return nil, errors.New("text provider is required")
	}
	r := &Runner{
		text:        text,
		sink:        observe.NoopSink{},
		retryPolicy: dialogue.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.retryPolicy = dialogue.NormalizeRetryPolicy(r.retryPolicy)
	return r, nil
}

// Execute runs a flow on raw form values. A missing flow is a
// programmer error and returns a plain error; every input problem is a
// *flow.Error with KindValidation carrying per-field messages, before
// any provider call is attempted.
func (r *Runner) Execute(ctx context.Context, name Name, values map[string]string) (*Result, error) {
	def, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("flow %q is not registered", name)
	}
	record, fieldErrs := def.Contract.Validate(values)
	if fieldErrs != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Flow:    def.Name,
			Message: "Please correct the highlighted fields.",
			Fields:  fieldErrs,
		}
	}
	return r.run(ctx, def, record)
}

// Invoke runs a flow with model-supplied JSON arguments and returns the
// raw output document. It backs flow-bound tools; argument problems
// come back as plain errors so the dialogue loop can report them to the
// model as tool output.
func (r *Runner) Invoke(ctx context.Context, name Name, args json.RawMessage) (json.RawMessage, error) {
	def, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("flow %q is not registered", name)
	}
	record, err := def.Contract.ValidateArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := r.run(ctx, def, record)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

var _ tools.Invoker = (*Runner)(nil)

func (r *Runner) run(ctx context.Context, def *Definition, record schema.Record) (*Result, error) {
	invocationID := uuid.NewString()
	startedAt := time.Now().UTC()
	r.emit(ctx, observe.Event{
		Timestamp:    startedAt,
		InvocationID: invocationID,
		Flow:         def.Name,
		Kind:         observe.KindInvocation,
		Status:       observe.StatusStarted,
		Provider:     r.text.Name(),
	})

	tpl, ok := prompt.Resolve(def.Name)
	if !ok {
		return nil, fmt.Errorf("flow %q has no prompt template", def.Name)
	}
	rendered := tpl.Render(record)

	var (
		output json.RawMessage
		err    error
	)
	switch def.Kind {
	case KindImage:
		output, err = r.runImage(ctx, def, rendered, invocationID)
	case KindDialogue:
		output, err = r.runDialogue(ctx, def, rendered, invocationID)
	default:
		output, err = r.runText(ctx, def, rendered, invocationID)
	}

	if err != nil {
		flowErr := r.classify(def, err)
		r.emit(ctx, observe.Event{
			InvocationID: invocationID,
			Flow:         def.Name,
			Kind:         observe.KindInvocation,
			Status:       observe.StatusFailed,
			Provider:     r.text.Name(),
			Message:      string(flowErr.Kind),
			Error:        flowErr.Error(),
			DurationMs:   time.Since(startedAt).Milliseconds(),
		})
		return nil, flowErr
	}

	r.emit(ctx, observe.Event{
		InvocationID: invocationID,
		Flow:         def.Name,
		Kind:         observe.KindInvocation,
		Status:       observe.StatusCompleted,
		Provider:     r.text.Name(),
		DurationMs:   time.Since(startedAt).Milliseconds(),
	})
	return &Result{Flow: def.Name, InvocationID: invocationID, Output: output}, nil
}

func (r *Runner) runText(ctx context.Context, def *Definition, rendered, invocationID string) (json.RawMessage, error) {
	req := types.Request{
		Messages:        []types.Message{{Role: types.RoleUser, Content: rendered}},
		ResponseSchema:  def.Contract.Output,
		Safety:          def.Policy.Settings(),
		MaxOutputTokens: r.maxOutputTokens,
	}
	resp, err := r.generateWithRetry(ctx, def, invocationID, req)
	if err != nil {
		return nil, err
	}
	return normalizeText(def, resp.Message.Content)
}

func (r *Runner) runImage(ctx context.Context, def *Definition, rendered, invocationID string) (json.RawMessage, error) {
	if r.image == nil {
		return nil, fmt.Errorf("no image provider configured: %w", llm.ErrNotSupported)
	}
	startedAt := time.Now().UTC()
	media, err := r.image.GenerateImage(ctx, types.ImageRequest{
		Prompt: rendered,
		Safety: def.Policy.Settings(),
	})
	event := observe.Event{
		Timestamp:    startedAt,
		InvocationID: invocationID,
		Flow:         def.Name,
		Kind:         observe.KindProvider,
		Status:       observe.StatusCompleted,
		Provider:     r.text.Name(),
		DurationMs:   time.Since(startedAt).Milliseconds(),
	}
	if err != nil {
		event.Status = observe.StatusFailed
		event.Error = err.Error()
	}
	r.emit(ctx, event)
	if err != nil {
		return nil, err
	}
	return normalizeImage(def, media)
}

func (r *Runner) runDialogue(ctx context.Context, def *Definition, rendered, invocationID string) (json.RawMessage, error) {
	opts := []dialogue.Option{
		dialogue.WithSystemPrompt(def.SystemPrompt),
		dialogue.WithSafety(def.Policy.Settings()),
		dialogue.WithRetryPolicy(r.retryPolicy),
		dialogue.WithSink(r.sink),
		dialogue.WithToolTimeout(r.toolTimeout),
		dialogue.WithConversationID(invocationID),
	}
	if r.maxToolRounds > 0 {
		opts = append(opts, dialogue.WithMaxRounds(r.maxToolRounds))
	}
	for _, toolName := range def.Tools {
		bound, err := tools.BindFlow(r, toolName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dialogue.WithTool(bound))
	}
	loop, err := dialogue.New(r.text, opts...)
	if err != nil {
		return nil, err
	}
	answer, err := loop.Run(ctx, rendered)
	if err != nil {
		return nil, err
	}
	return normalizeDialogue(def, answer)
}

func (r *Runner) generateWithRetry(ctx context.Context, def *Definition, invocationID string, req types.Request) (types.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retryPolicy.MaxAttempts; attempt++ {
		startedAt := time.Now().UTC()
		resp, err := r.text.Generate(ctx, req)
		event := observe.Event{
			Timestamp:    startedAt,
			InvocationID: invocationID,
			Flow:         def.Name,
			Kind:         observe.KindProvider,
			Status:       observe.StatusCompleted,
			Provider:     r.text.Name(),
			DurationMs:   time.Since(startedAt).Milliseconds(),
		}
		if err != nil {
			event.Status = observe.StatusFailed
			event.Error = err.Error()
		}
		r.emit(ctx, event)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !dialogue.Retryable(err) || attempt == r.retryPolicy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return types.Response{}, ctx.Err()
		case <-time.After(r.retryPolicy.BaseBackoff):
		}
	}
	return types.Response{}, fmt.Errorf("provider %q generation failed: %w", r.text.Name(), lastErr)
}

// classify maps any failure onto the invocation error taxonomy. Errors
// already classified pass through untouched.
func (r *Runner) classify(def *Definition, err error) *Error {
	if flowErr, ok := AsError(err); ok {
		return flowErr
	}
	switch {
	case errors.Is(err, llm.ErrContentBlocked):
		return &Error{
			Kind:    KindContentBlocked,
			Flow:    def.Name,
			Message: "This request was declined by our content safety checks.",
			Err:     err,
		}
	case errors.Is(err, llm.ErrEmptyResponse):
		return &Error{
			Kind:    KindEmptyOutput,
			Flow:    def.Name,
			Message: def.EmptyMessage,
			Err:     err,
		}
	case errors.Is(err, dialogue.ErrMaxRounds):
		return &Error{
			Kind:    KindProviderUnavailable,
			Flow:    def.Name,
			Message: "We could not complete this request. Please try again.",
			Err:     err,
		}
	default:
		return &Error{
			Kind:    KindProviderUnavailable,
			Flow:    def.Name,
			Message: "The assistant is temporarily unavailable. Please try again in a moment.",
			Err:     err,
		}
	}
}

func (r *Runner) emit(ctx context.Context, event observe.Event) {
	if r == nil || r.sink == nil {
		return
	}
	_ = r.sink.Emit(ctx, event)
}
