// Package dialogue runs the tool-augmented conversational loop. The
// model is given a set of flow-backed tools and may request any number
// of tool calls before producing its final answer; each round of tool
// results is fed back in the order the calls were requested. The loop
// is bounded: a model that keeps requesting tools past the round limit
// fails closed instead of looping forever.
package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/observe"
	"github.com/artisanhub/craft-ai-bridge/tools"
	"github.com/artisanhub/craft-ai-bridge/types"
)

// ErrMaxRounds is returned when the model exhausts the tool-call round
// budget without producing a final answer.
var ErrMaxRounds = errors.New("max tool rounds reached without a final answer")

const defaultMaxRounds = 5

type Loop struct {
	provider       llm.Provider
	tools          map[string]tools.Tool
	system         string
	model          string
	safety         []types.SafetySetting
	maxRounds      int
	toolTimeout    time.Duration
	retryPolicy    RetryPolicy
	sink           observe.Sink
	conversationID string
}

type Option func(*Loop)

func WithSystemPrompt(system string) Option {
	return func(l *Loop) { l.system = system }
}

func WithModel(model string) Option {
	return func(l *Loop) { l.model = model }
}

func WithSafety(settings []types.SafetySetting) Option {
	return func(l *Loop) { l.safety = settings }
}

func WithMaxRounds(max int) Option {
	return func(l *Loop) {
		if max > 0 {
			l.maxRounds = max
		}
	}
}

func WithToolTimeout(timeout time.Duration) Option {
	return func(l *Loop) {
		if timeout >= 0 {
			l.toolTimeout = timeout
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(l *Loop) { l.retryPolicy = NormalizeRetryPolicy(policy) }
}

func WithTool(tool tools.Tool) Option {
	return func(l *Loop) {
		if tool == nil {
			return
		}
		def := tool.Definition()
		if def.Name == "" {
			return
		}
		l.tools[def.Name] = tool
	}
}

// WithConversationID correlates the loop's events with an enclosing
// invocation. A fresh ID is generated when unset.
func WithConversationID(id string) Option {
	return func(l *Loop) {
		if id != "" {
			l.conversationID = id
		}
	}
}

func WithSink(sink observe.Sink) Option {
	return func(l *Loop) {
		if sink != nil {
			l.sink = sink
		}
	}
}

func New(provider llm.Provider, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	l := &Loop{
		provider:    provider,
		tools:       map[string]tools.Tool{},
		maxRounds:   defaultMaxRounds,
		retryPolicy: DefaultRetryPolicy(),
		sink:        observe.NoopSink{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.retryPolicy = NormalizeRetryPolicy(l.retryPolicy)
	return l, nil
}

// Run drives the conversation to completion and returns the model's
// final answer text.
func (l *Loop) Run(ctx context.Context, input string) (string, error) {
	if input == "" {
		return "", errors.New("input is required")
	}
	conversationID := l.conversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	messages := []types.Message{
		{Role: types.RoleUser, Content: input},
	}

	for round := 0; round <= l.maxRounds; round++ {
		req := types.Request{
			Model:        l.model,
			SystemPrompt: l.system,
			Messages:     messages,
			Tools:        l.listToolDefinitions(),
			Safety:       l.safety,
		}

		resp, err := l.generateWithRetry(ctx, req)
		if err != nil {
			return "", err
		}

		modelMsg := resp.Message
		modelMsg.Role = types.RoleAssistant
		messages = append(messages, modelMsg)

		if len(modelMsg.ToolCalls) == 0 {
			if modelMsg.Content == "" {
				return "", fmt.Errorf("assistant turn was empty: %w", llm.ErrEmptyResponse)
			}
			return modelMsg.Content, nil
		}

		if round == l.maxRounds {
			break
		}

		// Results go back in the order the model requested the calls.
		for _, call := range modelMsg.ToolCalls {
			messages = append(messages, l.executeToolCall(ctx, conversationID, call))
		}
	}

	return "", fmt.Errorf("%w (limit %d)", ErrMaxRounds, l.maxRounds)
}

func (l *Loop) generateWithRetry(ctx context.Context, req types.Request) (types.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= l.retryPolicy.MaxAttempts; attempt++ {
		resp, err := l.provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !Retryable(err) || attempt == l.retryPolicy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return types.Response{}, ctx.Err()
		case <-time.After(l.retryPolicy.backoffForAttempt(attempt)):
		}
	}
	return types.Response{}, fmt.Errorf("provider %q generation failed: %w", l.provider.Name(), lastErr)
}

// Retryable reports whether a provider error is worth a second attempt.
// Safety blocks and empty outputs are deterministic for the same
// prompt, so retrying them only wastes quota.
func Retryable(err error) bool {
	if errors.Is(err, llm.ErrContentBlocked) || errors.Is(err, llm.ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func (l *Loop) listToolDefinitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(l.tools))
	for _, tool := range l.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// executeToolCall validates and dispatches one model-requested call. A
// request for a tool outside the bound set is not fatal: the rejection
// is reported back to the model as tool output and the conversation
// continues.
func (l *Loop) executeToolCall(ctx context.Context, conversationID string, call types.ToolCall) types.Message {
	startedAt := time.Now().UTC()

	tool, ok := l.tools[call.Name]
	var (
		payload any
		toolErr error
	)
	if !ok {
		toolErr = fmt.Errorf("tool %q is not available", call.Name)
		payload = map[string]any{"error": toolErr.Error()}
	} else {
		args := call.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}

		toolCtx := ctx
		cancel := func() {}
		if l.toolTimeout > 0 {
			toolCtx, cancel = context.WithTimeout(ctx, l.toolTimeout)
		}
		out, err := tool.Execute(toolCtx, args)
		cancel()
		if err != nil {
			toolErr = err
			payload = map[string]any{"error": err.Error()}
		} else {
			payload = out
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(fmt.Sprintf(`{"error":"failed to encode tool output","detail":%q}`, err.Error()))
	}

	event := observe.Event{
		Timestamp:    startedAt,
		InvocationID: conversationID,
		Kind:         observe.KindTool,
		Status:       observe.StatusCompleted,
		Provider:     l.provider.Name(),
		ToolName:     call.Name,
		DurationMs:   time.Since(startedAt).Milliseconds(),
	}
	if toolErr != nil {
		event.Status = observe.StatusFailed
		event.Error = toolErr.Error()
	}
	_ = l.sink.Emit(ctx, event)

	return types.Message{
		Role:       types.RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    string(encoded),
	}
}
