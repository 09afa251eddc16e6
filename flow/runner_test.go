package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/artisanhub/craft-ai-bridge/dialogue"
	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/observe"
	"github.com/artisanhub/craft-ai-bridge/types"
)

type scriptedProvider struct {
	responses []types.Response
	errs      []error
	calls     int
	requests  []types.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Capabilities() llm.Capabilities {
	return llm.Capabilities{Tools: true, StructuredOutput: true}
}

func (p *scriptedProvider) Generate(ctx context.Context, req types.Request) (types.Response, error) {
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return types.Response{}, p.errs[i]
	}
	if i >= len(p.responses) {
		return types.Response{}, fmt.Errorf("no scripted response for call %d", i)
	}
	return p.responses[i], nil
}

func text(content string) types.Response {
	return types.Response{Message: types.Message{Role: types.RoleAssistant, Content: content}}
}

type scriptedImageProvider struct {
	media types.Media
	err   error
	calls int
}

func (p *scriptedImageProvider) GenerateImage(ctx context.Context, req types.ImageRequest) (types.Media, error) {
	p.calls++
	return p.media, p.err
}

func newTestRunner(t *testing.T, provider llm.Provider, opts ...Option) *Runner {
	t.Helper()
	RegisterBuiltins()
	opts = append(opts, WithRetryPolicy(dialogue.RetryPolicy{
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	}))
	r, err := NewRunner(provider, opts...)
	if err != nil {
		t.Fatalf("failed to build runner: %v", err)
	}
	return r
}

func TestRunner_Execute_ValidationShortCircuits(t *testing.T) {
	provider := &scriptedProvider{}
	r := newTestRunner(t, provider)

	_, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "short",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindValidation {
		t.Errorf("Kind = %q, want validation", flowErr.Kind)
	}
	if len(flowErr.Fields["feedback"]) == 0 {
		t.Error("expected a field error for feedback")
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times on invalid input, want 0", provider.calls)
	}
}

func TestRunner_Execute_UnregisteredFlowIsPlainError(t *testing.T) {
	r := newTestRunner(t, &scriptedProvider{})
	_, err := r.Execute(context.Background(), "noSuchFlow", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := AsError(err); ok {
		t.Error("unregistered flow should not produce a classified error")
	}
}

func TestRunner_Execute_AnalyzeFeedback(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		text("```json\n{\"category\":\"Praise\",\"summary\":\"Customer loves the mug.\",\"sentiment\":\"Positive\"}\n```"),
	}}
	r := newTestRunner(t, provider)

	result, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "This mug is the best thing I have ever bought, thank you!",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var analysis FeedbackAnalysis
	if err := json.Unmarshal(result.Output, &analysis); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if analysis.Category != "Praise" || analysis.Sentiment != "Positive" {
		t.Errorf("analysis = %+v", analysis)
	}
	if result.InvocationID == "" {
		t.Error("missing invocation ID")
	}

	req := provider.requests[0]
	if len(req.ResponseSchema) == 0 {
		t.Error("request carries no response schema")
	}
	if len(req.Safety) == 0 {
		t.Error("request carries no safety settings")
	}
	if !strings.Contains(req.Messages[0].Content, "best thing I have ever bought") {
		t.Error("feedback not interpolated into prompt")
	}
}

func TestRunner_Execute_SuggestPrice(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		text(`{"suggestedPriceRange":{"min":20,"max":35},"reasoning":"Comparable mugs sell in this band."}`),
	}}
	r := newTestRunner(t, provider)

	result, err := r.Execute(context.Background(), SuggestPrice, map[string]string{
		"productName":        "Ash-glazed mug",
		"productDescription": "Hand-thrown stoneware mug with a wood-ash glaze.",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var suggestion PriceSuggestion
	if err := json.Unmarshal(result.Output, &suggestion); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if suggestion.SuggestedPriceRange.Min != 20 || suggestion.SuggestedPriceRange.Max != 35 {
		t.Errorf("range = %+v", suggestion.SuggestedPriceRange)
	}
}

func TestRunner_Execute_EmptyModelOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{text("")}}
	r := newTestRunner(t, provider)

	_, err := r.Execute(context.Background(), RefineProductStory, map[string]string{
		"voiceInput": "I started making these after my grandmother taught me to weave.",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindEmptyOutput {
		t.Errorf("Kind = %q, want empty_output", flowErr.Kind)
	}
	if flowErr.Message == "" {
		t.Error("empty-output failure must carry a user-facing message")
	}
}

func TestRunner_Execute_SchemaMismatchIsEmptyOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		text(`{"unexpected":"shape"}`),
	}}
	r := newTestRunner(t, provider)

	_, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "The packaging was lovely and the scarf is beautiful.",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindEmptyOutput {
		t.Errorf("Kind = %q, want empty_output", flowErr.Kind)
	}
}

func TestRunner_Execute_ContentBlocked(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{fmt.Errorf("blocked: %w", llm.ErrContentBlocked)},
	}
	r := newTestRunner(t, provider)

	_, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "Feedback text long enough to pass validation.",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindContentBlocked {
		t.Errorf("Kind = %q, want content_blocked", flowErr.Kind)
	}
	if provider.calls != 1 {
		t.Errorf("content block retried: %d calls", provider.calls)
	}
}

func TestRunner_Execute_UnavailableRetriesOnce(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("upstream 503"), errors.New("upstream 503")},
	}
	r := newTestRunner(t, provider)

	_, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "Feedback text long enough to pass validation.",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindProviderUnavailable {
		t.Errorf("Kind = %q, want provider_unavailable", flowErr.Kind)
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2 (one retry)", provider.calls)
	}
}

func TestRunner_Execute_ImageWithoutProvider(t *testing.T) {
	r := newTestRunner(t, &scriptedProvider{})
	_, err := r.Execute(context.Background(), GenerateProductImage, map[string]string{
		"description": "a walnut serving board",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindProviderUnavailable {
		t.Errorf("Kind = %q, want provider_unavailable", flowErr.Kind)
	}
}

func TestRunner_Execute_ImageSuccess(t *testing.T) {
	images := &scriptedImageProvider{media: types.Media{
		MIMEType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	}}
	r := newTestRunner(t, &scriptedProvider{}, WithImageProvider(images))

	result, err := r.Execute(context.Background(), GenerateProductImage, map[string]string{
		"description": "a walnut serving board",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var img ProductImage
	if err := json.Unmarshal(result.Output, &img); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !strings.HasPrefix(img.ImageDataURI, "data:image/png;base64,") {
		t.Errorf("ImageDataURI = %q", img.ImageDataURI)
	}
	if images.calls != 1 {
		t.Errorf("image provider called %d times, want 1", images.calls)
	}
}

func TestRunner_Execute_ImageMissingMedia(t *testing.T) {
	images := &scriptedImageProvider{media: types.Media{}}
	r := newTestRunner(t, &scriptedProvider{}, WithImageProvider(images))

	_, err := r.Execute(context.Background(), GenerateProductImage, map[string]string{
		"description": "a walnut serving board",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindEmptyOutput {
		t.Errorf("Kind = %q, want empty_output", flowErr.Kind)
	}
}

func TestRunner_Execute_AnswerQueryUsesPricingTool(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		// Round 0: the assistant consults the pricing flow.
		{Message: types.Message{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:        "call-1",
				Name:      SuggestPrice,
				Arguments: json.RawMessage(`{"productName":"Ash-glazed mug","productDescription":"Hand-thrown stoneware mug with a wood-ash glaze."}`),
			}},
		}},
		// Nested suggestPrice invocation.
		text(`{"suggestedPriceRange":{"min":20,"max":35},"reasoning":"Comparable handmade mugs."}`),
		// Final answer.
		text("Price it between 20 and 35; comparable handmade mugs sell in that band."),
	}}
	r := newTestRunner(t, provider)

	result, err := r.Execute(context.Background(), AnswerQuery, map[string]string{
		"query": "What should I charge for my ash-glazed mug?",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var answer QueryAnswer
	if err := json.Unmarshal(result.Output, &answer); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !strings.Contains(answer.Answer, "20") {
		t.Errorf("answer = %q", answer.Answer)
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}

	// The dialogue turn advertises the bound tools.
	first := provider.requests[0]
	if len(first.Tools) != 2 {
		t.Errorf("dialogue request advertises %d tools, want 2", len(first.Tools))
	}
	if first.SystemPrompt == "" {
		t.Error("dialogue request has no system prompt")
	}
}

func TestRunner_Execute_AnswerQueryBadToolArgsAreReported(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		// Missing required fields: the pricing contract rejects this.
		{Message: types.Message{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:        "call-1",
				Name:      SuggestPrice,
				Arguments: json.RawMessage(`{"productName":"Mug"}`),
			}},
		}},
		text("I need a product description to estimate a price."),
	}}
	r := newTestRunner(t, provider)

	result, err := r.Execute(context.Background(), AnswerQuery, map[string]string{
		"query": "What should I charge?",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Rejection went back to the model as tool output.
	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != types.RoleTool {
		t.Fatalf("last message role = %q, want tool", last.Role)
	}
	if !strings.Contains(last.Content, "error") {
		t.Errorf("tool rejection not surfaced: %q", last.Content)
	}

	var answer QueryAnswer
	if err := json.Unmarshal(result.Output, &answer); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestRunner_Execute_AnswerQueryFailsClosedAtRoundLimit(t *testing.T) {
	responses := make([]types.Response, 0, 6)
	for i := 0; i < 6; i++ {
		responses = append(responses, types.Response{Message: types.Message{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:        fmt.Sprintf("call-%d", i),
				Name:      "unknownTool",
				Arguments: json.RawMessage(`{}`),
			}},
		}})
	}
	provider := &scriptedProvider{responses: responses}
	r := newTestRunner(t, provider, WithMaxToolRounds(2))

	_, err := r.Execute(context.Background(), AnswerQuery, map[string]string{
		"query": "Keep calling tools forever.",
	})
	flowErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *flow.Error, got %v", err)
	}
	if flowErr.Kind != KindProviderUnavailable {
		t.Errorf("Kind = %q, want provider_unavailable", flowErr.Kind)
	}
	if !errors.Is(err, dialogue.ErrMaxRounds) {
		t.Errorf("cause not ErrMaxRounds: %v", err)
	}
}

func TestRunner_Execute_EmitsLifecycleEvents(t *testing.T) {
	provider := &scriptedProvider{responses: []types.Response{
		text(`{"category":"Praise","summary":"Loves it.","sentiment":"Positive"}`),
	}}
	var events []observe.Event
	sink := observe.SinkFunc(func(ctx context.Context, e observe.Event) error {
		events = append(events, e)
		return nil
	})
	r := newTestRunner(t, provider, WithSink(sink))

	_, err := r.Execute(context.Background(), AnalyzeFeedback, map[string]string{
		"feedback": "Absolutely love this scarf, the colors are stunning.",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var started, completed, providerEvents int
	for _, e := range events {
		switch {
		case e.Kind == observe.KindInvocation && e.Status == observe.StatusStarted:
			started++
		case e.Kind == observe.KindInvocation && e.Status == observe.StatusCompleted:
			completed++
		case e.Kind == observe.KindProvider:
			providerEvents++
		}
		if e.InvocationID == "" {
			t.Error("event missing invocation ID")
		}
	}
	if started != 1 || completed != 1 {
		t.Errorf("started=%d completed=%d, want 1/1", started, completed)
	}
	if providerEvents != 1 {
		t.Errorf("provider events = %d, want 1", providerEvents)
	}
}
