package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/types"
)

const defaultModel = openai.GPT4oMini

// Client speaks the OpenAI chat completions API. Safety settings are
// accepted and ignored: the platform applies its own moderation and
// exposes no per-request thresholds.
type Client struct {
	client *openai.Client
	model  string
}

type Option func(*clientConfig)

type clientConfig struct {
	model   string
	baseURL string
}

func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an alternate endpoint, used by tests
// and by OpenAI-compatible gateways.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	cfg := &clientConfig{model: defaultModel}
	for _, opt := range opts {
		opt(cfg)
	}

	apiConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		apiConfig.BaseURL = cfg.baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(apiConfig),
		model:  cfg.model,
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Tools:            true,
		StructuredOutput: true,
		Images:           false,
	}
}

func (c *Client) Generate(ctx context.Context, req types.Request) (types.Response, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(req),
	}
	if req.MaxOutputTokens > 0 {
		chatReq.MaxTokens = req.MaxOutputTokens
	}
	if len(req.ResponseSchema) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	for _, def := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.JSONSchema,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Message), "content") {
			return types.Response{}, fmt.Errorf("openai rejected request: %s: %w", apiErr.Message, llm.ErrContentBlocked)
		}
		return types.Response{}, fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return types.Response{}, fmt.Errorf("openai returned no choices: %w", llm.ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return types.Response{}, fmt.Errorf("openai content filter triggered: %w", llm.ErrContentBlocked)
	}

	out := types.Message{
		Role:    types.RoleAssistant,
		Content: strings.TrimSpace(choice.Message.Content),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return types.Response{
		Message: out,
		Usage: &types.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// toChatMessages flattens the request into the OpenAI wire shape. When
// a response schema is set the schema is restated in a trailing system
// message, since JSON-object mode alone does not constrain the shape.
func toChatMessages(req types.Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case types.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case types.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			messages = append(messages, msg)
		case types.RoleTool:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	if guard := schemaGuard(req.ResponseSchema); guard != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: guard,
		})
	}
	return messages
}

func schemaGuard(schema map[string]any) string {
	if len(schema) == 0 {
		return ""
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return "Respond with a single JSON object conforming to this JSON schema, with no surrounding prose or markdown fences:\n" + string(raw)
}

var _ llm.Provider = (*Client)(nil)
