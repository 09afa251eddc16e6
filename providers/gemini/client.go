package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/types"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultImageModel = "imagen-3.0-generate-002"
)

type Client struct {
	client     *genai.Client
	model      string
	imageModel string
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithImageModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.imageModel = model
		}
	}
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	c := &Client{model: defaultModel, imageModel: defaultImageModel}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Tools:            true,
		StructuredOutput: true,
		Images:           true,
	}
}

func (c *Client) Generate(ctx context.Context, req types.Request) (types.Response, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = clampInt32(req.MaxOutputTokens)
	}
	if len(req.ResponseSchema) > 0 {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = req.ResponseSchema
	}
	config.SafetySettings = toGeminiSafetySettings(req.Safety)
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: toGeminiFunctionDeclarations(req.Tools)},
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, toGeminiContents(req.Messages), config)
	if err != nil {
		return types.Response{}, fmt.Errorf("gemini generation failed: %w", err)
	}
	return parseGeminiResponse(resp)
}

// GenerateImage synthesizes a single image and returns its inline
// bytes. A response filtered by the provider's responsible-AI checks is
// reported as a content block, not an empty result.
func (c *Client) GenerateImage(ctx context.Context, req types.ImageRequest) (types.Media, error) {
	model := c.imageModel
	if req.Model != "" {
		model = req.Model
	}

	resp, err := c.client.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return types.Media{}, fmt.Errorf("gemini image generation failed: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return types.Media{}, fmt.Errorf("gemini returned no images: %w", llm.ErrEmptyResponse)
	}
	generated := resp.GeneratedImages[0]
	if generated.RAIFilteredReason != "" {
		return types.Media{}, fmt.Errorf("gemini filtered image: %s: %w", generated.RAIFilteredReason, llm.ErrContentBlocked)
	}
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		return types.Media{}, fmt.Errorf("gemini returned an empty image: %w", llm.ErrEmptyResponse)
	}
	return types.Media{
		MIMEType: generated.Image.MIMEType,
		Data:     generated.Image.ImageBytes,
	}, nil
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (types.Response, error) {
	if resp == nil {
		return types.Response{}, llm.ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := strings.TrimSpace(resp.PromptFeedback.BlockReasonMessage)
		if reason == "" {
			reason = string(resp.PromptFeedback.BlockReason)
		}
		return types.Response{}, fmt.Errorf("gemini blocked prompt: %s: %w", reason, llm.ErrContentBlocked)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return types.Response{}, fmt.Errorf("gemini returned no candidates: %w", llm.ErrEmptyResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return types.Response{}, fmt.Errorf("gemini stopped for safety: %w", llm.ErrContentBlocked)
	}

	candidate := resp.Candidates[0].Content
	out := types.Message{Role: types.RoleAssistant}
	for _, part := range candidate.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			rawArgs, _ := json.Marshal(args)
			out.ToolCalls = append(out.ToolCalls, types.ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: rawArgs,
			})
		}
	}
	out.Content = strings.TrimSpace(out.Content)

	var usage *types.Usage
	if resp.UsageMetadata != nil {
		usage = &types.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return types.Response{Message: out, Usage: usage}, nil
}

func clampInt32(v int) int32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func toGeminiSafetySettings(settings []types.SafetySetting) []*genai.SafetySetting {
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		category, ok := toGeminiCategory(s.Category)
		if !ok {
			continue
		}
		threshold, ok := toGeminiThreshold(s.Threshold)
		if !ok {
			continue
		}
		out = append(out, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toGeminiCategory(category string) (genai.HarmCategory, bool) {
	switch category {
	case "hate_speech":
		return genai.HarmCategoryHateSpeech, true
	case "dangerous_content":
		return genai.HarmCategoryDangerousContent, true
	case "harassment":
		return genai.HarmCategoryHarassment, true
	case "sexual_content":
		return genai.HarmCategorySexuallyExplicit, true
	default:
		return "", false
	}
}

func toGeminiThreshold(threshold string) (genai.HarmBlockThreshold, bool) {
	switch threshold {
	case "block_low_and_above":
		return genai.HarmBlockThresholdBlockLowAndAbove, true
	case "block_medium_and_above":
		return genai.HarmBlockThresholdBlockMediumAndAbove, true
	case "block_only_high":
		return genai.HarmBlockThresholdBlockOnlyHigh, true
	case "block_none":
		return genai.HarmBlockThresholdBlockNone, true
	default:
		return "", false
	}
}

func toGeminiFunctionDeclarations(defs []types.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		schema := d.JSONSchema
		if len(schema) == 0 {
			schema = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJsonSchema: schema,
		})
	}
	return out
}

func toGeminiContents(messages []types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))

		case types.RoleAssistant:
			parts := make([]*genai.Part, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					_ = json.Unmarshal(tc.Arguments, &args)
				}
				p := genai.NewPartFromFunctionCall(tc.Name, args)
				if tc.ID != "" {
					p.FunctionCall.ID = tc.ID
				}
				parts = append(parts, p)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case types.RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"output": m.Content}
			}
			p := genai.NewPartFromFunctionResponse(m.Name, response)
			if m.ToolCallID != "" {
				p.FunctionResponse.ID = m.ToolCallID
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{p}, genai.RoleUser))
		}
	}
	return contents
}

var (
	_ llm.Provider      = (*Client)(nil)
	_ llm.ImageProvider = (*Client)(nil)
)
