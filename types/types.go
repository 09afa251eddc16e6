package types

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"` // Tool name for tool role messages.
	ToolCallID string     `json:"toolCallId,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
}

type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	JSONSchema  map[string]any `json:"jsonSchema,omitempty"`
}

// SafetySetting pairs a harm category with a blocking threshold. The
// strings use the provider-neutral names defined in the safety package;
// each provider client maps them onto its own enum.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type Request struct {
	Model           string           `json:"model,omitempty"`
	SystemPrompt    string           `json:"systemPrompt,omitempty"`
	Messages        []Message        `json:"messages"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	MaxOutputTokens int              `json:"maxOutputTokens,omitempty"`
	ResponseSchema  map[string]any   `json:"responseSchema,omitempty"`
	Safety          []SafetySetting  `json:"safety,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
	TotalTokens  int `json:"totalTokens,omitempty"`
}

type Response struct {
	Message Message `json:"message"`
	Usage   *Usage  `json:"usage,omitempty"`
}

// ImageRequest asks an image-capable provider to synthesize a single
// image from a text directive.
type ImageRequest struct {
	Model  string          `json:"model,omitempty"`
	Prompt string          `json:"prompt"`
	Safety []SafetySetting `json:"safety,omitempty"`
}

// Media is an inline media payload returned by an image generation call.
type Media struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}
