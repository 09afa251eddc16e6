// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"time"
)

type Config struct {
	// Addr is the listen address for the HTTP API.
	Addr string

	// Provider selects the text model provider: gemini or openai.
	Provider string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	OpenAIAPIKey string
	OpenAIModel  string

	// FlowTimeout bounds a single flow invocation end to end.
	FlowTimeout time.Duration

	// MaxToolRounds caps model/tool round trips in dialogue flows.
	MaxToolRounds int

	// AuditDBPath is the sqlite file for the audit trail. Empty
	// disables persistence.
	AuditDBPath string

	// PromptDir holds YAML prompt overrides. Empty means built-ins only.
	PromptDir string
}

func FromEnv() Config {
	return Config{
		Addr:             ParseStringEnv("CRAFTAI_ADDR", ":8080"),
		Provider:         ParseStringEnv("CRAFTAI_PROVIDER", "gemini"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      os.Getenv("GEMINI_MODEL"),
		GeminiImageModel: os.Getenv("GEMINI_IMAGE_MODEL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		FlowTimeout:      time.Duration(ParseIntEnv("CRAFTAI_FLOW_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxToolRounds:    ParseIntEnv("CRAFTAI_MAX_TOOL_ROUNDS", 5),
		AuditDBPath:      os.Getenv("CRAFTAI_AUDIT_DB"),
		PromptDir:        os.Getenv("CRAFTAI_PROMPT_DIR"),
	}
}
