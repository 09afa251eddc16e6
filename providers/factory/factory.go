// Package factory builds the configured model providers.
package factory

import (
	"context"
	"fmt"

	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/providers/gemini"
	"github.com/artisanhub/craft-ai-bridge/providers/openai"
)

type Config struct {
	// Provider selects the text provider: "gemini" or "openai".
	Provider string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	OpenAIAPIKey string
	OpenAIModel  string
}

// New returns the text provider named by the config, plus an image
// provider when one is available. Image generation always rides on
// Gemini: when the text provider is OpenAI, a Gemini key still enables
// images, and without one the image provider is nil.
func New(ctx context.Context, cfg Config) (llm.Provider, llm.ImageProvider, error) {
	switch cfg.Provider {
	case "", "gemini":
		client, err := gemini.New(ctx, cfg.GeminiAPIKey,
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithImageModel(cfg.GeminiImageModel),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil

	case "openai":
		client, err := openai.New(cfg.OpenAIAPIKey, openai.WithModel(cfg.OpenAIModel))
		if err != nil {
			return nil, nil, err
		}
		var images llm.ImageProvider
		if cfg.GeminiAPIKey != "" {
			imageClient, err := gemini.New(ctx, cfg.GeminiAPIKey,
				gemini.WithImageModel(cfg.GeminiImageModel),
			)
			if err != nil {
				return nil, nil, err
			}
			images = imageClient
		}
		return client, images, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q (expected gemini or openai)", cfg.Provider)
	}
}
