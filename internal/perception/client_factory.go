package perception

import (
	"context"
	"fmt"
	"os"
)

// NewClient constructs the client for the configured provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openai)", cfg.Provider)
	}
}

// DetectProvider resolves a provider from environment variables when the
// config file names none. Priority: GEMINI > OPENAI.
func DetectProvider() (Config, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return DefaultGeminiConfig(key), nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return DefaultOpenAIConfig(key), nil
	}
	return Config{}, fmt.Errorf("no API key found: set GEMINI_API_KEY or OPENAI_API_KEY")
}
