// Package perception is the structured-generation layer: it turns natural
// language into schema-conformant command descriptors via an LLM provider,
// and summarizes execution output back into natural language.
//
// The provider contract is deliberately narrow. Clients return raw
// completions; decoding and validation happen here, so the retry policy in
// the pipeline owns all repair behavior and clients never retry on schema
// grounds themselves.
package perception

import (
	"context"
	"time"
)

const defaultSystemPrompt = "You are clipforge, a media-editing assistant. Respond in English. Be concise. Ground answers only in the provided command output; do not invent file contents or probe results."

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a bare prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithSchema requests JSON output conforming to the given raw
	// JSON schema. Providers that support API-level schema enforcement use
	// it; the caller still validates the decoded value either way, since
	// enforcement is best-effort on some backends.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
}

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Config holds the resolved provider settings threaded into client
// construction.
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}
