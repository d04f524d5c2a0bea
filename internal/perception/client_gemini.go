package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"clipforge/internal/logging"
)

// GeminiClient implements Client for the Google Gemini API via the genai SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		Provider: ProviderGemini,
		APIKey:   apiKey,
		Model:    "gemini-2.5-flash",
		Timeout:  2 * time.Minute,
	}
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, nil)
}

// CompleteWithSchema requests JSON output constrained by the given schema.
// Gemini enforces it at the API level via responseSchema.
func (c *GeminiClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	schema, err := geminiSchemaFromJSON(jsonSchema)
	if err != nil {
		return "", fmt.Errorf("invalid response schema: %w", err)
	}
	return c.generate(ctx, systemPrompt, userPrompt, schema)
}

func (c *GeminiClient) generate(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	start := time.Now()
	logging.APIDebug("[Gemini] generate: model=%s system_len=%d user_len=%d schema=%v",
		c.model, len(systemPrompt), len(userPrompt), schema != nil)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		logging.APIError("[Gemini] generate failed: %v", err)
		return "", fmt.Errorf("Gemini request failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini returned an empty completion")
	}

	logging.API("[Gemini] generate ok: %d chars in %s", len(text), time.Since(start))
	return text, nil
}

// geminiSchemaFromJSON converts a raw JSON schema into the SDK's typed
// Schema. Only the subset clipforge emits is handled: object/string/number/
// array types, properties, required, enum, items, description, and numeric
// bounds.
func geminiSchemaFromJSON(jsonSchema string) (*genai.Schema, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(jsonSchema), &raw); err != nil {
		return nil, err
	}
	return convertGeminiSchema(raw)
}

func convertGeminiSchema(raw map[string]interface{}) (*genai.Schema, error) {
	s := &genai.Schema{}

	typeName, _ := raw["type"].(string)
	switch typeName {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	default:
		return nil, fmt.Errorf("unsupported schema type %q", typeName)
	}

	if desc, ok := raw["description"].(string); ok {
		s.Description = desc
	}
	if enum, ok := raw["enum"].([]interface{}); ok {
		for _, v := range enum {
			if str, ok := v.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	if min, ok := raw["minimum"].(float64); ok {
		s.Minimum = genai.Ptr(min)
	}
	if max, ok := raw["maximum"].(float64); ok {
		s.Maximum = genai.Ptr(max)
	}
	if req, ok := raw["required"].([]interface{}); ok {
		for _, v := range req {
			if str, ok := v.(string); ok {
				s.Required = append(s.Required, str)
			}
		}
	}
	if props, ok := raw["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			pm, ok := p.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("property %q is not an object", name)
			}
			converted, err := convertGeminiSchema(pm)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = converted
		}
	}
	if items, ok := raw["items"].(map[string]interface{}); ok {
		converted, err := convertGeminiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = converted
	}

	return s, nil
}
