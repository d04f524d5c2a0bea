package perception

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/command"
	"clipforge/internal/media"
)

// scriptedClient returns canned completions in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	schemas   []string
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSchema(ctx, "", prompt, "")
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return c.CompleteWithSchema(ctx, system, user, "")
}

func (c *scriptedClient) CompleteWithSchema(ctx context.Context, system, user, schema string) (string, error) {
	i := c.calls
	c.calls++
	c.prompts = append(c.prompts, user)
	c.schemas = append(c.schemas, schema)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple JSON", `{"key": "value"}`, `{"key": "value"}`},
		{"With preamble", `Here is the JSON: {"key": "value"}`, `{"key": "value"}`},
		{"Markdown fence", "```json\n{\"key\": 1}\n```", `{"key": 1}`},
		{"Nested", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"No JSON", `sorry, I cannot help`, ``},
		{"Unbalanced", `{"key": "value"`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.expected {
				t.Errorf("extractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGenerateEdit_Valid(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"program": "ffmpeg", "args": ["-vn", "-acodec", "libmp3lame"], "output_ext": "mp3"}`,
	}}

	desc, err := GenerateEdit(context.Background(), client, EditRequest{
		Prompt:        "extract audio as mp3",
		InputFilename: "clip.mp4",
		InputKind:     media.KindVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, command.ProgramFFmpeg, desc.Program)
	assert.Equal(t, []string{"-vn", "-acodec", "libmp3lame"}, desc.Args)
	assert.Equal(t, command.OutputExt("mp3"), desc.OutputExt)
	assert.Equal(t, EditCommandSchema, client.schemas[0])
}

func TestGenerateEdit_ConversationalWrapper(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"Sure! Here's the command:\n```json\n{\"program\": \"ffprobe\", \"args\": [\"-show_format\"], \"output_ext\": \"none\"}\n```",
	}}

	desc, err := GenerateEdit(context.Background(), client, EditRequest{
		Prompt:        "what format is this",
		InputFilename: "song.flac",
		InputKind:     media.KindAudio,
	})
	require.NoError(t, err)
	assert.Equal(t, command.ProgramFFprobe, desc.Program)
	assert.Equal(t, command.OutputNone, desc.OutputExt)
}

func TestGenerateEdit_UnknownProgramIsSchemaError(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"program": "sox", "args": [], "output_ext": "wav"}`,
	}}

	_, err := GenerateEdit(context.Background(), client, EditRequest{Prompt: "p", InputKind: media.KindAudio})
	var schemaErr *command.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "program", schemaErr.Field)
}

func TestGenerateEdit_NoJSONIsSchemaError(t *testing.T) {
	client := &scriptedClient{responses: []string{"I cannot do that."}}

	_, err := GenerateEdit(context.Background(), client, EditRequest{Prompt: "p", InputKind: media.KindAudio})
	var schemaErr *command.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Raw, "I cannot")
}

func TestGenerateEdit_SmuggledInputFlagIsPolicyError(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"program": "ffmpeg", "args": ["-i", "other.mp4", "-filter_complex", "overlay"], "output_ext": "mp4"}`,
	}}

	_, err := GenerateEdit(context.Background(), client, EditRequest{Prompt: "p", InputKind: media.KindVideo})
	var policyErr *command.PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestGenerateEdit_GroundingCarriesFailureContext(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"program": "ffmpeg", "args": ["-vn"], "output_ext": "mp3"}`,
	}}

	_, err := GenerateEdit(context.Background(), client, EditRequest{
		Prompt:        "extract audio",
		InputFilename: "clip.mp4",
		InputKind:     media.KindVideo,
		PriorAttempts: []AttemptNote{{
			CommandLine: "ffmpeg -i clip.mp4 -badflag out.mp3",
			Stderr:      "Unrecognized option 'badflag'",
			Reason:      "process exited with code 1",
		}},
	})
	require.NoError(t, err)

	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Unrecognized option 'badflag'")
	assert.Contains(t, prompt, "ffmpeg -i clip.mp4 -badflag out.mp3")
	assert.Contains(t, prompt, "process exited with code 1")
}

func TestGenerateExplanation(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"explanation": "Extracted the audio track as MP3.", "confidence": 8.5}`,
	}}

	expl, err := GenerateExplanation(context.Background(), client, ExplainRequest{
		Prompt:      "extract audio",
		CommandLine: "ffmpeg -i clip.mp4 -vn out.mp3",
		Stderr:      "size= 2048kB",
	})
	require.NoError(t, err)
	assert.Equal(t, "Extracted the audio track as MP3.", expl.Explanation)
	assert.Equal(t, 8.5, expl.Confidence)
}

func TestGenerateExplanation_FailureIsExplanationError(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("boom")}}

	_, err := GenerateExplanation(context.Background(), client, ExplainRequest{Prompt: "p"})
	var explErr *ExplanationError
	require.ErrorAs(t, err, &explErr)
}

func TestSnapConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{7.3, 7.5},
		{7.2, 7.0},
		{7.25, 7.5},
		{-1, 0},
		{11, 10},
		{10.4, 10},
		{0, 0},
		{5.5, 5.5},
	}
	for _, tt := range tests {
		if got := snapConfidence(tt.in); got != tt.want {
			t.Errorf("snapConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGeminiSchemaFromJSON(t *testing.T) {
	schema, err := geminiSchemaFromJSON(EditCommandSchema)
	require.NoError(t, err)
	require.NotNil(t, schema.Properties["program"])
	assert.Equal(t, []string{"ffmpeg", "ffprobe"}, schema.Properties["program"].Enum)
	assert.ElementsMatch(t, []string{"program", "args", "output_ext"}, schema.Required)
	require.NotNil(t, schema.Properties["args"].Items)

	_, err = geminiSchemaFromJSON(`{"type": "tuple"}`)
	assert.Error(t, err)
}
