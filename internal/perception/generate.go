package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"clipforge/internal/command"
	"clipforge/internal/logging"
	"clipforge/internal/media"
)

const editSystemPrompt = `You translate media-editing instructions into a single command for ffmpeg or ffprobe.

Rules:
- Output ONLY a JSON object matching the requested schema.
- "args" excludes the program name, the input file, and the output path. The harness injects the input as "-i <path>" BEFORE your args and the output path AFTER them.
- NEVER include "-i" in args. There is exactly one input and the harness owns it.
- Set "output_ext" to the extension of the file the command writes (no dot), or "none" for probe/analysis commands that only print to the console.
- ffprobe never writes an output file; with ffprobe always use "none".
- Prefer simple, widely supported flags.`

// AttemptNote is the grounding carried from one failed attempt into the
// next generation call: the command actually run, what it printed, and why
// it was rejected.
type AttemptNote struct {
	CommandLine string
	Stdout      string
	Stderr      string
	Reason      string
}

// EditRequest carries everything a generation call needs.
type EditRequest struct {
	Prompt        string
	InputFilename string
	InputKind     media.Kind
	PriorAttempts []AttemptNote
}

// GenerateEdit asks the model for a command descriptor satisfying the
// request. Decode failures are *command.SchemaError, domain violations are
// *command.PolicyError; both are retryable by the caller. This step never
// touches the filesystem - it only decides what to run.
func GenerateEdit(ctx context.Context, client Client, req EditRequest) (*command.Descriptor, error) {
	userPrompt := buildEditPrompt(req)

	logging.GenerationDebug("GenerateEdit: prompt_len=%d prior_attempts=%d", len(userPrompt), len(req.PriorAttempts))

	raw, err := client.CompleteWithSchema(ctx, editSystemPrompt, userPrompt, EditCommandSchema)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, &command.SchemaError{Detail: "no JSON object in model response", Raw: raw}
	}

	var decoded struct {
		Program   string   `json:"program"`
		Args      []string `json:"args"`
		OutputExt string   `json:"output_ext"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		return nil, &command.SchemaError{Detail: fmt.Sprintf("JSON decode failed: %v", err), Raw: raw}
	}

	program, err := command.ParseProgram(decoded.Program)
	if err != nil {
		return nil, err
	}
	outputExt, err := command.ParseOutputExt(decoded.OutputExt)
	if err != nil {
		return nil, err
	}

	desc := &command.Descriptor{
		Program:   program,
		Args:      decoded.Args,
		OutputExt: outputExt,
	}
	if err := desc.CheckPolicy(); err != nil {
		return nil, err
	}

	logging.Generation("Generated descriptor: program=%s args=%v output_ext=%s", desc.Program, desc.Args, desc.OutputExt)
	return desc, nil
}

// buildEditPrompt constructs the user prompt, appending one grounding block
// per prior failed attempt so the model can repair rather than guess again.
func buildEditPrompt(req EditRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Instruction: %s\n", req.Prompt)
	fmt.Fprintf(&sb, "Input file: %s (%s)\n", req.InputFilename, req.InputKind)

	for i, attempt := range req.PriorAttempts {
		fmt.Fprintf(&sb, "\n--- Failed attempt %d ---\n", i+1)
		if attempt.CommandLine != "" {
			fmt.Fprintf(&sb, "Command: %s\n", attempt.CommandLine)
		}
		fmt.Fprintf(&sb, "Failure: %s\n", attempt.Reason)
		if out := clip(attempt.Stderr, 2000); out != "" {
			fmt.Fprintf(&sb, "Stderr:\n%s\n", out)
		}
		if out := clip(attempt.Stdout, 1000); out != "" {
			fmt.Fprintf(&sb, "Stdout:\n%s\n", out)
		}
	}

	if len(req.PriorAttempts) > 0 {
		sb.WriteString("\nProduce a corrected command that avoids the failures above.\n")
	}

	return sb.String()
}

const explainSystemPrompt = `You summarize the result of a media command for the user.

Rules:
- Output ONLY a JSON object matching the requested schema.
- Explain in one or two plain sentences what the command did, grounded in its actual output.
- Rate your confidence from 0 to 10 in half-point steps.`

// Explanation is the best-effort natural-language summary of an execution.
type Explanation struct {
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

// ExplanationError reports a failed explanation step. It is never escalated:
// callers log it and move on.
type ExplanationError struct {
	Detail string
	Err    error
}

func (e *ExplanationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("explanation failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("explanation failed: %s", e.Detail)
}

func (e *ExplanationError) Unwrap() error { return e.Err }

// ExplainRequest carries the executed command and its captured streams.
type ExplainRequest struct {
	Prompt      string
	CommandLine string
	Stdout      string
	Stderr      string
}

// GenerateExplanation produces the summary plus a confidence score snapped
// to half-point increments in [0, 10].
func GenerateExplanation(ctx context.Context, client Client, req ExplainRequest) (*Explanation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Instruction: %s\n", req.Prompt)
	fmt.Fprintf(&sb, "Command: %s\n", req.CommandLine)
	if out := clip(req.Stdout, 4000); out != "" {
		fmt.Fprintf(&sb, "Stdout:\n%s\n", out)
	}
	if out := clip(req.Stderr, 4000); out != "" {
		fmt.Fprintf(&sb, "Stderr:\n%s\n", out)
	}

	raw, err := client.CompleteWithSchema(ctx, explainSystemPrompt, sb.String(), ExplanationSchema)
	if err != nil {
		return nil, &ExplanationError{Detail: "generation call failed", Err: err}
	}

	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, &ExplanationError{Detail: "no JSON object in model response"}
	}

	var expl Explanation
	if err := json.Unmarshal([]byte(jsonStr), &expl); err != nil {
		return nil, &ExplanationError{Detail: "JSON decode failed", Err: err}
	}
	if strings.TrimSpace(expl.Explanation) == "" {
		return nil, &ExplanationError{Detail: "empty explanation"}
	}
	expl.Confidence = snapConfidence(expl.Confidence)

	return &expl, nil
}

// snapConfidence clamps to [0, 10] and rounds to the nearest half point.
func snapConfidence(c float64) float64 {
	snapped := math.Round(c*2) / 2
	if snapped < 0 {
		return 0
	}
	if snapped > 10 {
		return 10
	}
	return snapped
}

// extractJSON finds the JSON object in a response (handles markdown
// wrappers and conversational pre/postamble).
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}

// clip truncates long captured output for prompt grounding.
func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[... truncated]"
}
