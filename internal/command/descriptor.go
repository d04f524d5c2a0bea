// Package command defines the typed contract between structured generation
// and process execution: the command descriptor, its closed vocabularies,
// and the deterministic argv assembly rule.
//
// Validation is split into three distinct stages that never overlap:
// shape checks at decode time (SchemaError), domain policy checks on a
// well-formed descriptor (PolicyError), and post-execution acceptance in the
// pipeline (ValidationError). Execution never happens inside a validator.
package command

import (
	"fmt"
	"strings"

	"clipforge/internal/media"
)

// Program is the closed set of executables a descriptor may name.
type Program string

const (
	// ProgramFFmpeg is the media transcoder.
	ProgramFFmpeg Program = "ffmpeg"
	// ProgramFFprobe is the media prober; it writes no output file and may
	// use informational non-zero exit codes.
	ProgramFFprobe Program = "ffprobe"
)

// ParseProgram maps a generated string onto the Program enum. Unknown values
// are a SchemaError, never silently coerced.
func ParseProgram(s string) (Program, error) {
	switch Program(strings.ToLower(strings.TrimSpace(s))) {
	case ProgramFFmpeg:
		return ProgramFFmpeg, nil
	case ProgramFFprobe:
		return ProgramFFprobe, nil
	default:
		return "", &SchemaError{Field: "program", Detail: fmt.Sprintf("unknown program %q (want ffmpeg or ffprobe)", s)}
	}
}

// OutputExt is the declared extension of the command's output file, or
// OutputNone when the operation produces console output only.
type OutputExt string

// OutputNone is the sentinel for operations with no file output.
const OutputNone OutputExt = "none"

// ParseOutputExt maps a generated string onto the closed extension set.
func ParseOutputExt(s string) (OutputExt, error) {
	v := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if v == string(OutputNone) || v == "" {
		return OutputNone, nil
	}
	if !media.KnownExtension(v) {
		return "", &SchemaError{Field: "output_ext", Detail: fmt.Sprintf("unknown output extension %q", s)}
	}
	return OutputExt(v), nil
}

// inputFlag is the input-selection token the generator must never emit in
// Args; the harness always injects the input itself.
const inputFlag = "-i"

// Descriptor is the structured, schema-conformant representation of an
// executable command before assembly. Args excludes the program name and
// the input flag/value pair.
type Descriptor struct {
	Program   Program   `json:"program"`
	Args      []string  `json:"args"`
	OutputExt OutputExt `json:"output_ext"`
}

// NeedsOutputFile reports whether executing this descriptor writes a file
// whose path the harness must generate.
func (d Descriptor) NeedsOutputFile() bool {
	return d.Program == ProgramFFmpeg && d.OutputExt != OutputNone
}

// CheckPolicy enforces domain rules on a structurally valid descriptor.
// The forbidden input flag is rejected for every program: the harness owns
// input selection and a second input smuggled through Args would break the
// assembly contract.
func (d Descriptor) CheckPolicy() error {
	for _, arg := range d.Args {
		if arg == inputFlag {
			return &PolicyError{Descriptor: d, Detail: fmt.Sprintf("arguments must not contain %q: the input file is supplied by the harness", inputFlag)}
		}
	}
	if d.Program == ProgramFFprobe && d.OutputExt != OutputNone {
		return &PolicyError{Descriptor: d, Detail: fmt.Sprintf("ffprobe produces no output file; output_ext must be %q, got %q", OutputNone, d.OutputExt)}
	}
	return nil
}

// Assemble builds the full argv for a descriptor: program, "-i" input, the
// model-provided arguments, then the computed output arguments. The result
// is deterministic for identical inputs; outputPath is the only varying
// component and is required exactly when NeedsOutputFile reports true.
func Assemble(d Descriptor, inputPath, outputPath string) []string {
	argv := make([]string, 0, len(d.Args)+6)
	argv = append(argv, string(d.Program), inputFlag, inputPath)
	argv = append(argv, d.Args...)

	switch {
	case d.Program == ProgramFFprobe:
		// Probe output goes to stdout; nothing to append.
	case d.OutputExt == OutputNone:
		argv = append(argv, "-f", "null", "-")
	default:
		argv = append(argv, outputPath)
	}
	return argv
}

// Line renders an argv for display and logging.
func Line(argv []string) string {
	return strings.Join(argv, " ")
}
