package perception

// EditCommandSchema is the canonical JSON schema for generated command
// descriptors. It is the single source of truth for what the model may
// emit; internal/command re-validates the decoded value because schema
// enforcement is best-effort on some providers.
const EditCommandSchema = `{
  "type": "object",
  "properties": {
    "program": {
      "type": "string",
      "enum": ["ffmpeg", "ffprobe"],
      "description": "The executable to run."
    },
    "args": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Argument vector excluding the program name, the -i input pair, and the output path. Never include -i."
    },
    "output_ext": {
      "type": "string",
      "description": "Extension of the output file without a dot, or 'none' when the command produces console output only."
    }
  },
  "required": ["program", "args", "output_ext"]
}`

// ExplanationSchema constrains the best-effort summary of execution output.
const ExplanationSchema = `{
  "type": "object",
  "properties": {
    "explanation": {
      "type": "string",
      "description": "Plain-language summary of what the command did, grounded in its output."
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 10,
      "description": "Confidence in the summary, 0-10 in half-point steps."
    }
  },
  "required": ["explanation", "confidence"]
}`
