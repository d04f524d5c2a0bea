package command

import "fmt"

// SchemaError reports generated output that does not conform to the
// descriptor schema: an unknown enum member or a missing required field.
// Retryable within the attempt budget.
type SchemaError struct {
	Field  string // which descriptor field failed
	Detail string
	Raw    string // raw model output, when available
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema violation in %s: %s", e.Field, e.Detail)
	}
	return fmt.Sprintf("schema violation: %s", e.Detail)
}

// PolicyError reports a structurally valid descriptor that violates a
// domain invariant. Treated as a generation-time rejection and retried
// within the budget.
type PolicyError struct {
	Descriptor Descriptor
	Detail     string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Detail)
}
