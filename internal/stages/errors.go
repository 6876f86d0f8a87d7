package stages

import (
	"fmt"

	"github.com/jonathan/interview-coach/internal/types"
)

// GenerationError means the generation call failed, timed out, or returned output that
// failed schema or content validation. The turn is aborted and nothing is persisted.
type GenerationError struct {
	Stage     types.Stage
	Message   string
	Transient bool
	Cause     error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s generation failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Stage, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// ContractViolationError means a generation result was well-formed but semantically
// impossible, such as a clarification request with no question.
type ContractViolationError struct {
	Stage  types.Stage
	Detail string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("%s contract violation: %s", e.Stage, e.Detail)
}
