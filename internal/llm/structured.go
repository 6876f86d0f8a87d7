// Package llm - structured.go provides schema-validated JSON generation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/interview-coach/internal/schemas"
)

// StructuredErrorKind classifies why a structured generation failed.
type StructuredErrorKind string

// Failure kinds
const (
	KindCall   StructuredErrorKind = "call"
	KindParse  StructuredErrorKind = "parse"
	KindSchema StructuredErrorKind = "schema"
)

// StructuredError is returned by GenerateStructured.
type StructuredError struct {
	Kind    StructuredErrorKind
	Schema  string
	Message string
	Raw     string
	Cause   error
}

func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("structured generation (%s, %s): %s: %v", e.Schema, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("structured generation (%s, %s): %s", e.Schema, e.Kind, e.Message)
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// StructuredRequest describes a single structured generation call.
type StructuredRequest struct {
	// Prompt is the fully rendered task prompt.
	Prompt string
	// Schema names an embedded schema from the schemas package.
	Schema string
	Tier   ModelTier
}

// BuildStructuredPrompt appends the output contract to a task prompt.
func BuildStructuredPrompt(prompt, schemaText string) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(prompt))
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this JSON Schema:\n")
	sb.WriteString(schemaText)
	sb.WriteString("\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use exactly the property names from the schema.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	return sb.String()
}

// GenerateStructured calls client.GenerateJSON with the schema-annotated prompt, validates the
// reply against the schema, and decodes it into out.
func GenerateStructured(ctx context.Context, client Client, req StructuredRequest, out any) error {
	schemaText, err := schemas.Load(req.Schema)
	if err != nil {
		return err
	}
	tier := req.Tier
	if tier == "" {
		tier = TierStandard
	}

	raw, err := client.GenerateJSON(ctx, BuildStructuredPrompt(req.Prompt, schemaText), tier)
	if err != nil {
		return &StructuredError{Kind: KindCall, Schema: req.Schema, Message: "LLM call failed", Cause: err}
	}

	cleaned := CleanJSONBlock(raw)
	if !json.Valid([]byte(cleaned)) {
		return &StructuredError{Kind: KindParse, Schema: req.Schema, Message: "response is not valid JSON", Raw: raw}
	}

	if err := schemas.Validate(req.Schema, cleaned); err != nil {
		return &StructuredError{Kind: KindSchema, Schema: req.Schema, Message: "response does not match schema", Raw: cleaned, Cause: err}
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &StructuredError{Kind: KindParse, Schema: req.Schema, Message: "failed to decode response", Raw: cleaned, Cause: err}
	}
	return nil
}
