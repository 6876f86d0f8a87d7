// Package stages implements the three interview stages (intake, interview, evaluation).
// Each stage makes one structured generation call and reports its decision as a Result;
// the conversation controller applies results and chains stages within a turn.
package stages

import (
	"context"

	"github.com/jonathan/interview-coach/internal/types"
)

// Kind tags a Result.
type Kind int

const (
	// KindContinue keeps the conversation on the current stage and ends the turn.
	KindContinue Kind = iota
	// KindAdvance moves to the next stage; the controller runs it within the same turn.
	KindAdvance
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindAdvance:
		return "advance"
	default:
		return "unknown"
	}
}

// InterviewContext is the information intake collects before an interview can start.
type InterviewContext struct {
	JobDescription     string
	CompanyDescription string
	InterviewType      types.InterviewType
}

// Result is the outcome of running one stage.
type Result struct {
	Kind Kind
	// Message is appended as an assistant message when non-empty.
	Message string
	// Notes are appended as system messages before Message.
	Notes []string
	// Context is set by intake when it advances.
	Context *InterviewContext
	// Scorecard is set by evaluation.
	Scorecard *types.Scorecard
	// Reason is a short label for logs and metrics.
	Reason string
}

// Continue returns a result that emits message and stays on the current stage.
func Continue(message string) *Result {
	return &Result{Kind: KindContinue, Message: message}
}

// Advance returns a result that moves to the next stage, emitting message if non-empty.
func Advance(message string) *Result {
	return &Result{Kind: KindAdvance, Message: message}
}

// WithContext attaches captured interview context.
func (r *Result) WithContext(c InterviewContext) *Result {
	r.Context = &c
	return r
}

// WithScorecard attaches an evaluation scorecard.
func (r *Result) WithScorecard(s types.Scorecard) *Result {
	r.Scorecard = &s
	return r
}

// WithNotes attaches system messages.
func (r *Result) WithNotes(notes ...string) *Result {
	r.Notes = append(r.Notes, notes...)
	return r
}

// WithReason labels the result.
func (r *Result) WithReason(reason string) *Result {
	r.Reason = reason
	return r
}

// Stage is one step of the interview flow. Run must not mutate state.
type Stage interface {
	Name() types.Stage
	Run(ctx context.Context, state *types.ConversationState) (*Result, error)
}
