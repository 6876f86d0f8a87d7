// Package metrics records conversation and generation metrics.
package metrics

import (
	"time"

	"github.com/jonathan/interview-coach/internal/types"
)

// Turn outcome labels
const (
	StatusOK         = "ok"
	StatusEcho       = "echo"
	StatusGeneration = "generation_error"
	StatusContract   = "contract_violation"
	StatusConflict   = "conflict"
	StatusError      = "error"
)

// Recorder receives metric events from the stages and the conversation controller.
type Recorder interface {
	// ObserveTurn records a finished turn, labelled by the stage it ended on.
	ObserveTurn(stage types.Stage, status string, duration time.Duration)
	// ObserveTransition records a stage change inside a turn.
	ObserveTransition(from, to types.Stage, reason string)
	// ObserveGeneration records one generation call.
	ObserveGeneration(stage types.Stage, promptTokens int, success bool, duration time.Duration)
	// IncConflict counts optimistic-concurrency conflicts on save.
	IncConflict()
}

// Noop discards all events.
type Noop struct{}

// ObserveTurn implements Recorder.
func (Noop) ObserveTurn(types.Stage, string, time.Duration) {}

// ObserveTransition implements Recorder.
func (Noop) ObserveTransition(types.Stage, types.Stage, string) {}

// ObserveGeneration implements Recorder.
func (Noop) ObserveGeneration(types.Stage, int, bool, time.Duration) {}

// IncConflict implements Recorder.
func (Noop) IncConflict() {}

// OrNoop returns r, or Noop when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}
