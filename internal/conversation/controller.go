// Package conversation runs interview turns: it loads a thread, dispatches the active stage
// (chaining into later stages within the same turn), and persists the result once.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/stages"
	"github.com/jonathan/interview-coach/internal/types"
)

// maxDispatch bounds stage runs per turn: one per stage.
const maxDispatch = 3

// saveAttempts is the first save plus the single reload-and-redispatch retry.
const saveAttempts = 2

// Controller is the single entry point for conversation turns.
type Controller struct {
	store   Store
	stages  map[types.Stage]stages.Stage
	locker  Locker
	sem     *semaphore.Weighted
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithStages registers the stage implementations. All of intake, interview and evaluation are required.
func WithStages(ss ...stages.Stage) Option {
	return func(c *Controller) {
		for _, s := range ss {
			c.stages[s.Name()] = s
		}
	}
}

// WithLocker replaces the in-process per-thread lock.
func WithLocker(l Locker) Option {
	return func(c *Controller) { c.locker = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) { c.metrics = metrics.OrNoop(r) }
}

// WithMaxConcurrentTurns bounds how many turns may be generating at once. n <= 0 means unbounded.
func WithMaxConcurrentTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		} else {
			c.sem = nil
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator overrides how thread ids are generated for requests without one.
func WithIDGenerator(f func() string) Option {
	return func(c *Controller) { c.newID = f }
}

// New creates a Controller backed by store.
func New(store Store, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	c := &Controller{
		store:   store,
		stages:  make(map[types.Stage]stages.Stage),
		locker:  NewKeyedMutex(),
		metrics: metrics.Noop{},
		now:     time.Now,
		newID:   func() string { return ThreadIDForSubject(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, st := range []types.Stage{types.StageIntake, types.StageInterview, types.StageEvaluation} {
		if _, ok := c.stages[st]; !ok {
			return nil, fmt.Errorf("no stage registered for %s", st)
		}
	}
	return c, nil
}

// turnOutcome is what one dispatch produced.
type turnOutcome struct {
	emitted   []string
	scorecard *types.Scorecard
}

// Invoke processes one user turn.
func (c *Controller) Invoke(ctx context.Context, req types.TurnRequest) (*types.TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = c.newID()
	}

	start := c.now()
	unlock, err := c.locker.Lock(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock thread %s: %w", threadID, err)
	}
	defer unlock()

	resp, err := c.invokeLocked(ctx, threadID, req)

	stage, status := types.Stage(""), metrics.StatusOK
	if resp != nil {
		stage = resp.Stage
		if resp.Messages == nil {
			status = metrics.StatusEcho
		}
	}
	if err != nil {
		status = errorStatus(err)
	}
	c.metrics.ObserveTurn(stage, status, c.now().Sub(start))

	return resp, err
}

func (c *Controller) invokeLocked(ctx context.Context, threadID string, req types.TurnRequest) (*types.TurnResponse, error) {
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		base, err := c.store.Load(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
		}
		if base == nil {
			base = types.NewConversationState(threadID, c.now())
		}

		if base.Stage == types.StageDone {
			log.Info().Str("thread_id", threadID).Msg("turn on finished thread, echoing final result")
			return &types.TurnResponse{
				ThreadID:           threadID,
				Message:            base.LastAssistantMessage(),
				Stage:              types.StageDone,
				EvaluatorScorecard: base.Scorecard,
			}, nil
		}

		working := base.Clone()
		outcome, err := c.dispatchBounded(ctx, working, req)
		if err != nil {
			return nil, err
		}
		if err := working.Validate(); err != nil {
			return nil, &stages.ContractViolationError{Stage: working.Stage, Detail: err.Error()}
		}

		err = c.store.Save(ctx, working, base.Version)
		if errors.Is(err, ErrVersionConflict) {
			c.metrics.IncConflict()
			log.Warn().Str("thread_id", threadID).Int64("version", base.Version).Int("attempt", attempt).
				Msg("version conflict on save, reloading")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save thread %s: %w", threadID, err)
		}

		return &types.TurnResponse{
			ThreadID:           threadID,
			Message:            working.LastAssistantMessage(),
			Stage:              working.Stage,
			EvaluatorScorecard: outcome.scorecard,
			Messages:           outcome.emitted,
		}, nil
	}
	return nil, &PersistenceConflictError{ThreadID: threadID}
}

// dispatchBounded holds a generation slot for the duration of the dispatch.
func (c *Controller) dispatchBounded(ctx context.Context, state *types.ConversationState, req types.TurnRequest) (*turnOutcome, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for generation slot: %w", err)
		}
		defer c.sem.Release(1)
	}
	return c.dispatch(ctx, state, req)
}

// dispatch appends the user message and runs stages until one continues or the thread is done.
func (c *Controller) dispatch(ctx context.Context, state *types.ConversationState, req types.TurnRequest) (*turnOutcome, error) {
	state.AppendMessage(types.RoleUser, req.Message, c.now())
	state.EndInterviewRequested = req.EndInterviewRequested

	out := &turnOutcome{emitted: []string{}}
	for i := 0; i < maxDispatch && state.Stage != types.StageDone; i++ {
		current := state.Stage
		stage, ok := c.stages[current]
		if !ok {
			return nil, &stages.ContractViolationError{Stage: current, Detail: "no stage registered"}
		}

		log.Info().Str("thread_id", state.ThreadID).Str("stage", string(current)).Msg("running stage")
		res, err := stage.Run(ctx, state)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, &stages.ContractViolationError{Stage: current, Detail: "stage returned no result"}
		}

		now := c.now()
		for _, note := range res.Notes {
			state.AppendMessage(types.RoleSystem, note, now)
		}
		if res.Message != "" {
			state.AppendMessage(types.RoleAssistant, res.Message, now)
			out.emitted = append(out.emitted, res.Message)
		}

		if res.Kind == stages.KindContinue {
			return out, nil
		}

		if err := c.applyAdvance(state, current, res, out); err != nil {
			return nil, err
		}
		state.Stage = current.Next()
		c.metrics.ObserveTransition(current, state.Stage, res.Reason)
		log.Info().Str("thread_id", state.ThreadID).Str("from", string(current)).Str("to", string(state.Stage)).
			Str("reason", res.Reason).Msg("stage transition")
	}
	return out, nil
}

func (c *Controller) applyAdvance(state *types.ConversationState, from types.Stage, res *stages.Result, out *turnOutcome) error {
	switch from {
	case types.StageIntake:
		if !state.IntakeComplete {
			if res.Context == nil {
				return &stages.ContractViolationError{Stage: from, Detail: "advanced without interview context"}
			}
			state.JobDescription = res.Context.JobDescription
			state.CompanyDescription = res.Context.CompanyDescription
			state.InterviewType = res.Context.InterviewType
			state.IntakeComplete = true
		}
	case types.StageEvaluation:
		if res.Scorecard == nil {
			return &stages.ContractViolationError{Stage: from, Detail: "advanced without scorecard"}
		}
		card := *res.Scorecard
		state.Scorecard = &card
		out.scorecard = &card
	}
	return nil
}

// Thread returns the persisted state of a thread, or nil when it does not exist.
func (c *Controller) Thread(ctx context.Context, threadID string) (*types.ConversationState, error) {
	state, err := c.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	return state, nil
}

func errorStatus(err error) string {
	var gErr *stages.GenerationError
	var cvErr *stages.ContractViolationError
	switch {
	case errors.As(err, &gErr):
		return metrics.StatusGeneration
	case errors.As(err, &cvErr):
		return metrics.StatusContract
	case errors.Is(err, ErrVersionConflict):
		return metrics.StatusConflict
	default:
		return metrics.StatusError
	}
}
