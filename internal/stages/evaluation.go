package stages

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// DefaultEvaluationAttempts is how many times evaluation is generated before giving up.
const DefaultEvaluationAttempts = 2

// EvaluationStage produces the final scorecard from the full transcript.
type EvaluationStage struct {
	gen      *Generator
	minText  int
	attempts int
}

// NewEvaluationStage creates the evaluation stage. minText is the minimum length of the
// scorecard free-text fields; attempts bounds regeneration after rejected output.
func NewEvaluationStage(gen *Generator, minText, attempts int) *EvaluationStage {
	if minText <= 0 {
		minText = types.DefaultScorecardMinText
	}
	if attempts <= 0 {
		attempts = DefaultEvaluationAttempts
	}
	return &EvaluationStage{gen: gen, minText: minText, attempts: attempts}
}

// Name implements Stage.
func (s *EvaluationStage) Name() types.Stage { return types.StageEvaluation }

// Run implements Stage.
func (s *EvaluationStage) Run(ctx context.Context, state *types.ConversationState) (*Result, error) {
	data := contextData(state, state.Transcript())
	data["MinTextLength"] = strconv.Itoa(s.minText)

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		var card types.Scorecard
		err := s.gen.generate(ctx, types.StageEvaluation, prompts.KeyEvaluation, data, schemas.Scorecard, llm.TierAdvanced, &card)
		if err == nil {
			if vErr := card.Validate(s.minText); vErr != nil {
				err = &GenerationError{Stage: types.StageEvaluation, Message: "scorecard rejected", Cause: vErr}
			}
		}
		if err == nil {
			return Advance(card.String()).WithScorecard(card).WithReason("scored"), nil
		}

		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		log.Warn().Err(err).Str("thread_id", state.ThreadID).Int("attempt", attempt).Msg("evaluation rejected, regenerating")
	}
	return nil, lastErr
}

// retryable is true for rejected output; call failures are left to the caller to retry the turn.
func retryable(err error) bool {
	var gErr *GenerationError
	if !errors.As(err, &gErr) {
		return false
	}
	return !gErr.Transient
}
