package stages

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// End reasons reported on Advance results
const (
	EndReasonContent = "content"
	EndReasonFlag    = "flag"
)

type interviewReply struct {
	Question     string `json:"question"`
	EndInterview bool   `json:"end_interview"`
}

// InterviewStage asks one interview question per turn until the interview ends.
type InterviewStage struct {
	gen *Generator
}

// NewInterviewStage creates the interview stage.
func NewInterviewStage(gen *Generator) *InterviewStage {
	return &InterviewStage{gen: gen}
}

// Name implements Stage.
func (s *InterviewStage) Name() types.Stage { return types.StageInterview }

// Run implements Stage. The interview ends when the model infers the candidate is done or the
// caller set end_interview_requested on this turn; either one suffices.
func (s *InterviewStage) Run(ctx context.Context, state *types.ConversationState) (*Result, error) {
	var reply interviewReply
	err := s.gen.generate(ctx, types.StageInterview, prompts.KeyInterview, contextData(state, state.Transcript()),
		schemas.Interview, llm.TierStandard, &reply)
	if err != nil {
		return nil, err
	}

	switch {
	case reply.EndInterview:
		log.Info().Str("thread_id", state.ThreadID).Msg("interview ended by candidate, proceeding to evaluation")
		return Advance("").WithReason(EndReasonContent), nil
	case state.EndInterviewRequested:
		log.Info().Str("thread_id", state.ThreadID).Msg("interview ended by end interview request, proceeding to evaluation")
		return Advance("").WithReason(EndReasonFlag), nil
	}

	question := strings.TrimSpace(reply.Question)
	if question == "" {
		return nil, &GenerationError{
			Stage:     types.StageInterview,
			Message:   "empty question without end of interview",
			Transient: true,
		}
	}
	return Continue(question).WithReason("next_question"), nil
}
