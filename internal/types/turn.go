package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// TurnRequest is one user turn submitted to the conversation controller.
type TurnRequest struct {
	ThreadID              string `json:"thread_id,omitempty"`
	Message               string `json:"message" validate:"required"`
	EndInterviewRequested bool   `json:"end_interview_requested"`
}

// UnmarshalJSON also accepts "end_interview" and the camel-case "endInterview" sent by older clients.
// The flag is set when any spelling is true.
func (r *TurnRequest) UnmarshalJSON(data []byte) error {
	type plain TurnRequest
	var aux struct {
		plain
		EndInterview      *bool `json:"end_interview"`
		EndInterviewCamel *bool `json:"endInterview"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = TurnRequest(aux.plain)
	for _, alias := range []*bool{aux.EndInterview, aux.EndInterviewCamel} {
		if alias != nil && *alias {
			r.EndInterviewRequested = true
		}
	}
	return nil
}

// Validate validates the TurnRequest using the validator.
func (r *TurnRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// TurnResponse is the outward result of one turn.
type TurnResponse struct {
	ThreadID           string     `json:"thread_id"`
	Message            string     `json:"message"`
	Stage              Stage      `json:"stage"`
	EvaluatorScorecard *Scorecard `json:"evaluator_scorecard"`
	// Messages lists every assistant message emitted during the turn, in order. Message is the last one.
	Messages []string `json:"messages,omitempty"`
}
