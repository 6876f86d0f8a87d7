package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DefaultScorecardMinText is the minimum length of the strengths and areas_of_improvement fields.
const DefaultScorecardMinText = 50

// Scorecard is the structured evaluation produced at the end of an interview.
type Scorecard struct {
	CommunicationScore       int    `json:"communication_score" validate:"min=1,max=10"`
	TechnicalCompetencyScore int    `json:"technical_competency_score" validate:"min=1,max=10"`
	BehaviouralFitScore      int    `json:"behavioural_fit_score" validate:"min=1,max=10"`
	OverallScore             int    `json:"overall_score" validate:"min=1,max=10"`
	Strengths                string `json:"strengths" validate:"required"`
	AreasOfImprovement       string `json:"areas_of_improvement" validate:"required"`
}

var scorecardValidator = validator.New()

// Validate checks score ranges and that both free-text fields carry at least minText characters.
// A non-positive minText falls back to DefaultScorecardMinText.
func (s *Scorecard) Validate(minText int) error {
	if err := scorecardValidator.Struct(s); err != nil {
		return err
	}
	if minText <= 0 {
		minText = DefaultScorecardMinText
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(s.Strengths)); n < minText {
		return fmt.Errorf("strengths must be at least %d characters, got %d", minText, n)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(s.AreasOfImprovement)); n < minText {
		return fmt.Errorf("areas_of_improvement must be at least %d characters, got %d", minText, n)
	}
	return nil
}

// String returns the JSON form of the scorecard. It is the assistant message emitted on evaluation.
func (s Scorecard) String() string {
	data, _ := json.Marshal(s) // only ints and strings, cannot fail
	return string(data)
}
