package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// JobPostingFetcher downloads a job posting and returns its readable text.
type JobPostingFetcher interface {
	FetchJobPosting(ctx context.Context, url string) (string, error)
}

// jobPostingNotePrefix starts the system message that carries fetched posting text.
const jobPostingNotePrefix = "Job posting content from "

// Defaults for job posting enrichment
const (
	DefaultMaxFetchURLs    = 2
	DefaultMaxPostingRunes = 6000
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'()]+`)

type intakeReply struct {
	InterviewType      string `json:"interview_type"`
	CompanyDescription string `json:"company_description"`
	JobDescription     string `json:"job_description"`
	NeedClarification  bool   `json:"need_clarification"`
	Question           string `json:"question"`
	Verification       string `json:"verification"`
}

// IntakeStage collects the job description, company description and interview type.
type IntakeStage struct {
	gen             *Generator
	fetcher         JobPostingFetcher
	maxFetchURLs    int
	maxPostingRunes int
}

// IntakeOption configures an IntakeStage.
type IntakeOption func(*IntakeStage)

// WithJobPostingFetcher enables fetching job posting links found in user messages.
func WithJobPostingFetcher(f JobPostingFetcher, maxURLs, maxRunes int) IntakeOption {
	return func(s *IntakeStage) {
		s.fetcher = f
		if maxURLs > 0 {
			s.maxFetchURLs = maxURLs
		}
		if maxRunes > 0 {
			s.maxPostingRunes = maxRunes
		}
	}
}

// NewIntakeStage creates the intake stage.
func NewIntakeStage(gen *Generator, opts ...IntakeOption) *IntakeStage {
	s := &IntakeStage{
		gen:             gen,
		maxFetchURLs:    DefaultMaxFetchURLs,
		maxPostingRunes: DefaultMaxPostingRunes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Stage.
func (s *IntakeStage) Name() types.Stage { return types.StageIntake }

// Run implements Stage.
func (s *IntakeStage) Run(ctx context.Context, state *types.ConversationState) (*Result, error) {
	if state.IntakeComplete {
		return Advance("").WithReason("intake_already_complete"), nil
	}

	notes := s.enrich(ctx, state)
	transcript := state.Transcript()
	for _, n := range notes {
		transcript += "\nSystem: " + n
	}

	var reply intakeReply
	err := s.gen.generate(ctx, types.StageIntake, prompts.KeyIntake, contextData(state, transcript),
		schemas.Intake, llm.TierStandard, &reply)
	if err != nil {
		return nil, err
	}

	if reply.NeedClarification {
		question := strings.TrimSpace(reply.Question)
		if question == "" {
			return nil, &ContractViolationError{Stage: types.StageIntake, Detail: "clarification requested without a question"}
		}
		return Continue(question).WithNotes(notes...).WithReason("needs_clarification"), nil
	}

	captured := InterviewContext{
		JobDescription:     strings.TrimSpace(reply.JobDescription),
		CompanyDescription: strings.TrimSpace(reply.CompanyDescription),
		InterviewType:      types.NormalizeInterviewType(reply.InterviewType),
	}
	if missing := missingContext(captured); len(missing) > 0 {
		return nil, &ContractViolationError{
			Stage:  types.StageIntake,
			Detail: fmt.Sprintf("ready without %s", strings.Join(missing, ", ")),
		}
	}

	return Advance(strings.TrimSpace(reply.Verification)).
		WithContext(captured).
		WithNotes(notes...).
		WithReason("ready"), nil
}

func missingContext(c InterviewContext) []string {
	var missing []string
	if c.JobDescription == "" {
		missing = append(missing, "job_description")
	}
	if c.CompanyDescription == "" {
		missing = append(missing, "company_description")
	}
	if c.InterviewType == "" {
		missing = append(missing, "interview_type")
	}
	return missing
}

// enrich fetches job posting links from the latest user message. Failures are logged and skipped.
func (s *IntakeStage) enrich(ctx context.Context, state *types.ConversationState) []string {
	if s.fetcher == nil {
		return nil
	}

	var notes []string
	for _, url := range s.newLinks(state) {
		text, err := s.fetcher.FetchJobPosting(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("thread_id", state.ThreadID).Str("url", url).Msg("job posting fetch failed")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		notes = append(notes, jobPostingNotePrefix+url+":\n"+truncateRunes(text, s.maxPostingRunes))
	}
	return notes
}

// newLinks returns links in the latest user message that have not been fetched on an earlier turn.
func (s *IntakeStage) newLinks(state *types.ConversationState) []string {
	fetched := map[string]bool{}
	for _, m := range state.Messages {
		if m.Role != types.RoleSystem || !strings.HasPrefix(m.Content, jobPostingNotePrefix) {
			continue
		}
		header, _, _ := strings.Cut(strings.TrimPrefix(m.Content, jobPostingNotePrefix), ":\n")
		fetched[header] = true
	}

	var links []string
	for _, raw := range urlPattern.FindAllString(state.LastUserMessage(), -1) {
		url := strings.TrimRight(raw, ".,;:!?")
		if fetched[url] {
			continue
		}
		fetched[url] = true
		links = append(links, url)
		if len(links) == s.maxFetchURLs {
			break
		}
	}
	return links
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
