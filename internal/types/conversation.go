// Package types provides type definitions for structured data used throughout the interview-coach system.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

// Message roles
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Stage is the position of a conversation in the intake -> interview -> evaluation flow.
type Stage string

// Conversation stages, in forward order
const (
	StageIntake     Stage = "intake"
	StageInterview  Stage = "interview"
	StageEvaluation Stage = "evaluation"
	StageDone       Stage = "done"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageIntake, StageInterview, StageEvaluation, StageDone:
		return true
	}
	return false
}

// Next returns the stage that follows s. Done is terminal and returns itself.
func (s Stage) Next() Stage {
	switch s {
	case StageIntake:
		return StageInterview
	case StageInterview:
		return StageEvaluation
	default:
		return StageDone
	}
}

// InterviewType is the category of interview the user is preparing for.
type InterviewType string

// Known interview types
const (
	InterviewTechnical      InterviewType = "Technical"
	InterviewBehavioral     InterviewType = "Behavioral"
	InterviewCaseStudy      InterviewType = "Case Study"
	InterviewHiringManager  InterviewType = "Hiring Manager"
	interviewTypeUnassigned InterviewType = ""
)

var knownInterviewTypes = []InterviewType{
	InterviewTechnical,
	InterviewBehavioral,
	InterviewCaseStudy,
	InterviewHiringManager,
}

// NormalizeInterviewType maps case and spacing variants of a known interview type onto its
// canonical spelling. Unknown values are returned trimmed but otherwise unchanged.
func NormalizeInterviewType(raw string) InterviewType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return interviewTypeUnassigned
	}
	key := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(trimmed))
	key = strings.Join(strings.Fields(key), " ")
	for _, known := range knownInterviewTypes {
		if strings.ToLower(string(known)) == key {
			return known
		}
	}
	// "behavioural" is common outside the US
	if key == "behavioural" {
		return InterviewBehavioral
	}
	return InterviewType(trimmed)
}

// ConversationState is the persisted per-thread record.
type ConversationState struct {
	ThreadID              string        `json:"thread_id"`
	Messages              []Message     `json:"messages"`
	Stage                 Stage         `json:"stage"`
	JobDescription        string        `json:"job_description,omitempty"`
	CompanyDescription    string        `json:"company_description,omitempty"`
	InterviewType         InterviewType `json:"interview_type,omitempty"`
	IntakeComplete        bool          `json:"intake_complete"`
	EndInterviewRequested bool          `json:"end_interview_requested"`
	Scorecard             *Scorecard    `json:"scorecard,omitempty"`
	Version               int64         `json:"version"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// NewConversationState returns an empty, never-persisted state at the intake stage.
func NewConversationState(threadID string, now time.Time) *ConversationState {
	return &ConversationState{
		ThreadID:  threadID,
		Messages:  []Message{},
		Stage:     StageIntake,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds a message to the history.
func (s *ConversationState) AppendMessage(role Role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, CreatedAt: now})
	s.UpdatedAt = now
}

// LastAssistantMessage returns the content of the most recent assistant message, or "".
func (s *ConversationState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastUserMessage returns the content of the most recent user message, or "".
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Transcript renders the history as prompt text, one "Speaker: content" line per message.
func (s *ConversationState) Transcript() string {
	var sb strings.Builder
	for i, m := range s.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch m.Role {
		case RoleUser:
			sb.WriteString("Human: ")
		case RoleAssistant:
			sb.WriteString("AI: ")
		default:
			sb.WriteString("System: ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// Clone returns a deep copy of the state.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.Scorecard != nil {
		sc := *s.Scorecard
		out.Scorecard = &sc
	}
	return &out
}

// HasContext reports whether all interview context fields are populated.
func (s *ConversationState) HasContext() bool {
	return strings.TrimSpace(s.JobDescription) != "" &&
		strings.TrimSpace(s.CompanyDescription) != "" &&
		strings.TrimSpace(string(s.InterviewType)) != ""
}

// Validate checks the structural invariants of a state before it is persisted.
func (s *ConversationState) Validate() error {
	if strings.TrimSpace(s.ThreadID) == "" {
		return fmt.Errorf("thread_id is required")
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("invalid stage %q", s.Stage)
	}
	if s.Stage == StageDone && s.Scorecard == nil {
		return fmt.Errorf("stage %s requires a scorecard", StageDone)
	}
	if s.Stage != StageDone && s.Scorecard != nil {
		return fmt.Errorf("scorecard present at stage %s", s.Stage)
	}
	if s.Stage != StageIntake && !s.IntakeComplete {
		return fmt.Errorf("stage %s reached without completed intake", s.Stage)
	}
	return nil
}

// ThreadSummary is the listing view of a stored thread.
type ThreadSummary struct {
	ThreadID  string    `json:"thread_id"`
	Stage     Stage     `json:"stage"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the listing view of the state.
func (s *ConversationState) Summary() ThreadSummary {
	return ThreadSummary{ThreadID: s.ThreadID, Stage: s.Stage, Version: s.Version, UpdatedAt: s.UpdatedAt}
}
