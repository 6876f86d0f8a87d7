// Package llmtest provides llm.Client test doubles shared by the stage and controller tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/interview-coach/internal/llm"
)

// MockLLMClient implements llm.Client with overridable function fields.
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error
}

// GenerateContent delegates to GenerateContentFunc.
func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

// GenerateJSON delegates to GenerateJSONFunc.
func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

// GetModel delegates to GetModelFunc.
func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

// Close delegates to CloseFunc.
func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Reply is one scripted response: Body is returned as-is unless Err is set.
type Reply struct {
	Body string
	Err  error
}

// ScriptedClient answers GenerateJSON from per-schema queues. The schema is recognized by the
// "title" line that BuildStructuredPrompt embeds in every prompt.
type ScriptedClient struct {
	mu      sync.Mutex
	queues  map[string][]Reply
	Prompts []string
}

// NewScriptedClient returns an empty script.
func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{queues: make(map[string][]Reply)}
}

// Schema titles used as queue keys
const (
	IntakeTitle    = "IntakeResult"
	InterviewTitle = "InterviewTurn"
	ScorecardTitle = "EvaluatorScorecard"
)

// Push queues replies for the schema title.
func (s *ScriptedClient) Push(title string, replies ...Reply) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[title] = append(s.queues[title], replies...)
	return s
}

// PushJSON queues successful bodies for the schema title.
func (s *ScriptedClient) PushJSON(title string, bodies ...string) *ScriptedClient {
	for _, b := range bodies {
		s.Push(title, Reply{Body: b})
	}
	return s
}

// Calls returns how many prompts have been received.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// Remaining returns the number of unconsumed replies for title.
func (s *ScriptedClient) Remaining(title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[title])
}

// GenerateJSON pops the next reply for the schema named in prompt.
func (s *ScriptedClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)

	for title, q := range s.queues {
		if !strings.Contains(prompt, `"title": "`+title+`"`) {
			continue
		}
		if len(q) == 0 {
			return "", fmt.Errorf("llmtest: no scripted reply left for %s", title)
		}
		next := q[0]
		s.queues[title] = q[1:]
		return next.Body, next.Err
	}
	return "", fmt.Errorf("llmtest: no script for prompt")
}

// GenerateContent behaves like GenerateJSON.
func (s *ScriptedClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

// GetModel returns a fixed name.
func (s *ScriptedClient) GetModel(llm.ModelTier) string { return "scripted-model" }

// Close is a no-op.
func (s *ScriptedClient) Close() error { return nil }
