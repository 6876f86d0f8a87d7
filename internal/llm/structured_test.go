package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/llm/llmtest"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type interviewTurn struct {
	Question     string `json:"question"`
	EndInterview bool   `json:"end_interview"`
}

func TestGenerateStructured_Success(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &llmtest.MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return "```json\n{\"question\": \"Why this company?\", \"end_interview\": false}\n```", nil
		},
	}

	var out interviewTurn
	err := llm.GenerateStructured(context.Background(), client, llm.StructuredRequest{
		Prompt: "Ask the next question.",
		Schema: schemas.Interview,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Why this company?", out.Question)
	assert.False(t, out.EndInterview)
	assert.Equal(t, llm.TierStandard, gotTier)
	assert.True(t, strings.HasPrefix(gotPrompt, "Ask the next question."))
	assert.Contains(t, gotPrompt, `"title": "InterviewTurn"`)
	assert.Contains(t, gotPrompt, "Return ONLY the JSON object")
}

func TestGenerateStructured_Failures(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		replyErr error
		wantKind llm.StructuredErrorKind
	}{
		{name: "call error", replyErr: errors.New("quota exceeded"), wantKind: llm.KindCall},
		{name: "not json", reply: "I cannot help with that", wantKind: llm.KindParse},
		{name: "schema mismatch", reply: `{"question": 42, "end_interview": false}`, wantKind: llm.KindSchema},
		{name: "missing required", reply: `{"question": "Q?"}`, wantKind: llm.KindSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &llmtest.MockLLMClient{
				GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
					return tt.reply, tt.replyErr
				},
			}
			var out interviewTurn
			err := llm.GenerateStructured(context.Background(), client, llm.StructuredRequest{
				Prompt: "p", Schema: schemas.Interview, Tier: llm.TierLite,
			}, &out)
			require.Error(t, err)

			var sErr *llm.StructuredError
			require.True(t, errors.As(err, &sErr))
			assert.Equal(t, tt.wantKind, sErr.Kind)
			assert.Equal(t, schemas.Interview, sErr.Schema)
			if tt.replyErr != nil {
				assert.ErrorIs(t, err, tt.replyErr)
			}
		})
	}
}

func TestGenerateStructured_UnknownSchema(t *testing.T) {
	client := &llmtest.MockLLMClient{}
	err := llm.GenerateStructured(context.Background(), client, llm.StructuredRequest{Schema: "missing.schema.json"}, &interviewTurn{})
	var loadErr *schemas.SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestTokenCounter_Count(t *testing.T) {
	counter, err := llm.NewTokenCounter()
	require.NoError(t, err)

	assert.Greater(t, counter.Count("Tell me about a time you disagreed with your manager."), 5)
	assert.Equal(t, 0, counter.Count(""))

	var nilCounter *llm.TokenCounter
	assert.Equal(t, 3, nilCounter.Count("twelve chars"))
}
