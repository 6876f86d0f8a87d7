package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(reason genai.FinishReason, parts ...genai.Part) *genai.Candidate {
	return &genai.Candidate{FinishReason: reason, Content: &genai.Content{Role: "model", Parts: parts}}
}

func TestExtractTextFromResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr string
	}{
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonStop, genai.Text(`{"question":`), genai.Text(`"Why Go?"}`)),
			}},
			want: `{"question":"Why Go?"}`,
		},
		{name: "nil response", resp: nil, wantErr: "no candidates"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: "no candidates"},
		{
			name: "blocked prompt",
			resp: &genai.GenerateContentResponse{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}},
			wantErr: "prompt blocked",
		},
		{
			name: "safety stop",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonSafety, genai.Text("partial")),
			}},
			wantErr: "response stopped",
		},
		{
			name: "recitation stop",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonRecitation, genai.Text("partial")),
			}},
			wantErr: "response stopped",
		},
		{
			name: "no text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonStop, genai.Blob{MIMEType: "image/png", Data: []byte{0x89}}),
			}},
			wantErr: "no text parts",
		},
		{
			name:    "empty content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}},
			wantErr: "no content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractTextFromResponse(tt.resp)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
