package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(reason genai.FinishReason, parts ...genai.Part) *genai.Candidate {
	return &genai.Candidate{
		FinishReason: reason,
		Content:      &genai.Content{Role: "model", Parts: parts},
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonStop, genai.Text(`{"tasks":`), genai.Text(`[]}`)),
			}},
			want: `{"tasks":[]}`,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
			},
			wantErr: ErrBlocked,
		},
		{
			name: "candidate stopped for safety",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonSafety, genai.Text(`{"tasks":[`)),
			}},
			wantErr: ErrBlocked,
		},
		{
			name: "hit the token limit",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonMaxTokens, genai.Text(`{"tasks":[{"title":"Half`)),
			}},
			wantErr: ErrTruncated,
		},
		{
			name: "whitespace only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(genai.FinishReasonStop, genai.Text("  \n")),
			}},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "nil content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{FinishReason: genai.FinishReasonStop},
			}},
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	config := DefaultConfig()
	config.Provider = "openai"

	client, err := NewClient(context.Background(), config, "key", nil)

	assert.Nil(t, client)
	assert.ErrorContains(t, err, `unsupported LLM provider "openai"`)
}
