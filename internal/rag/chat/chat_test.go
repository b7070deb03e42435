package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
)

type mockProvider struct {
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
	last       llm.Request
}

func (m *mockProvider) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	m.last = req
	return m.OnGenerate(ctx, req)
}

func passages(contents ...string) []commonModels.ScoredChunk {
	out := make([]commonModels.ScoredChunk, len(contents))
	for i, c := range contents {
		out[i] = commonModels.ScoredChunk{DocChunk: commonModels.DocChunk{Index: i, Page: i + 1, Content: c}, Score: 1}
	}
	return out
}

func TestAnswer(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		want    string
		wantErr error
	}{
		{"plain", `{"answer": "In the stroma."}`, nil, "In the stroma.", nil},
		{"fenced", "```json\n{\"answer\": \" Stroma \"}\n```", nil, "Stroma", nil},
		{"empty answer", `{"answer": "  "}`, nil, "", commonModels.ErrMalformedOutput},
		{"not json", "The stroma.", nil, "", commonModels.ErrMalformedOutput},
		{"provider down", "", commonModels.ErrGeneration, "", commonModels.ErrGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{OnGenerate: func(context.Context, llm.Request) (string, error) { return tt.reply, tt.err }}
			got, err := New(p).Answer(context.Background(), Request{Question: "Where?", Passages: passages("stroma")})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("answer = %q, want %q", got, tt.want)
			}
			if p.last.SystemInstruction != config.AskSystemPrompt {
				t.Errorf("system instruction = %q", p.last.SystemInstruction)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(Request{
		Question: "What fixes carbon?",
		Passages: passages("The Calvin cycle fixes carbon.", "Light reactions make ATP."),
		History: []commonModels.ChatExchange{
			{Question: "second?", Answer: "two"},
			{Question: "first?", Answer: "one"},
		},
	})

	for _, want := range []string{
		"Context 1 (page 1):\nThe Calvin cycle fixes carbon.",
		"Context 2 (page 2):\nLight reactions make ATP.",
		"Question: What fixes carbon?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
	if strings.Index(prompt, "first?") > strings.Index(prompt, "second?") {
		t.Error("history should be replayed oldest first")
	}
	if strings.Contains(BuildPrompt(Request{Question: "q"}), "Earlier in this conversation") {
		t.Error("empty history should not add a conversation block")
	}
}
