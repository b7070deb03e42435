package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
)

type mockProvider struct {
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
	calls      int
	last       llm.Request
}

func (m *mockProvider) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	m.last = req
	return m.OnGenerate(ctx, req)
}

const validReply = `{"question": "Where does the Calvin cycle run?",
 "choices": [{"label": "a", "text": "Stroma"}, {"label": "B", "text": "Thylakoid"}, {"label": "C", "text": "Cytosol"}, {"label": "D", "text": "Nucleus"}],
 "answer": "A", "rationale": "Passage 1 places it in the stroma."}`

func newTestGenerator(p llm.Provider) *Generator {
	g := New(p)
	g.retryWait = 0
	return g
}

func testRequest() Request {
	return Request{
		Topic:       "photosynthesis",
		Contexts:    []commonModels.RetrievedChunk{{Content: "The Calvin cycle runs in the stroma."}},
		VariationID: 3,
		Diversity:   0.5,
		NumChoices:  4,
	}
}

func TestGenerate_Success(t *testing.T) {
	p := &mockProvider{OnGenerate: func(context.Context, llm.Request) (string, error) { return validReply, nil }}
	got := newTestGenerator(p).Generate(context.Background(), testRequest())

	if got.Fallback {
		t.Fatalf("unexpected fallback: %s", got.FallbackReason)
	}
	if got.Record.Answer != "A" || got.Record.Choices[0].Label != "A" {
		t.Errorf("labels not normalized: %+v", got.Record)
	}
	if got.Record.Evidence != "" {
		t.Errorf("missing evidence should default to empty, got %q", got.Record.Evidence)
	}
	if !strings.Contains(p.last.Prompt, "#3") {
		t.Error("variation id missing from prompt")
	}
}

func TestGenerate_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantReason string
		wantCalls  int
	}{
		{"provider error retried", "", errors.New("503"), ReasonProviderError, 2},
		{"malformed", "I'd rather not", nil, ReasonMalformedOutput, 1},
		{"wrong choice count", `{"question":"q","choices":[{"label":"A","text":"x"}],"answer":"A","rationale":"r"}`, nil, ReasonInvalidRecord, 1},
		{"answer not a choice", strings.Replace(validReply, `"answer": "A"`, `"answer": "Z"`, 1), nil, ReasonInvalidRecord, 1},
		{"missing rationale", strings.Replace(validReply, `"Passage 1 places it in the stroma."`, `""`, 1), nil, ReasonInvalidRecord, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{OnGenerate: func(context.Context, llm.Request) (string, error) { return tt.reply, tt.err }}
			got := newTestGenerator(p).Generate(context.Background(), testRequest())

			if !got.Fallback || got.FallbackReason != tt.wantReason {
				t.Fatalf("got fallback=%v reason=%q, want %q", got.Fallback, got.FallbackReason, tt.wantReason)
			}
			if got.Record.Question != "photosynthesis" || len(got.Record.Choices) != 0 || got.Record.Rationale != "" {
				t.Errorf("fallback record not well formed: %+v", got.Record)
			}
			if p.calls != tt.wantCalls {
				t.Errorf("provider called %d times, want %d", p.calls, tt.wantCalls)
			}
		})
	}
}

func TestGenerate_RecoversOnRetry(t *testing.T) {
	p := &mockProvider{}
	p.OnGenerate = func(context.Context, llm.Request) (string, error) {
		if p.calls == 1 {
			return "", errors.New("timeout")
		}
		return validReply, nil
	}
	got := newTestGenerator(p).Generate(context.Background(), testRequest())
	if got.Fallback {
		t.Errorf("second attempt should have succeeded: %s", got.FallbackReason)
	}
}

func TestSamplingFor(t *testing.T) {
	temp, presence, frequency := SamplingFor(0)
	if temp != 0.2 || presence != 0 || frequency != 0 {
		t.Errorf("diversity 0 = %f %f %f", temp, presence, frequency)
	}
	temp, presence, frequency = SamplingFor(5)
	if temp < 0.899 || temp > 0.901 || presence < 0.599 || frequency < 0.399 {
		t.Errorf("diversity clamped to 1 = %f %f %f", temp, presence, frequency)
	}
	low, _, _ := SamplingFor(0.2)
	high, _, _ := SamplingFor(0.8)
	if low >= high {
		t.Error("temperature should grow with diversity")
	}
}

func TestBuildPrompt(t *testing.T) {
	req := testRequest()
	req.AvoidQuestions = []string{"What is chlorophyll?"}
	prompt := BuildPrompt(req)
	for _, want := range []string{"photosynthesis", "[1] The Calvin cycle", "What is chlorophyll?", "A, B, C, D"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNormalize_AnswerByText(t *testing.T) {
	rec := commonModels.GeneratedRecord{
		Question:  "q",
		Choices:   []commonModels.Choice{{Text: "x"}, {Text: "y"}},
		Answer:    "y",
		Rationale: "r",
	}
	got, err := Normalize(rec, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answer != "B" || got.Choices[0].Label != "A" {
		t.Errorf("Normalize = %+v", got)
	}
}
