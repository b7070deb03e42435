package rag_test

import (
	"context"
	"strings"
	"sync"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
)

// MockEmbedder implements embedding.Embedder. By default text is embedded as counts of a, b and c.
type MockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func letterVector(text string) []float32 {
	return []float32{
		float32(strings.Count(text, "a")) + 0.1,
		float32(strings.Count(text, "b")) + 0.1,
		float32(strings.Count(text, "c")) + 0.1,
	}
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return letterVector(text), nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.GetEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MockLLM implements llm.Provider and routes each call by its system instruction.
type MockLLM struct {
	OnExpand   func(ctx context.Context, req llm.Request) (string, error)
	OnQuestion func(ctx context.Context, req llm.Request) (string, error)
	OnTopics   func(ctx context.Context, req llm.Request) (string, error)
	OnAsk      func(ctx context.Context, req llm.Request) (string, error)

	mu            sync.Mutex
	QuestionCalls int
	LastQuestion  llm.Request
	AskCalls      int
	LastAsk       llm.Request
}

const defaultQuestionReply = `{"question": "Which letter dominates the passage?",
 "choices": [{"label": "A", "text": "a"}, {"label": "B", "text": "b"}, {"label": "C", "text": "c"}, {"label": "D", "text": "d"}],
 "answer": "A", "rationale": "The first passage is mostly a."}`

func (m *MockLLM) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	switch req.SystemInstruction {
	case config.ExpansionSystemPrompt:
		if m.OnExpand != nil {
			return m.OnExpand(ctx, req)
		}
		return `{"queries": ["a", "b", "c", "ab", "bc", "ca"]}`, nil
	case config.TopicSystemPrompt:
		if m.OnTopics != nil {
			return m.OnTopics(ctx, req)
		}
		return `{"topics": ["Letters"]}`, nil
	case config.AskSystemPrompt:
		m.mu.Lock()
		m.AskCalls++
		m.LastAsk = req
		m.mu.Unlock()
		if m.OnAsk != nil {
			return m.OnAsk(ctx, req)
		}
		return `{"answer": "Mostly the letter a."}`, nil
	default:
		m.mu.Lock()
		m.QuestionCalls++
		m.LastQuestion = req
		m.mu.Unlock()
		if m.OnQuestion != nil {
			return m.OnQuestion(ctx, req)
		}
		return defaultQuestionReply, nil
	}
}

// MapCache implements expander.Cache.
type MapCache struct {
	mu      sync.Mutex
	Entries map[string][]string
}

func (c *MapCache) GetQueries(ctx context.Context, topic string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.Entries[topic]
	return q, ok
}

func (c *MapCache) SaveQueries(ctx context.Context, topic string, queries []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Entries == nil {
		c.Entries = map[string][]string{}
	}
	c.Entries[topic] = queries
	return nil
}
