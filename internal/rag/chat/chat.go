// Package chat answers free-form questions about one document from its best matching passages.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

type Responder struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

// New expects a gated provider.
func New(provider llm.Provider) *Responder {
	return &Responder{provider: provider, logger: logger_i.NewLogger("chat")}
}

type Request struct {
	Question string
	Passages []commonModels.ScoredChunk
	// History is newest first, as the history store returns it.
	History []commonModels.ChatExchange
}

type answerReply struct {
	Answer string `json:"answer"`
}

func (r *Responder) Answer(ctx context.Context, req Request) (string, error) {
	raw, err := r.provider.GenerateJSON(ctx, llm.Request{
		SystemInstruction: config.AskSystemPrompt,
		Prompt:            BuildPrompt(req),
		Temperature:       config.AskTemperature,
	})
	if err != nil {
		return "", err
	}

	var reply answerReply
	if err = llm.DecodeJSON(raw, &reply); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(reply.Answer)
	if answer == "" {
		r.logger.WithTrace(ctx).Warn("model returned an empty answer")
		return "", fmt.Errorf("%w: empty answer", commonModels.ErrMalformedOutput)
	}
	return answer, nil
}

func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Use only the information from the document context to answer the question. ")
	b.WriteString("If the context does not contain enough information, say so.\n\nDocument context:\n")
	for i, p := range req.Passages {
		fmt.Fprintf(&b, "\nContext %d (page %d):\n%s\n", i+1, p.Page, p.Content)
	}

	if len(req.History) > 0 {
		b.WriteString("\nEarlier in this conversation:\n")
		for i := len(req.History) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", req.History[i].Question, req.History[i].Answer)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", req.Question)
	b.WriteString(`Reply with a JSON object of the form {"answer": "..."}.`)
	return b.String()
}
