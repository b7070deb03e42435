package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/gate"
	"golang.org/x/sync/errgroup"
)

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	// BatchEmbedding returns one vector per text, in input order.
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type gatedEmbedder struct {
	inner   Embedder
	gate    *gate.Gate
	timeout time.Duration
}

// NewGatedEmbedder routes every provider call of inner through g, each bounded by timeout.
func NewGatedEmbedder(inner Embedder, g *gate.Gate, timeout time.Duration) Embedder {
	return &gatedEmbedder{inner: inner, gate: g, timeout: timeout}
}

// GetEmbedding embeds a search query.
func (e *gatedEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return e.call(ctx, func(ctx context.Context) ([]float32, error) {
		return e.inner.GetEmbedding(ctx, text)
	})
}

// embedDocument embeds one stored passage through the inner batch call.
func (e *gatedEmbedder) embedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.call(ctx, func(ctx context.Context) ([]float32, error) {
		vectors, err := e.inner.BatchEmbedding(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("got %d vectors for one text", len(vectors))
		}
		return vectors[0], nil
	})
}

func (e *gatedEmbedder) call(ctx context.Context, fn func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	var vector []float32
	err := e.gate.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		v, err := fn(callCtx)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, wrapEmbeddingError(err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector returned", commonModels.ErrEmbedding)
	}
	return vector, nil
}

// BatchEmbedding fans texts out through the gate. The first failure cancels the rest.
func (e *gatedEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)

	for i, text := range texts {
		g.Go(func() error {
			v, err := e.embedDocument(gctx, text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// report cancellation of the caller as such, not as a provider fault
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return vectors, nil
}

func wrapEmbeddingError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, commonModels.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", commonModels.ErrEmbedding, err)
}
