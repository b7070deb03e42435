package vectorDB

import (
	"context"
	"fmt"
	"math"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
)

type Entry struct {
	Key      string
	Vector   []float32
	Metadata map[string]string
}

type Match struct {
	Key      string
	Score    float64
	Vector   []float32
	Metadata map[string]string
}

// Filter keeps entries whose metadata value for every key is one of the listed values.
type Filter struct {
	Must map[string][]string
}

func (f Filter) Accepts(metadata map[string]string) bool {
	for field, allowed := range f.Must {
		v, ok := metadata[field]
		if !ok {
			return false
		}
		found := false
		for _, a := range allowed {
			if a == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Index is an exact top-k cosine similarity store keyed by opaque strings.
// Search never mutates; Insert, InsertBatch and Remove serialize against each other and against Search.
type Index interface {
	Insert(ctx context.Context, key string, vector []float32, metadata map[string]string) error
	// InsertBatch applies every entry or none of them.
	InsertBatch(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	SearchFiltered(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)
	// Remove is a no-op for absent keys.
	Remove(ctx context.Context, keys ...string) error
	Len(ctx context.Context) (int, error)
	Dimension() int
}

type TextEmbedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

func SearchByText(ctx context.Context, index Index, embedder TextEmbedder, text string, k int) ([]Match, error) {
	vector, err := embedder.GetEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", commonModels.ErrEmbedding, err)
	}
	return index.Search(ctx, vector, k)
}

// CosineSimilarity is dot(a,b)/(|a||b|); a zero vector scores 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
