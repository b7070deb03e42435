// Package memoryDB is an in-process exact vector index using brute-force cosine similarity.
package memoryDB

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
)

type entry struct {
	seq      uint64
	vector   []float32
	metadata map[string]string
}

type Index struct {
	mu        sync.RWMutex
	fixedDim  int
	dimension int
	nextSeq   uint64
	entries   map[string]*entry
}

// New returns an empty index. dimension 0 lets the first insert into an empty index decide it.
func New(dimension int) *Index {
	return &Index{
		fixedDim:  dimension,
		dimension: dimension,
		entries:   make(map[string]*entry),
	}
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

func (ix *Index) Len(_ context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries), nil
}

func (ix *Index) Insert(ctx context.Context, key string, vector []float32, metadata map[string]string) error {
	return ix.InsertBatch(ctx, []vectorDB.Entry{{Key: key, Vector: vector, Metadata: metadata}})
}

func (ix *Index) InsertBatch(ctx context.Context, entries []vectorDB.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	if dim == 0 || (len(ix.entries) == 0 && ix.fixedDim == 0) {
		dim = len(entries[0].Vector)
	}
	for _, e := range entries {
		if len(e.Vector) != dim || dim == 0 {
			return &commonModels.DimensionError{Key: e.Key, Want: dim, Got: len(e.Vector)}
		}
	}

	ix.dimension = dim
	for _, e := range entries {
		vec := slices.Clone(e.Vector)
		meta := maps.Clone(e.Metadata)
		if existing, ok := ix.entries[e.Key]; ok {
			existing.vector = vec
			existing.metadata = meta
			continue
		}
		ix.entries[e.Key] = &entry{seq: ix.nextSeq, vector: vec, metadata: meta}
		ix.nextSeq++
	}
	return nil
}

func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	return ix.SearchFiltered(ctx, vector, k, vectorDB.Filter{})
}

func (ix *Index) SearchFiltered(ctx context.Context, vector []float32, k int, filter vectorDB.Filter) ([]vectorDB.Match, error) {
	if k <= 0 {
		return []vectorDB.Match{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		key   string
		seq   uint64
		score float64
		e     *entry
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) > 0 && len(vector) != ix.dimension {
		return nil, &commonModels.DimensionError{Key: "query", Want: ix.dimension, Got: len(vector)}
	}

	candidates := make([]scored, 0, len(ix.entries))
	for key, e := range ix.entries {
		if !filter.Accepts(e.metadata) {
			continue
		}
		candidates = append(candidates, scored{key: key, seq: e.seq, score: vectorDB.CosineSimilarity(vector, e.vector), e: e})
	}

	// score descending, then insertion order
	slices.SortFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]vectorDB.Match, 0, k)
	for _, c := range candidates[:k] {
		out = append(out, vectorDB.Match{
			Key:      c.key,
			Score:    c.score,
			Vector:   slices.Clone(c.e.vector),
			Metadata: maps.Clone(c.e.metadata),
		})
	}
	return out, nil
}

func (ix *Index) Remove(_ context.Context, keys ...string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, key := range keys {
		delete(ix.entries, key)
	}
	if len(ix.entries) == 0 && ix.fixedDim == 0 {
		ix.dimension = 0
	}
	return nil
}

// Get returns a copy of the stored entry.
func (ix *Index) Get(key string) (vectorDB.Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[key]
	if !ok {
		return vectorDB.Entry{}, false
	}
	return vectorDB.Entry{Key: key, Vector: slices.Clone(e.vector), Metadata: maps.Clone(e.metadata)}, true
}
