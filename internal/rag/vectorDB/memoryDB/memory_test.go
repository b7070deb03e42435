package memoryDB

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
)

func keys(matches []vectorDB.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Key
	}
	return out
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIndex_SearchOrdering(t *testing.T) {
	ctx := context.Background()

	t.Run("by similarity", func(t *testing.T) {
		ix := New(3)
		_ = ix.Insert(ctx, "x", []float32{1, 0, 0}, nil)
		_ = ix.Insert(ctx, "y", []float32{0, 1, 0}, nil)
		_ = ix.Insert(ctx, "z", []float32{0.9, 0.1, 0}, nil)

		got, err := ix.Search(ctx, []float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if !equalKeys(keys(got), []string{"x", "z"}) {
			t.Errorf("got %v, want [x z]", keys(got))
		}
		if math.Abs(got[0].Score-1) > 1e-6 || math.Abs(got[1].Score-0.9939) > 1e-3 {
			t.Errorf("unexpected scores %f, %f", got[0].Score, got[1].Score)
		}
	})

	t.Run("ties by insertion order", func(t *testing.T) {
		ix := New(2)
		_ = ix.Insert(ctx, "b", []float32{1, 0}, nil)
		_ = ix.Insert(ctx, "a", []float32{2, 0}, nil)
		_ = ix.Insert(ctx, "c", []float32{3, 0}, nil)

		got, _ := ix.Search(ctx, []float32{1, 0}, 3)
		if !equalKeys(keys(got), []string{"b", "a", "c"}) {
			t.Errorf("got %v, want [b a c]", keys(got))
		}
	})
}

func TestIndex_DimensionGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed dimension", func(t *testing.T) {
		ix := New(3)
		err := ix.Insert(ctx, "a", []float32{1, 2}, nil)
		if !errors.Is(err, commonModels.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
		if n, _ := ix.Len(ctx); n != 0 {
			t.Errorf("index should be unchanged, has %d entries", n)
		}
	})

	t.Run("first insert decides", func(t *testing.T) {
		ix := New(0)
		if err := ix.Insert(ctx, "a", []float32{1, 2}, nil); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}
		if ix.Dimension() != 2 {
			t.Errorf("Dimension = %d, want 2", ix.Dimension())
		}
		err := ix.Insert(ctx, "b", []float32{1, 2, 3}, nil)
		var dimErr *commonModels.DimensionError
		if !errors.As(err, &dimErr) {
			t.Fatalf("expected DimensionError, got %v", err)
		}
		if dimErr.Want != 2 || dimErr.Got != 3 {
			t.Errorf("DimensionError = %+v", dimErr)
		}
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		ix := New(2)
		err := ix.InsertBatch(ctx, []vectorDB.Entry{
			{Key: "ok", Vector: []float32{1, 0}},
			{Key: "bad", Vector: []float32{1}},
		})
		if !errors.Is(err, commonModels.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
		if _, ok := ix.Get("ok"); ok {
			t.Error("valid entry of a rejected batch was stored")
		}
	})
}

func TestIndex_EmptyAndEdgeCases(t *testing.T) {
	ctx := context.Background()
	ix := New(2)

	got, err := ix.Search(ctx, []float32{1, 0}, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty index: got %v, %v", got, err)
	}

	_ = ix.Insert(ctx, "a", []float32{1, 0}, nil)
	_ = ix.Insert(ctx, "zero", []float32{0, 0}, nil)

	got, _ = ix.Search(ctx, []float32{1, 0}, 10)
	if len(got) != 2 {
		t.Fatalf("k larger than index should return all, got %d", len(got))
	}
	if got[1].Key != "zero" || got[1].Score != 0 {
		t.Errorf("zero vector should score 0, got %+v", got[1])
	}

	got, _ = ix.Search(ctx, []float32{1, 0}, 0)
	if len(got) != 0 {
		t.Errorf("k=0 should return nothing, got %d", len(got))
	}

	if err := ix.Remove(ctx, "missing"); err != nil {
		t.Errorf("removing an absent key should be a no-op, got %v", err)
	}
}

func TestIndex_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ix := New(3)
	meta := map[string]string{"document_id": "doc1"}

	if err := ix.Insert(ctx, "doc1_chunk_0", []float32{0.2, 0.4, 0.1}, meta); err != nil {
		t.Fatal(err)
	}
	meta["document_id"] = "mutated"

	got, _ := ix.Search(ctx, []float32{0.2, 0.4, 0.1}, 1)
	if len(got) != 1 || got[0].Key != "doc1_chunk_0" {
		t.Fatalf("round trip failed: %v", got)
	}
	if got[0].Metadata["document_id"] != "doc1" {
		t.Errorf("stored metadata aliased caller map: %v", got[0].Metadata)
	}

	// overwrite keeps the original insertion position
	_ = ix.Insert(ctx, "other", []float32{0.2, 0.4, 0.1}, nil)
	_ = ix.Insert(ctx, "doc1_chunk_0", []float32{0.2, 0.4, 0.1}, map[string]string{"v": "2"})
	got, _ = ix.Search(ctx, []float32{0.2, 0.4, 0.1}, 2)
	if !equalKeys(keys(got), []string{"doc1_chunk_0", "other"}) {
		t.Errorf("overwrite reordered ties: %v", keys(got))
	}
	if got[0].Metadata["v"] != "2" {
		t.Errorf("overwrite did not replace metadata: %v", got[0].Metadata)
	}

	_ = ix.Remove(ctx, "doc1_chunk_0", "other")
	if n, _ := ix.Len(ctx); n != 0 {
		t.Errorf("Len after remove = %d", n)
	}
}

func TestIndex_SearchFiltered(t *testing.T) {
	ctx := context.Background()
	ix := New(2)
	_ = ix.Insert(ctx, "a0", []float32{1, 0}, map[string]string{"document_id": "A"})
	_ = ix.Insert(ctx, "b0", []float32{1, 0}, map[string]string{"document_id": "B"})
	_ = ix.Insert(ctx, "c0", []float32{1, 0}, map[string]string{"document_id": "C"})
	_ = ix.Insert(ctx, "none", []float32{1, 0}, nil)

	filter := vectorDB.Filter{Must: map[string][]string{"document_id": {"A", "C"}}}
	got, err := ix.SearchFiltered(ctx, []float32{1, 0}, 10, filter)
	if err != nil {
		t.Fatal(err)
	}
	if !equalKeys(keys(got), []string{"a0", "c0"}) {
		t.Errorf("filtered search = %v, want [a0 c0]", keys(got))
	}
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	ix := New(2)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = ix.Insert(ctx, string(rune('a'+i%26))+"_k", []float32{float32(i), 1}, nil)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = ix.Search(ctx, []float32{1, 1}, 3)
		}()
	}
	wg.Wait()

	if n, _ := ix.Len(ctx); n != 26 {
		t.Errorf("Len = %d, want 26 distinct keys", n)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vectorDB.CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f fixedEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func TestSearchByText(t *testing.T) {
	ctx := context.Background()
	ix := New(2)
	_ = ix.Insert(ctx, "x", []float32{1, 0}, nil)
	_ = ix.Insert(ctx, "y", []float32{0, 1}, nil)

	got, err := vectorDB.SearchByText(ctx, ix, fixedEmbedder{vector: []float32{0, 1}}, "anything", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !equalKeys(keys(got), []string{"y"}) {
		t.Errorf("SearchByText = %v", keys(got))
	}

	_, err = vectorDB.SearchByText(ctx, ix, fixedEmbedder{err: errors.New("quota")}, "anything", 1)
	if !errors.Is(err, commonModels.ErrEmbedding) {
		t.Errorf("expected ErrEmbedding, got %v", err)
	}
}

func TestIndex_QueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ix := New(3)

	if got, err := ix.Search(ctx, []float32{1, 0}, 3); err != nil || len(got) != 0 {
		t.Fatalf("empty index: got %v, %v", got, err)
	}

	_ = ix.Insert(ctx, "x", []float32{1, 0, 0}, nil)
	got, err := ix.Search(ctx, []float32{1, 0}, 3)
	var dimErr *commonModels.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v, %v", got, err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("DimensionError = %+v", dimErr)
	}
}
