package chunkStore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/embedding"
	"github.com/akolanti/QuizRAG/internal/rag/gate"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB/memoryDB"
)

// letterEmbedder maps text to counts of a, b and c so similarity is easy to reason about.
type letterEmbedder struct {
	failOn string
}

func (l letterEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if l.failOn != "" && strings.Contains(text, l.failOn) {
		return nil, errors.New("provider unavailable")
	}
	return []float32{
		float32(strings.Count(text, "a")),
		float32(strings.Count(text, "b")),
		float32(strings.Count(text, "c")) + 0.01,
	}, nil
}

func (l letterEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := l.GetEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type failingIndex struct {
	*memoryDB.Index
}

func (f failingIndex) InsertBatch(ctx context.Context, entries []vectorDB.Entry) error {
	return errors.New("disk full")
}

func newTestStore(failOn string) (*Store, *memoryDB.Index) {
	ix := memoryDB.New(3)
	em := embedding.NewGatedEmbedder(letterEmbedder{failOn: failOn}, gate.New(5), time.Second)
	return New(ix, em), ix
}

func chunksOf(texts ...string) []commonModels.ChunkInput {
	out := make([]commonModels.ChunkInput, len(texts))
	for i, t := range texts {
		out[i] = commonModels.ChunkInput{Content: t, Page: i/2 + 1}
	}
	return out
}

func TestAddDocument_Ready(t *testing.T) {
	ctx := context.Background()
	store, ix := newTestStore("")

	doc, err := store.AddDocument(ctx, "doc1", chunksOf("aaa", "bbb", "ccc"), commonModels.DocumentInfo{Filename: "notes.pdf", SizeBytes: 42})
	if err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if doc.Status != commonModels.StatusReady || doc.ChunkCount != 3 || doc.Pages != 2 {
		t.Errorf("unexpected document %+v", doc)
	}
	for i := 0; i < 3; i++ {
		e, ok := ix.Get(ChunkKey("doc1", i))
		if !ok {
			t.Fatalf("chunk %d missing from index", i)
		}
		if e.Metadata[MetaChunkIndex] != string(rune('0'+i)) {
			t.Errorf("chunk %d has index metadata %q", i, e.Metadata[MetaChunkIndex])
		}
	}
}

func TestAddDocument_AllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding failure on chunk 3 of 5", func(t *testing.T) {
		store, ix := newTestStore("boom")
		_, err := store.AddDocument(ctx, "doc1", chunksOf("aa", "bb", "boom", "cc", "ab"), commonModels.DocumentInfo{})
		if !errors.Is(err, commonModels.ErrEmbedding) {
			t.Fatalf("expected ErrEmbedding, got %v", err)
		}
		if n, _ := ix.Len(ctx); n != 0 {
			t.Errorf("index holds %d keys for a failed document", n)
		}
		doc, _ := store.GetDocument("doc1")
		if doc.Status != commonModels.StatusError {
			t.Errorf("status = %s, want error", doc.Status)
		}
		if _, err := store.SearchDocument(ctx, "doc1", "aa", 5); !errors.Is(err, commonModels.ErrDocumentNotReady) {
			t.Errorf("search of failed document: %v", err)
		}
	})

	t.Run("index failure", func(t *testing.T) {
		ix := memoryDB.New(3)
		store := New(failingIndex{ix}, letterEmbedder{})
		_, err := store.AddDocument(ctx, "doc1", chunksOf("aa", "bb"), commonModels.DocumentInfo{})
		if err == nil {
			t.Fatal("expected insert failure")
		}
		if n, _ := ix.Len(ctx); n != 0 {
			t.Errorf("index holds %d keys after rollback", n)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		store, ix := newTestStore("")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := store.AddDocument(cctx, "doc1", chunksOf("aa", "bb"), commonModels.DocumentInfo{}); err == nil {
			t.Fatal("expected cancellation error")
		}
		if n, _ := ix.Len(ctx); n != 0 {
			t.Errorf("cancelled ingestion left %d keys", n)
		}
	})

	t.Run("no chunks", func(t *testing.T) {
		store, _ := newTestStore("")
		if _, err := store.AddDocument(ctx, "doc1", nil, commonModels.DocumentInfo{}); !errors.Is(err, commonModels.ErrEmptyDocument) {
			t.Errorf("expected ErrEmptyDocument, got %v", err)
		}
		if len(store.ListDocuments()) != 0 {
			t.Error("empty document should not be registered")
		}
	})
}

func TestAddDocument_Duplicate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("zz")

	if _, err := store.AddDocument(ctx, "doc1", chunksOf("aa"), commonModels.DocumentInfo{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddDocument(ctx, "doc1", chunksOf("bb"), commonModels.DocumentInfo{}); !errors.Is(err, commonModels.ErrDocumentExists) {
		t.Errorf("expected ErrDocumentExists, got %v", err)
	}

	// a document that failed may be ingested again under the same id
	_, _ = store.AddDocument(ctx, "doc2", chunksOf("zz"), commonModels.DocumentInfo{})
	store.embedder = letterEmbedder{}
	if _, err := store.AddDocument(ctx, "doc2", chunksOf("cc"), commonModels.DocumentInfo{}); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
	if got := len(store.ListDocuments()); got != 2 {
		t.Errorf("ListDocuments has %d entries, want 2", got)
	}
}

func TestSearchDocument_ScopedIsolation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("")

	_, _ = store.AddDocument(ctx, "A", chunksOf("aaa", "aab", "abc"), commonModels.DocumentInfo{})
	_, _ = store.AddDocument(ctx, "B", chunksOf("aaaa", "aaab", "aaac"), commonModels.DocumentInfo{})

	got, err := store.SearchDocument(ctx, "A", "aaaa", 5)
	if err != nil {
		t.Fatalf("SearchDocument failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d results, want the 3 chunks of A", len(got))
	}
	for i, c := range got {
		if c.DocumentId != "A" {
			t.Errorf("result %d belongs to %s", i, c.DocumentId)
		}
		if i > 0 && c.Score > got[i-1].Score {
			t.Errorf("results not sorted by score: %v", got)
		}
	}
	if got[0].Content != "aaa" {
		t.Errorf("best match = %q, want aaa", got[0].Content)
	}

	if _, err := store.SearchDocument(ctx, "missing", "a", 3); !errors.Is(err, commonModels.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestSearchReady(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("")

	got, err := store.SearchReady(ctx, []float32{1, 0, 0}, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty store: %v, %v", got, err)
	}

	_, _ = store.AddDocument(ctx, "A", chunksOf("aaa", "bbb"), commonModels.DocumentInfo{})
	got, _ = store.SearchReady(ctx, []float32{1, 0, 0}, 5)
	if len(got) != 2 || got[0].Key != ChunkKey("A", 0) {
		t.Errorf("SearchReady = %v", got)
	}
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	store, ix := newTestStore("")

	_, _ = store.AddDocument(ctx, "A", chunksOf("aa", "bb"), commonModels.DocumentInfo{})
	_, _ = store.AddDocument(ctx, "B", chunksOf("cc"), commonModels.DocumentInfo{})

	if err := store.RemoveDocument(ctx, "A"); err != nil {
		t.Fatalf("RemoveDocument failed: %v", err)
	}
	if n, _ := ix.Len(ctx); n != 1 {
		t.Errorf("index holds %d keys, want 1", n)
	}
	if _, err := store.GetDocument("A"); !errors.Is(err, commonModels.ErrDocumentNotFound) {
		t.Errorf("removed document still registered: %v", err)
	}
	if err := store.RemoveDocument(ctx, "A"); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}

	docs := store.ListDocuments()
	if len(docs) != 1 || docs[0].Id != "B" {
		t.Errorf("ListDocuments = %+v", docs)
	}
}

func TestListDocuments_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("")
	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, _ = store.AddDocument(ctx, id, chunksOf("aa"), commonModels.DocumentInfo{})
	}

	for run := 0; run < 3; run++ {
		docs := store.ListDocuments()
		if len(docs) != 3 || docs[0].Id != "zeta" || docs[1].Id != "alpha" || docs[2].Id != "mid" {
			t.Fatalf("unstable order: %+v", docs)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("boom")
	_, _ = store.AddDocument(ctx, "A", chunksOf("aa", "bb"), commonModels.DocumentInfo{Filename: "a.pdf"})
	_, _ = store.AddDocument(ctx, "bad", chunksOf("boom"), commonModels.DocumentInfo{})
	store.SetTopics("A", []string{"letters"})

	snaps := store.Export()
	if len(snaps) != 1 {
		t.Fatalf("Export returned %d documents, want only the ready one", len(snaps))
	}

	restoredStore, ix := newTestStore("")
	n, err := restoredStore.Restore(ctx, snaps)
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	if size, _ := ix.Len(ctx); size != 2 {
		t.Errorf("restored index holds %d keys", size)
	}
	doc, err := restoredStore.GetDocument("A")
	if err != nil || doc.Filename != "a.pdf" || len(doc.Topics) != 1 {
		t.Errorf("restored document %+v, %v", doc, err)
	}
	got, err := restoredStore.SearchDocument(ctx, "A", "bb", 1)
	if err != nil || len(got) != 1 || got[0].Content != "bb" {
		t.Errorf("search after restore = %v, %v", got, err)
	}

	n, _ = restoredStore.Restore(ctx, snaps)
	if n != 0 {
		t.Errorf("restoring an existing id should be skipped, restored %d", n)
	}
}

// hookIndex runs afterInsert once the batch is in the index but before AddDocument returns.
type hookIndex struct {
	*memoryDB.Index
	afterInsert func()
}

func (h hookIndex) InsertBatch(ctx context.Context, entries []vectorDB.Entry) error {
	if err := h.Index.InsertBatch(ctx, entries); err != nil {
		return err
	}
	if h.afterInsert != nil {
		h.afterInsert()
	}
	return nil
}

func TestAddDocument_NotVisibleUntilReady(t *testing.T) {
	ctx := context.Background()
	ix := memoryDB.New(3)
	em := embedding.NewGatedEmbedder(letterEmbedder{}, gate.New(5), time.Second)
	hook := hookIndex{Index: ix}
	store := New(&hook, em)

	if _, err := store.AddDocument(ctx, "A", chunksOf("aaa"), commonModels.DocumentInfo{}); err != nil {
		t.Fatal(err)
	}

	var checked bool
	hook.afterInsert = func() {
		checked = true
		matches, err := store.SearchReady(ctx, []float32{0, 1, 0}, 10)
		if err != nil {
			t.Errorf("SearchReady during ingestion: %v", err)
		}
		for _, m := range matches {
			if m.Metadata[MetaDocumentID] == "B" {
				t.Errorf("chunk %s of a processing document was returned", m.Key)
			}
		}
		if _, err := store.SearchDocument(ctx, "B", "bbb", 3); !errors.Is(err, commonModels.ErrDocumentNotReady) {
			t.Errorf("expected ErrDocumentNotReady during ingestion, got %v", err)
		}
		if doc, _ := store.GetDocument("B"); doc.Status != commonModels.StatusProcessing {
			t.Errorf("status during ingestion = %s", doc.Status)
		}
	}

	if _, err := store.AddDocument(ctx, "B", chunksOf("bbb", "bb"), commonModels.DocumentInfo{}); err != nil {
		t.Fatal(err)
	}
	if !checked {
		t.Fatal("insert hook never ran")
	}
	got, err := store.SearchDocument(ctx, "B", "bbb", 3)
	if err != nil || len(got) != 2 {
		t.Errorf("after ready: %v, %v", got, err)
	}
}

func TestAddDocument_CancelAfterInsertRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ix := memoryDB.New(3)
	em := embedding.NewGatedEmbedder(letterEmbedder{}, gate.New(5), time.Second)
	store := New(hookIndex{Index: ix, afterInsert: cancel}, em)

	_, err := store.AddDocument(ctx, "B", chunksOf("bbb", "abc", "cc"), commonModels.DocumentInfo{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n, _ := ix.Len(context.Background()); n != 0 {
		t.Errorf("index holds %d keys after cancellation, want 0", n)
	}
	doc, err := store.GetDocument("B")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != commonModels.StatusError {
		t.Errorf("status = %s, want error", doc.Status)
	}
	matches, _ := store.SearchReady(context.Background(), []float32{0, 1, 0}, 10)
	if len(matches) != 0 {
		t.Errorf("cancelled document is searchable: %v", matches)
	}
}
