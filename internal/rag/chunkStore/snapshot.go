package chunkStore

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
)

// DocumentSnapshot is everything needed to bring a ready document back without re-embedding it.
type DocumentSnapshot struct {
	Document commonModels.Document  `json:"document"`
	Chunks   []commonModels.DocChunk `json:"chunks"`
	Vectors  [][]float32             `json:"vectors"`
}

// Export copies out every ready document in insertion order.
func (s *Store) Export() []DocumentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentSnapshot, 0, len(s.order))
	for _, id := range s.order {
		rec := s.docs[id]
		if rec.hidden || rec.doc.Status != commonModels.StatusReady || len(rec.vectors) != len(rec.chunks) {
			continue
		}
		vectors := make([][]float32, len(rec.vectors))
		for i, v := range rec.vectors {
			vectors[i] = slices.Clone(v)
		}
		out = append(out, DocumentSnapshot{
			Document: cloneDocument(rec.doc),
			Chunks:   slices.Clone(rec.chunks),
			Vectors:  vectors,
		})
	}
	return out
}

// Restore indexes snapshotted documents as ready. Ids already present are skipped.
// Each document is restored all-or-nothing; the first failure stops the restore.
func (s *Store) Restore(ctx context.Context, snaps []DocumentSnapshot) (int, error) {
	restored := 0
	for _, snap := range snaps {
		ok, err := s.restoreOne(ctx, snap)
		if err != nil {
			return restored, err
		}
		if ok {
			restored++
		}
	}
	return restored, nil
}

func (s *Store) restoreOne(ctx context.Context, snap DocumentSnapshot) (bool, error) {
	id := snap.Document.Id
	if len(snap.Chunks) == 0 || len(snap.Chunks) != len(snap.Vectors) {
		return false, fmt.Errorf("snapshot of %s has %d chunks and %d vectors", id, len(snap.Chunks), len(snap.Vectors))
	}

	unlock := s.lockDocument(id)
	defer unlock()

	s.mu.RLock()
	_, exists := s.docs[id]
	s.mu.RUnlock()
	if exists {
		return false, nil
	}

	entries := make([]vectorDB.Entry, len(snap.Chunks))
	for i, c := range snap.Chunks {
		entries[i] = vectorDB.Entry{
			Key:    ChunkKey(id, i),
			Vector: snap.Vectors[i],
			Metadata: map[string]string{
				MetaDocumentID: id,
				MetaChunkIndex: strconv.Itoa(i),
				MetaPage:       strconv.Itoa(c.Page),
				MetaContent:    c.Content,
				MetaFilename:   snap.Document.Filename,
			},
		}
	}
	if err := s.index.InsertBatch(ctx, entries); err != nil {
		return false, fmt.Errorf("restore %s: %w", id, err)
	}

	rec := &record{
		doc:     cloneDocument(snap.Document),
		chunks:  make([]commonModels.DocChunk, len(snap.Chunks)),
		vectors: snap.Vectors,
	}
	for i, c := range snap.Chunks {
		c.Key = ChunkKey(id, i)
		c.DocumentId = id
		c.Index = i
		rec.chunks[i] = c
	}
	rec.doc.Status = commonModels.StatusReady
	rec.doc.ChunkCount = len(rec.chunks)

	s.mu.Lock()
	s.docs[id] = rec
	s.order = append(s.order, id)
	s.mu.Unlock()
	return true, nil
}
