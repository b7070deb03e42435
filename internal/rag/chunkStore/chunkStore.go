// Package chunkStore owns the document registry and is the only writer of chunk vectors into the index.
package chunkStore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/internal/rag/embedding"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

// metadata fields written next to every chunk vector
const (
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
	MetaPage       = "page"
	MetaContent    = "content"
	MetaFilename   = "filename"
)

func ChunkKey(documentId string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentId, index)
}

type record struct {
	doc     commonModels.Document
	chunks  []commonModels.DocChunk
	vectors [][]float32
	// hidden is set while a removal is in progress so searches skip the document
	hidden bool
}

type Store struct {
	index    vectorDB.Index
	embedder embedding.Embedder
	logger   *logger_i.Logger
	now      func() time.Time

	mu    sync.RWMutex
	docs  map[string]*record
	order []string

	locksMu sync.Mutex
	locks   map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func New(index vectorDB.Index, embedder embedding.Embedder) *Store {
	return &Store{
		index:    index,
		embedder: embedder,
		logger:   logger_i.NewLogger("chunk_store"),
		now:      time.Now,
		docs:     make(map[string]*record),
		locks:    make(map[string]*docLock),
	}
}

// lockDocument serializes writers of one document id. Writers of different ids do not block each other.
func (s *Store) lockDocument(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &docLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// AddDocument embeds and indexes chunks under {documentId}_chunk_{i}. The document becomes ready
// only after every chunk is stored; any failure or cancellation removes what was written and
// leaves the document in error status.
func (s *Store) AddDocument(ctx context.Context, documentId string, chunks []commonModels.ChunkInput, info commonModels.DocumentInfo) (commonModels.Document, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	if len(chunks) == 0 {
		return commonModels.Document{}, commonModels.ErrEmptyDocument
	}

	unlock := s.lockDocument(documentId)
	defer unlock()

	rec, err := s.register(documentId, chunks, info)
	if err != nil {
		return commonModels.Document{}, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	start := time.Now()
	vectors, err := s.embedder.BatchEmbedding(ctx, texts)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		log.Error("embedding failed, document not indexed", "error", err)
		return s.fail(rec, err), err
	}

	entries := make([]vectorDB.Entry, len(rec.chunks))
	for i, c := range rec.chunks {
		entries[i] = vectorDB.Entry{
			Key:    c.Key,
			Vector: vectors[i],
			Metadata: map[string]string{
				MetaDocumentID: documentId,
				MetaChunkIndex: strconv.Itoa(c.Index),
				MetaPage:       strconv.Itoa(c.Page),
				MetaContent:    c.Content,
				MetaFilename:   info.Filename,
			},
		}
	}

	if err = s.index.InsertBatch(ctx, entries); err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error("index insert failed, rolling back", "error", err)
		s.rollback(ctx, log, rec)
		return s.fail(rec, err), err
	}

	s.mu.Lock()
	rec.vectors = vectors
	rec.doc.Status = commonModels.StatusReady
	doc := cloneDocument(rec.doc)
	s.mu.Unlock()

	log.Info("document ready", "chunks", doc.ChunkCount)
	return doc, nil
}

func (s *Store) register(documentId string, chunks []commonModels.ChunkInput, info commonModels.DocumentInfo) (*record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[documentId]
	if ok && existing.doc.Status != commonModels.StatusError {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrDocumentExists, documentId)
	}

	rec := &record{
		doc: commonModels.Document{
			Id:         documentId,
			Filename:   info.Filename,
			SizeBytes:  info.SizeBytes,
			Pages:      info.Pages,
			ChunkCount: len(chunks),
			UploadTime: s.now().UTC(),
			Status:     commonModels.StatusProcessing,
		},
		chunks: make([]commonModels.DocChunk, len(chunks)),
	}
	pages := make(map[int]struct{})
	for i, c := range chunks {
		rec.chunks[i] = commonModels.DocChunk{
			Key:        ChunkKey(documentId, i),
			DocumentId: documentId,
			Index:      i,
			Content:    c.Content,
			Page:       c.Page,
		}
		pages[c.Page] = struct{}{}
	}
	if rec.doc.Pages == 0 {
		rec.doc.Pages = len(pages)
	}

	if !ok {
		s.order = append(s.order, documentId)
	}
	s.docs[documentId] = rec
	return rec, nil
}

func (s *Store) fail(rec *record, cause error) commonModels.Document {
	metrics.IncrementIngestionRollback()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.doc.Status = commonModels.StatusError
	rec.doc.Error = cause.Error()
	rec.vectors = nil
	return cloneDocument(rec.doc)
}

// rollback removes every key the document could own. It must finish even if ctx was cancelled.
func (s *Store) rollback(ctx context.Context, log *logger_i.Logger, rec *record) {
	if err := s.index.Remove(context.WithoutCancel(ctx), chunkKeys(rec)...); err != nil {
		log.Error("rollback could not remove chunk keys", "error", err)
	}
}

func chunkKeys(rec *record) []string {
	keys := make([]string, len(rec.chunks))
	for i, c := range rec.chunks {
		keys[i] = c.Key
	}
	return keys
}

// SearchDocument ranks the chunks of one ready document against queryText, best first.
// It never returns chunks of other documents and never pads the result with them.
func (s *Store) SearchDocument(ctx context.Context, documentId string, queryText string, k int) ([]commonModels.ScoredChunk, error) {
	s.mu.RLock()
	rec, ok := s.docs[documentId]
	var status commonModels.DocStatus
	if ok {
		status = rec.doc.Status
		if rec.hidden {
			ok = false
		}
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrDocumentNotFound, documentId)
	}
	if status != commonModels.StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", commonModels.ErrDocumentNotReady, documentId, status)
	}

	vector, err := s.embedder.GetEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	matches, err := s.index.SearchFiltered(ctx, vector, k, vectorDB.Filter{
		Must: map[string][]string{MetaDocumentID: {documentId}},
	})
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		return nil, err
	}

	out := make([]commonModels.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if m.Metadata[MetaDocumentID] != documentId {
			continue
		}
		out = append(out, commonModels.ScoredChunk{DocChunk: chunkFromMatch(m), Score: m.Score})
	}
	return out, nil
}

// SearchReady returns the top k chunks across all ready documents.
func (s *Store) SearchReady(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	ids := s.readyIDs()
	if len(ids) == 0 {
		return []vectorDB.Match{}, nil
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.index.SearchFiltered(ctx, vector, k, vectorDB.Filter{
		Must: map[string][]string{MetaDocumentID: ids},
	})
}

// Embed exposes the store's gated embedder to readers that search by text.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.GetEmbedding(ctx, text)
}

func (s *Store) readyIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if rec := s.docs[id]; rec.doc.Status == commonModels.StatusReady && !rec.hidden {
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveDocument deletes every chunk of the document and then its metadata.
// Unknown ids are a no-op. If the index refuses the delete the document stays fully searchable.
func (s *Store) RemoveDocument(ctx context.Context, documentId string) error {
	unlock := s.lockDocument(documentId)
	defer unlock()

	s.mu.Lock()
	rec, ok := s.docs[documentId]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	rec.hidden = true
	keys := chunkKeys(rec)
	s.mu.Unlock()

	if err := s.index.Remove(ctx, keys...); err != nil {
		s.mu.Lock()
		rec.hidden = false
		s.mu.Unlock()
		return fmt.Errorf("remove document %s: %w", documentId, err)
	}

	s.mu.Lock()
	delete(s.docs, documentId)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == documentId })
	s.mu.Unlock()

	s.logger.WithTrace(ctx).Info("document removed", "documentId", documentId, "chunks", len(keys))
	return nil
}

// ListDocuments returns every known document in insertion order.
func (s *Store) ListDocuments() []commonModels.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commonModels.Document, 0, len(s.order))
	for _, id := range s.order {
		rec := s.docs[id]
		if rec.hidden {
			continue
		}
		out = append(out, cloneDocument(rec.doc))
	}
	return out
}

func (s *Store) GetDocument(documentId string) (commonModels.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[documentId]
	if !ok || rec.hidden {
		return commonModels.Document{}, fmt.Errorf("%w: %s", commonModels.ErrDocumentNotFound, documentId)
	}
	return cloneDocument(rec.doc), nil
}

// Chunks returns the ordered chunks of a ready document.
func (s *Store) Chunks(documentId string) ([]commonModels.DocChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[documentId]
	if !ok || rec.hidden {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrDocumentNotFound, documentId)
	}
	if rec.doc.Status != commonModels.StatusReady {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrDocumentNotReady, documentId)
	}
	return slices.Clone(rec.chunks), nil
}

func (s *Store) SetTopics(documentId string, topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.docs[documentId]; ok {
		rec.doc.Topics = slices.Clone(topics)
	}
}

func chunkFromMatch(m vectorDB.Match) commonModels.DocChunk {
	index, _ := strconv.Atoi(m.Metadata[MetaChunkIndex])
	page, _ := strconv.Atoi(m.Metadata[MetaPage])
	return commonModels.DocChunk{
		Key:        m.Key,
		DocumentId: m.Metadata[MetaDocumentID],
		Index:      index,
		Content:    m.Metadata[MetaContent],
		Page:       page,
	}
}

func cloneDocument(d commonModels.Document) commonModels.Document {
	d.Topics = slices.Clone(d.Topics)
	return d
}
