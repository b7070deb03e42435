package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"cmp"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadKeyField carries the caller's string key; qdrant ids must be uuids or integers.
const payloadKeyField = "_key"

// payloadSeqField orders points by insertion so equal scores come back oldest first.
const payloadSeqField = "_seq"

var logger *logger_i.Logger
var qdrantInstance *qdrant.Client
var initErr error
var once sync.Once

// insertSeq starts at the wall clock so points written after a restart still sort later.
var insertSeq = func() *atomic.Int64 {
	var seq atomic.Int64
	seq.Store(time.Now().UnixNano())
	return &seq
}()

// keySpace namespaces the uuidv5 point ids derived from chunk keys.
var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quizrag/chunks"))

type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	dimension  int
}

// GetQdrantClient dials once per process and makes sure the chunk collection exists.
func GetQdrantClient(ctx context.Context, host string, port int) (*ClientHolder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		qdrantInstance, initErr = newClient(ctx, host, port)
		if initErr == nil {
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if initErr != nil {
		return nil, initErr
	}
	return &ClientHolder{
		QObj:       qdrantInstance,
		collection: config.EmbeddingDBName,
		dimension:  int(config.EmbeddingOutputDimensionality),
	}, nil
}

func newClient(ctx context.Context, host string, port int) (*qdrant.Client, error) {
	if host == "" || port == 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "error", err)
		return nil, err
	}

	if err = createCollection(ctx, client, config.EmbeddingDBName, uint64(config.EmbeddingOutputDimensionality)); err != nil {
		logger.Error("could not create collection", "collectionName", config.EmbeddingDBName, "error", err)
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

func pointID(key string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(keySpace, []byte(key)).String())
}

func (db *ClientHolder) Dimension() int {
	return db.dimension
}

func (db *ClientHolder) Insert(ctx context.Context, key string, vector []float32, metadata map[string]string) error {
	return db.InsertBatch(ctx, []vectorDB.Entry{{Key: key, Vector: vector, Metadata: metadata}})
}

func (db *ClientHolder) InsertBatch(ctx context.Context, entries []vectorDB.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if len(e.Vector) != db.dimension {
			return &commonModels.DimensionError{Key: e.Key, Want: db.dimension, Got: len(e.Vector)}
		}
	}

	n := int64(len(entries))
	first := insertSeq.Add(n) - n
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		payload := make(map[string]any, len(e.Metadata)+2)
		for k, v := range e.Metadata {
			payload[k] = v
		}
		payload[payloadKeyField] = e.Key
		payload[payloadSeqField] = first + int64(i)

		points[i] = &qdrant.PointStruct{
			Id:      pointID(e.Key),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	// a single upsert request is applied as one operation by qdrant
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	return db.SearchFiltered(ctx, vector, k, vectorDB.Filter{})
}

func (db *ClientHolder) SearchFiltered(ctx context.Context, vector []float32, k int, filter vectorDB.Filter) ([]vectorDB.Match, error) {
	if k <= 0 {
		return []vectorDB.Match{}, nil
	}
	loggr := logger.WithTrace(ctx)

	query := &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if len(filter.Must) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter.Must))
		for field, values := range filter.Must {
			if len(values) == 0 {
				return []vectorDB.Match{}, nil
			}
			conditions = append(conditions, qdrant.NewMatchKeywords(field, values...))
		}
		query.Filter = &qdrant.Filter{Must: conditions}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := matchesFromHits(result)
	loggr.Debug("qdrant search", "requested", k, "found", len(matches))
	return matches, nil
}

// matchesFromHits converts query hits and orders them by score, breaking ties by insertion.
func matchesFromHits(hits []*qdrant.ScoredPoint) []vectorDB.Match {
	type ranked struct {
		match vectorDB.Match
		seq   int64
	}
	out := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]string, len(hit.Payload))
		for k, v := range hit.Payload {
			metadata[k] = v.GetStringValue()
		}
		key := metadata[payloadKeyField]
		delete(metadata, payloadKeyField)
		delete(metadata, payloadSeqField)

		out = append(out, ranked{
			match: vectorDB.Match{
				Key:      key,
				Score:    float64(hit.Score),
				Vector:   hit.GetVectors().GetVector().GetData(),
				Metadata: maps.Clone(metadata),
			},
			seq: hit.Payload[payloadSeqField].GetIntegerValue(),
		})
	}
	slices.SortStableFunc(out, func(a, b ranked) int {
		if c := cmp.Compare(b.match.Score, a.match.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	matches := make([]vectorDB.Match, len(out))
	for i, r := range out {
		matches[i] = r.match
	}
	return matches
}

func (db *ClientHolder) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(keys))
	for i, key := range keys {
		ids[i] = pointID(key)
	}
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Points:         qdrant.NewPointsSelector(ids...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Len(ctx context.Context) (int, error) {
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	// keyword index so document-scoped filters stay cheap
	_, err = client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	return err
}
