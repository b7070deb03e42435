package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/data/redisStore"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

const (
	historyKeyPrefix   = "history:"
	chatKeyPrefix      = "chat:"
	expansionKeyPrefix = "expansion:"
)

// RedisHistoryStore keeps one capped list per topic, newest record at the head.
type RedisHistoryStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisHistoryStore(ctx context.Context, addr, password string) (*RedisHistoryStore, error) {
	s, err := redisStore.GetRedisStore(ctx, redisStore.Options{Addr: addr, Password: password, DB: config.RedisHistoryStore})
	if err != nil {
		return nil, err
	}
	return NewRedisHistoryStore(s), nil
}

func NewRedisHistoryStore(store *redisStore.Store) *RedisHistoryStore {
	return &RedisHistoryStore{store: store, logger: logger_i.NewLogger("HistoryStore")}
}

func (s *RedisHistoryStore) AppendRecord(ctx context.Context, topic string, record commonModels.GeneratedRecord) error {
	log := s.logger.WithTrace(ctx).With("topic", topic)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	err = s.store.ListPushCapped(ctx, historyKeyPrefix+historyKey(topic), data, config.HistoryKeepCount, config.RedisHistoryStoreTTL)
	if err != nil {
		log.Error("Error saving record", "error", err)
		return err
	}
	log.Debug("Saved record to history")
	return nil
}

func (s *RedisHistoryStore) RecentRecords(ctx context.Context, topic string, n int) ([]commonModels.GeneratedRecord, error) {
	log := s.logger.WithTrace(ctx).With("topic", topic)
	raw, err := s.store.ListHead(ctx, historyKeyPrefix+historyKey(topic), int64(n))
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	out := make([]commonModels.GeneratedRecord, 0, len(raw))
	for _, item := range raw {
		var rec commonModels.GeneratedRecord
		if err = json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warn("Skipping unreadable history entry", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisHistoryStore) AppendExchange(ctx context.Context, documentId string, exchange commonModels.ChatExchange) error {
	data, err := json.Marshal(exchange)
	if err != nil {
		return err
	}
	if err = s.store.ListPushCapped(ctx, chatKeyPrefix+documentId, data, config.ChatKeepCount, config.RedisHistoryStoreTTL); err != nil {
		s.logger.WithTrace(ctx).Error("Error saving chat exchange", "documentId", documentId, "error", err)
		return err
	}
	return nil
}

func (s *RedisHistoryStore) RecentExchanges(ctx context.Context, documentId string, n int) ([]commonModels.ChatExchange, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	raw, err := s.store.ListHead(ctx, chatKeyPrefix+documentId, int64(n))
	if err != nil {
		log.Error("Error getting chat history", "error", err)
		return nil, err
	}

	out := make([]commonModels.ChatExchange, 0, len(raw))
	for _, item := range raw {
		var ex commonModels.ChatExchange
		if err = json.Unmarshal([]byte(item), &ex); err != nil {
			log.Warn("Skipping unreadable chat entry", "error", err)
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// RedisExpansionCache stores expanded query lists with a ttl so topics are re-expanded now and then.
type RedisExpansionCache struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisExpansionCache(ctx context.Context, addr, password string) (*RedisExpansionCache, error) {
	s, err := redisStore.GetRedisStore(ctx, redisStore.Options{Addr: addr, Password: password, DB: config.RedisExpansionCache})
	if err != nil {
		return nil, err
	}
	return NewRedisExpansionCache(s), nil
}

func NewRedisExpansionCache(store *redisStore.Store) *RedisExpansionCache {
	return &RedisExpansionCache{store: store, logger: logger_i.NewLogger("ExpansionCache")}
}

func (c *RedisExpansionCache) GetQueries(ctx context.Context, topic string) ([]string, bool) {
	val, err := c.store.Get(ctx, expansionKeyPrefix+historyKey(topic))
	if err != nil {
		if !c.store.IsNil(err) {
			c.logger.WithTrace(ctx).Warn("Expansion cache read failed", "error", err)
		}
		return nil, false
	}
	var queries []string
	if err = json.Unmarshal([]byte(val), &queries); err != nil || len(queries) == 0 {
		return nil, false
	}
	return queries, true
}

func (c *RedisExpansionCache) SaveQueries(ctx context.Context, topic string, queries []string) error {
	data, err := json.Marshal(queries)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, expansionKeyPrefix+historyKey(topic), data, config.ExpansionCacheTTL)
}
