package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
)

// historyKey folds topics so "Photosynthesis" and " photosynthesis" share a history.
func historyKey(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}

type InMemoryHistoryStore struct {
	lock      *sync.RWMutex
	records   map[string][]commonModels.GeneratedRecord
	exchanges map[string][]commonModels.ChatExchange
}

func InitInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		lock:      new(sync.RWMutex),
		records:   make(map[string][]commonModels.GeneratedRecord),
		exchanges: make(map[string][]commonModels.ChatExchange),
	}
}

func (store *InMemoryHistoryStore) AppendRecord(ctx context.Context, topic string, record commonModels.GeneratedRecord) error {
	key := historyKey(topic)
	store.lock.Lock()
	defer store.lock.Unlock()

	list := append([]commonModels.GeneratedRecord{record}, store.records[key]...)
	if len(list) > config.HistoryKeepCount {
		list = list[:config.HistoryKeepCount]
	}
	store.records[key] = list
	inMemLogger.Debug("Saved record to history", "topic", key, "size", len(list))
	return nil
}

func (store *InMemoryHistoryStore) RecentRecords(ctx context.Context, topic string, n int) ([]commonModels.GeneratedRecord, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	list := store.records[historyKey(topic)]
	if n < len(list) {
		list = list[:max(n, 0)]
	}
	return slices.Clone(list), nil
}

func (store *InMemoryHistoryStore) AppendExchange(ctx context.Context, documentId string, exchange commonModels.ChatExchange) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	list := append([]commonModels.ChatExchange{exchange}, store.exchanges[documentId]...)
	if len(list) > config.ChatKeepCount {
		list = list[:config.ChatKeepCount]
	}
	store.exchanges[documentId] = list
	return nil
}

func (store *InMemoryHistoryStore) RecentExchanges(ctx context.Context, documentId string, n int) ([]commonModels.ChatExchange, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	list := store.exchanges[documentId]
	if n < len(list) {
		list = list[:max(n, 0)]
	}
	return slices.Clone(list), nil
}

type cachedQueries struct {
	queries []string
	expires time.Time
}

// InMemoryExpansionCache keeps expanded queries per topic until they expire.
type InMemoryExpansionCache struct {
	lock    *sync.Mutex
	entries map[string]cachedQueries
	ttl     time.Duration
	now     func() time.Time
}

func InitInMemoryExpansionCache(ttl time.Duration) *InMemoryExpansionCache {
	return &InMemoryExpansionCache{
		lock:    new(sync.Mutex),
		entries: make(map[string]cachedQueries),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemoryExpansionCache) GetQueries(ctx context.Context, topic string) ([]string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	key := historyKey(topic)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return slices.Clone(entry.queries), true
}

func (c *InMemoryExpansionCache) SaveQueries(ctx context.Context, topic string, queries []string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries[historyKey(topic)] = cachedQueries{queries: slices.Clone(queries), expires: c.now().Add(c.ttl)}
	return nil
}
