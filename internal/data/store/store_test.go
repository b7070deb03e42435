package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/data/redisStore"
	"github.com/akolanti/QuizRAG/internal/data/store"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewTestStore(client)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr, rs := newRedis(t)
	jobStore := store.NewRedisJobStore(rs)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		JobType: jobModel.JobTypeGenerate,
		Status:  jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			Generate:       &jobModel.GenerateRequest{Topic: "photosynthesis"},
			IngestFilePath: "/tmp/should-not-persist",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload.Generate == nil || retrievedJob.JobPayload.Generate.Topic != "photosynthesis" {
			t.Errorf("Data mismatch! Got %+v", retrievedJob.JobPayload.Generate)
		}
		if retrievedJob.JobPayload.IngestFilePath != "" {
			t.Error("upload path leaked into the stored job")
		}
		if ttl := mr.TTL("job:" + jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("ttl = %v, want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists("job:" + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	_, rs := newRedis(t)
	jobStore := store.NewRedisJobStore(rs)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("job lost under concurrent writes")
	}
}

func record(i int) commonModels.GeneratedRecord {
	return commonModels.GeneratedRecord{Question: fmt.Sprintf("question %d", i), Answer: "A"}
}

func TestHistoryStores(t *testing.T) {
	_, rs := newRedis(t)
	stores := map[string]jobModel.HistoryStore{
		"memory": store.InitInMemoryHistoryStore(),
		"redis":  store.NewRedisHistoryStore(rs),
	}

	for name, hs := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := hs.RecentRecords(ctx, "nothing yet", 5)
			if err != nil || len(empty) != 0 {
				t.Fatalf("empty history = %v, %v", empty, err)
			}

			for i := 0; i < config.HistoryKeepCount+5; i++ {
				if err := hs.AppendRecord(ctx, "Cells", record(i)); err != nil {
					t.Fatal(err)
				}
			}

			recent, err := hs.RecentRecords(ctx, "  cells ", 3)
			if err != nil {
				t.Fatal(err)
			}
			if len(recent) != 3 || recent[0].Question != record(config.HistoryKeepCount+4).Question {
				t.Errorf("recent = %+v, want newest first", recent)
			}

			all, _ := hs.RecentRecords(ctx, "cells", 1000)
			if len(all) != config.HistoryKeepCount {
				t.Errorf("history holds %d records, want %d", len(all), config.HistoryKeepCount)
			}
		})
	}
}

func TestChatHistory(t *testing.T) {
	_, rs := newRedis(t)
	stores := map[string]jobModel.HistoryStore{
		"memory": store.InitInMemoryHistoryStore(),
		"redis":  store.NewRedisHistoryStore(rs),
	}

	for name, hs := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < config.ChatKeepCount+3; i++ {
				ex := commonModels.ChatExchange{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
				if err := hs.AppendExchange(ctx, "doc-1", ex); err != nil {
					t.Fatal(err)
				}
			}
			_ = hs.AppendExchange(ctx, "doc-2", commonModels.ChatExchange{Question: "other"})

			recent, err := hs.RecentExchanges(ctx, "doc-1", 2)
			if err != nil {
				t.Fatal(err)
			}
			last := fmt.Sprintf("q%d", config.ChatKeepCount+2)
			if len(recent) != 2 || recent[0].Question != last {
				t.Errorf("recent = %+v, want newest first", recent)
			}

			all, _ := hs.RecentExchanges(ctx, "doc-1", 1000)
			if len(all) != config.ChatKeepCount {
				t.Errorf("chat holds %d exchanges, want %d", len(all), config.ChatKeepCount)
			}
			for _, ex := range all {
				if ex.Question == "other" {
					t.Fatal("exchange of another document leaked")
				}
			}

			empty, err := hs.RecentExchanges(ctx, "doc-3", 5)
			if err != nil || len(empty) != 0 {
				t.Errorf("unknown document = %v, %v", empty, err)
			}
		})
	}
}

func TestRedisHistoryStore_TTL(t *testing.T) {
	mr, rs := newRedis(t)
	hs := store.NewRedisHistoryStore(rs)
	_ = hs.AppendRecord(context.Background(), "Cells", record(1))

	if ttl := mr.TTL("history:cells"); ttl != config.RedisHistoryStoreTTL {
		t.Errorf("ttl = %v, want %v", ttl, config.RedisHistoryStoreTTL)
	}
}

func TestExpansionCaches(t *testing.T) {
	mr, rs := newRedis(t)
	ctx := context.Background()

	t.Run("redis", func(t *testing.T) {
		c := store.NewRedisExpansionCache(rs)
		if _, ok := c.GetQueries(ctx, "mitosis"); ok {
			t.Fatal("unexpected hit on empty cache")
		}
		_ = c.SaveQueries(ctx, "Mitosis", []string{"prophase", "anaphase"})
		got, ok := c.GetQueries(ctx, "mitosis")
		if !ok || len(got) != 2 || got[0] != "prophase" {
			t.Errorf("GetQueries = %v, %v", got, ok)
		}

		mr.FastForward(config.ExpansionCacheTTL + time.Second)
		if _, ok := c.GetQueries(ctx, "mitosis"); ok {
			t.Error("entry should expire after the ttl")
		}
	})

	t.Run("memory", func(t *testing.T) {
		c := store.InitInMemoryExpansionCache(time.Hour)
		_ = c.SaveQueries(ctx, "Mitosis", []string{"prophase"})
		got, ok := c.GetQueries(ctx, "mitosis")
		if !ok || len(got) != 1 {
			t.Errorf("GetQueries = %v, %v", got, ok)
		}
		got[0] = "mutated"
		again, _ := c.GetQueries(ctx, "mitosis")
		if again[0] != "prophase" {
			t.Error("cache returned an aliased slice")
		}

		expired := store.InitInMemoryExpansionCache(-time.Second)
		_ = expired.SaveQueries(ctx, "x", []string{"y"})
		if _, ok := expired.GetQueries(ctx, "x"); ok {
			t.Error("expired entry returned")
		}
	})
}

func TestInMemoryJobStore(t *testing.T) {
	s := store.InitInMemoryJobStore()
	ctx := context.Background()
	_ = s.SaveJob(ctx, jobModel.Job{Id: "a", Status: jobModel.JobStatusQueued})

	got, ok := s.GetJob(ctx, "a")
	if !ok || got.Status != jobModel.JobStatusQueued {
		t.Fatalf("GetJob = %+v, %v", got, ok)
	}
	s.DeleteJob(ctx, "a")
	if _, ok := s.GetJob(ctx, "a"); ok {
		t.Error("job survived delete")
	}
}
