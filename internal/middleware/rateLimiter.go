package middleware

import (
	"sync"

	"github.com/akolanti/QuizRAG/internal/config"
	"golang.org/x/time/rate"
)

// LimitGroup names a set of routes that share one token bucket per client.
type LimitGroup string

const (
	GroupRead LimitGroup = "read"
	GroupJobs LimitGroup = "jobs"
)

type GroupLimit struct {
	Rate  rate.Limit
	Burst int
}

var limiterInstance = NewRouteLimiter(map[LimitGroup]GroupLimit{
	GroupRead: {Rate: rate.Limit(config.RATE_LIMIT_PER_SECOND), Burst: config.BURST_RATE_LIMIT_PER_SECOND},
	GroupJobs: {Rate: rate.Limit(config.JOB_RATE_LIMIT_PER_SECOND), Burst: config.JOB_BURST_RATE_LIMIT},
})

type bucketKey struct {
	group  LimitGroup
	client string
}

// RouteLimiter keeps job submissions and reads in separate buckets, so a client that
// spent its upload budget can still poll job status.
type RouteLimiter struct {
	mu      sync.Mutex
	limits  map[LimitGroup]GroupLimit
	buckets map[bucketKey]*rate.Limiter
}

func NewRouteLimiter(limits map[LimitGroup]GroupLimit) *RouteLimiter {
	return &RouteLimiter{limits: limits, buckets: make(map[bucketKey]*rate.Limiter)}
}

// Allow spends one token from the client's bucket for group. Unknown groups use the read limit.
func (l *RouteLimiter) Allow(group LimitGroup, client string) bool {
	return l.bucket(group, client).Allow()
}

func (l *RouteLimiter) bucket(group LimitGroup, client string) *rate.Limiter {
	if _, ok := l.limits[group]; !ok {
		group = GroupRead
	}
	key := bucketKey{group: group, client: client}

	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, exists := l.buckets[key]
	if !exists {
		limit := l.limits[group]
		limiter = rate.NewLimiter(limit.Rate, limit.Burst)
		l.buckets[key] = limiter
	}
	return limiter
}

// TODO: move the buckets to redis once more than one api instance runs.
