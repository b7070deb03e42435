package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"golang.org/x/time/rate"
)

func TestIsValidBearerToken(t *testing.T) {
	log := logger_i.NewLogger("test")
	secured := config.Settings{AuthToken: "s3cret"}

	tests := []struct {
		name     string
		header   string
		settings config.Settings
		want     bool
	}{
		{"valid", "Bearer s3cret", secured, true},
		{"wrong token", "Bearer nope", secured, false},
		{"no bearer prefix", "s3cret", secured, false},
		{"empty header", "", secured, false},
		{"no token configured", "Bearer ", config.Settings{}, false},
		{"bypass", "", config.Settings{NoAuthBypass: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidBearerToken(tt.header, tt.settings, log); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	Configure(config.Settings{AuthToken: "s3cret"})
	defer Configure(config.Settings{})

	var sawTrace string
	h := Wrap(func(w http.ResponseWriter, r *http.Request) {
		sawTrace, _ = r.Context().Value(config.TRACE_ID_KEY).(string)
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("authorized request reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/topics", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer s3cret")
		req.Header.Set("X-Trace-Id", "trace-1")
		rec := httptest.NewRecorder()
		h(rec, req)

		if rec.Code != http.StatusTeapot || sawTrace != "trace-1" {
			t.Errorf("code = %d, trace = %q", rec.Code, sawTrace)
		}
		if rec.Header().Get("X-Trace-Id") != "trace-1" {
			t.Error("trace id not echoed")
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/topics", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	previous := limiterInstance
	limiterInstance = NewRouteLimiter(map[LimitGroup]GroupLimit{
		GroupRead: {Rate: rate.Limit(0), Burst: 2},
		GroupJobs: {Rate: rate.Limit(0), Burst: 1},
	})
	defer func() { limiterInstance = previous }()
	Configure(config.Settings{NoAuthBypass: true})
	defer Configure(config.Settings{})

	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	call := func(h http.HandlerFunc, addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/topics", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}
	read := Wrap(ok)
	jobs := WrapGroup(GroupJobs, ok)

	codes := []int{call(jobs, "10.0.0.9:1"), call(jobs, "10.0.0.9:2")}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("job codes = %v, want [200 429]", codes)
	}

	codes = []int{call(read, "10.0.0.9:1"), call(read, "10.0.0.9:1"), call(read, "10.0.0.9:1")}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("read codes after jobs ran out = %v, want [200 200 429]", codes)
	}

	if code := call(jobs, "10.0.0.10:1"); code != http.StatusOK {
		t.Errorf("another client got %d, want its own bucket", code)
	}
}

func TestRouteLimiter_Buckets(t *testing.T) {
	l := NewRouteLimiter(map[LimitGroup]GroupLimit{GroupRead: {Rate: rate.Limit(0), Burst: 1}})

	if a, b := l.bucket(GroupRead, "x"), l.bucket(GroupRead, "x"); a != b {
		t.Error("bucket not reused per client")
	}
	if l.bucket(GroupRead, "x") == l.bucket(GroupRead, "y") {
		t.Error("clients share a bucket")
	}
	if l.bucket("unknown", "x") != l.bucket(GroupRead, "x") {
		t.Error("unknown group should fall back to the read bucket")
	}
}
