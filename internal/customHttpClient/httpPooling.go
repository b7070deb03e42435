package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/QuizRAG/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	client *http.Client
	once   sync.Once
)

// Client is the process-wide http client the embedding and generation providers share,
// so their calls reuse pooled connections. Per-call deadlines come from the caller's context.
func Client() *http.Client {
	once.Do(func() {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        config.MaxIdleConns,
			MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
			IdleConnTimeout:     config.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		}
		client = &http.Client{Transport: otelhttp.NewTransport(transport)}
	})
	return client
}
