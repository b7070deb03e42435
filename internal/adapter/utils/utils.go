package utils

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/akolanti/QuizRAG/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

// documentSpace namespaces ids derived from file names.
var documentSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quizrag/documents"))

func GetNewUUID() string {
	return uuid.New().String()
}

// DocumentIdForFile derives a stable document id from a file's base name, so the same
// file maps to the same document across restarts. Case and directory are ignored.
func DocumentIdForFile(path string) string {
	name := strings.ToLower(filepath.Base(path))
	return uuid.NewSHA1(documentSpace, []byte(name)).String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// GetRouter builds the shared router once, with swagger, metrics and json 404/405 replies
// already mounted. Api routes are added by the server package.
func GetRouter() *chi.Mux {
	once.Do(func() {
		router = chi.NewRouter()
		router.NotFound(jsonError(http.StatusNotFound, "route not found"))
		router.MethodNotAllowed(jsonError(http.StatusMethodNotAllowed, "method not allowed"))
		mountSwagger(router)
		router.Handle("/metrics", promhttp.Handler())
	})
	return router
}

func jsonError(code int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message})
	}
}

func mountSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
