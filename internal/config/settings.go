package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

type VectorBackend string

const (
	BackendMemory VectorBackend = "memory"
	BackendQdrant VectorBackend = "qdrant"
)

// Settings holds the values that differ between deployments. Tunables stay as constants.
type Settings struct {
	ListenAddr        string
	IsProd            bool
	LogLevel          string
	LLMProvider       Provider
	EmbeddingProvider Provider
	GoogleAPIKey      string
	OpenAIAPIKey      string
	VectorBackend     VectorBackend
	QdrantHost        string
	QdrantPort        int
	RedisAddr         string
	RedisPassword     string
	AuthToken         string
	NoAuthBypass      bool
	SnapshotPath      string
	PreloadDir        string
}

// LoadSettings reads an optional .env file and then the process environment.
func LoadSettings() Settings {
	_ = godotenv.Load()
	return settingsFromEnv(os.Getenv)
}

func settingsFromEnv(getenv func(string) string) Settings {
	s := Settings{
		ListenAddr:        stringOr(getenv("LISTEN_ADDR"), ServerListenAddr),
		IsProd:            boolOr(getenv("IS_PROD"), false),
		LogLevel:          stringOr(getenv("LOG_LEVEL"), "debug"),
		LLMProvider:       providerOr(getenv("LLM_PROVIDER"), ProviderGemini),
		EmbeddingProvider: providerOr(getenv("EMBEDDING_PROVIDER"), ProviderGemini),
		GoogleAPIKey:      getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY"),
		VectorBackend:     BackendMemory,
		QdrantHost:        stringOr(getenv("QDRANT_HOST"), QdrantHost),
		QdrantPort:        intOr(getenv("QDRANT_PORT"), QdrantGrpcPort),
		RedisAddr:         stringOr(getenv("REDIS_ADDR"), RedisAddr),
		RedisPassword:     getenv("REDIS_PASSWORD"),
		AuthToken:         getenv("AUTH_TOKEN"),
		NoAuthBypass:      boolOr(getenv("NO_AUTH_BYPASS"), false),
		SnapshotPath:      getenv("SNAPSHOT_PATH"),
		PreloadDir:        getenv("PRELOAD_DIR"),
	}
	if strings.EqualFold(getenv("VECTOR_BACKEND"), string(BackendQdrant)) {
		s.VectorBackend = BackendQdrant
	}
	if s.IsProd && s.LogLevel == "debug" {
		s.LogLevel = "info"
	}
	return s
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func intOr(v string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func boolOr(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

func providerOr(v string, fallback Provider) Provider {
	switch Provider(strings.ToLower(strings.TrimSpace(v))) {
	case ProviderGemini:
		return ProviderGemini
	case ProviderOpenAI:
		return ProviderOpenAI
	default:
		return fallback
	}
}
