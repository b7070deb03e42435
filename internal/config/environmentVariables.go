package config

import (
	"time"

	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

const (
	TRACE_ID_KEY                = logger_i.TraceKey
	RATE_LIMIT_PER_SECOND       = 5 //reads and status polling
	BURST_RATE_LIMIT_PER_SECOND = 10
	JOB_RATE_LIMIT_PER_SECOND   = 0.5 //requests that queue model work
	JOB_BURST_RATE_LIMIT        = 3

	//vector index
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingDBName                     = "quiz-chunks"

	//ingestion
	MaxChunkSize         = 1000 // characters
	ChunkOverlap         = 200
	PageExtractTimeout   = 10 * time.Second
	MaxUploadSize        = 32 << 20 //32mb
	TemporaryUploadDir   = "temporary_data"
	IngestionTimeout     = 5 * time.Minute
	EmbeddingGateSize    = 5 //max concurrent calls against the embedding/generation provider
	TopicSampleChunks    = 6
	MaxTopicsPerDocument = 8

	//external call timeouts
	EmbeddingCallTimeout  = 20 * time.Second
	GenerationCallTimeout = 45 * time.Second
	ExpansionCallTimeout  = 20 * time.Second
	GenerationMaxAttempts = 2
	GenerationRetryWait   = 2 * time.Second

	//query expansion
	MinExpandedQueries           = 5
	MaxExpandedQueries           = 8
	ExpansionTemperature float32 = 0.4
	ExpansionCacheTTL            = 6 * time.Hour

	//retrieval
	LowDiversityCutoff  = 0.5
	LowDiversityK       = 6
	HighDiversityK      = 8
	LowDiversityFetchK  = 24
	HighDiversityFetchK = 36
	MMRLambdaBase       = 0.6
	MMRLambdaSpan       = 0.3
	RetrievalQueryLimit = 5 //parallel per-query searches

	//generation
	MinTemperature      float32 = 0.2
	MaxTemperature      float32 = 0.9
	MaxPresencePenalty  float32 = 0.6
	MaxFrequencyPenalty float32 = 0.4
	HistoryHintCount            = 5
	HistoryKeepCount            = 50

	//document chat
	AskTemperature   float32 = 0.3
	ChatHistoryCount         = 5 //past exchanges replayed into the prompt
	ChatKeepCount            = 20

	//request defaults
	DefaultDiversity   = 0.3
	DefaultNumContexts = 6
	DefaultQueryFanout = 3
	DefaultNumChoices  = 4
	MaxNumContexts     = 20
	MaxQueryFanout     = 8
	MinNumChoices      = 2
	MaxNumChoices      = 6
	DefaultSearchK     = 3
	MaxSearchK         = 20

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobTimeout                      = 6 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1 //2-5 is preferred for prod according to documentation

	//llm
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIChatModel      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"

	QuestionSystemPrompt  = "You write multiple-choice study questions grounded only in the supplied context passages. Reply with JSON only."
	ExpansionSystemPrompt = "You turn a study topic into short, diverse search queries. Reply with JSON only."
	TopicSystemPrompt     = "You label study material with short topic names. Reply with JSON only."
	AskSystemPrompt       = "You are a helpful assistant that answers questions based on document context. Reply with JSON only."

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore       = 0
	RedisHistoryStore   = 1
	RedisExpansionCache = 2

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisHistoryStoreTTL = 7 * 24 * time.Hour
)
