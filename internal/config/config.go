package config

import (
	"strings"
	"time"

	"github.com/abhilash2429/Artrix-AI/pkg/config"
	"github.com/abhilash2429/Artrix-AI/pkg/llm"
)

// Config stores environment configuration for the Artrix engine.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	LLM        llm.Config
	UtilityLLM llm.Config
	Embedding  llm.Config
	Rerank     llm.RerankConfig

	KafkaBrokers      []string
	KafkaClusterID    string
	BillingKafkaTopic string

	EscalationWebhookURL string

	IdleSessionTimeout time.Duration
	SweepInterval      time.Duration
	MaxHistoryTurns    int
	DenseSearchK       int
	RerankCandidates   int
	TopChunks          int
	SparseCacheTTL     time.Duration
	EnableQueryRewrite bool
}

// LoadConfig loads the Artrix configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:        config.GetEnv("PORT", "18080"),
		DatabaseURL: config.RequireEnv("DATABASE_URL"),
		RedisURL:    config.RequireEnv("REDIS_URL"),

		LLM: llm.LoadConfig(),
		UtilityLLM: llm.Config{
			Provider:  config.GetEnv("UTILITY_LLM_PROVIDER", config.GetEnv("LLM_PROVIDER", "openai")),
			Model:     config.GetEnv("UTILITY_LLM_MODEL", config.GetEnv("LLM_MODEL", "")),
			APIKey:    config.GetEnv("UTILITY_LLM_API_KEY", config.GetEnv("LLM_API_KEY", "")),
			APIURL:    config.GetEnv("UTILITY_LLM_API_URL", config.GetEnv("LLM_API_URL", "")),
			MaxTokens: config.GetEnvInt("UTILITY_LLM_MAX_TOKENS", 256),
		},
		Embedding: llm.LoadEmbeddingConfig(),
		Rerank:    llm.LoadRerankConfig(),

		KafkaBrokers:      parseBrokerList(config.GetEnv("KAFKA_BROKERS", "")),
		KafkaClusterID:    config.GetEnv("KAFKA_CLUSTER_ID", "local"),
		BillingKafkaTopic: config.GetEnv("BILLING_KAFKA_TOPIC", "billing.usage_reports"),

		EscalationWebhookURL: config.GetEnv("ESCALATION_WEBHOOK_URL", ""),

		IdleSessionTimeout: config.GetEnvDuration("ARTRIX_IDLE_SESSION_TIMEOUT", 30*time.Minute),
		SweepInterval:      config.GetEnvDuration("ARTRIX_SWEEP_INTERVAL", time.Minute),
		MaxHistoryTurns:    config.GetEnvInt("ARTRIX_MAX_HISTORY_TURNS", 10),
		DenseSearchK:       config.GetEnvInt("ARTRIX_DENSE_SEARCH_K", 20),
		RerankCandidates:   config.GetEnvInt("ARTRIX_RERANK_CANDIDATES", 20),
		TopChunks:          config.GetEnvInt("ARTRIX_TOP_CHUNKS", 8),
		SparseCacheTTL:     config.GetEnvDuration("ARTRIX_SPARSE_CACHE_TTL", time.Hour),
		EnableQueryRewrite: config.GetEnvBool("ARTRIX_ENABLE_QUERY_REWRITE", true),
	}
}

func parseBrokerList(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
