package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhilash2429/Artrix-AI/internal/agent"
	"github.com/abhilash2429/Artrix-AI/internal/billing"
	artrixconfig "github.com/abhilash2429/Artrix-AI/internal/config"
	"github.com/abhilash2429/Artrix-AI/internal/escalation"
	"github.com/abhilash2429/Artrix-AI/internal/intent"
	"github.com/abhilash2429/Artrix-AI/internal/knowledge"
	"github.com/abhilash2429/Artrix-AI/internal/language"
	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/internal/tenant"
	"github.com/abhilash2429/Artrix-AI/pkg/config"
	"github.com/abhilash2429/Artrix-AI/pkg/database"
	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
	"github.com/abhilash2429/Artrix-AI/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("artrix")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Artrix (AI Support Decision Engine)")

	cfg := artrixconfig.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	// Connect to Redis
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := redis.NewClientFromURL(startupCtx, cfg.RedisURL)
	startupCancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = redisClient.Close() }()

	// LLM providers
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create LLM provider")
	}
	utilityProvider, err := llm.NewProvider(cfg.UtilityLLM)
	if err != nil {
		logger.WithError(err).Warn("Failed to create utility LLM provider - falling back to primary")
		utilityProvider = provider
	}
	embedder, err := llm.NewEmbeddingClient(cfg.Embedding)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create embedding client")
	}
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	dimensions, err := llm.ProbeEmbeddingDimensions(probeCtx, embedder)
	probeCancel()
	if err != nil {
		logger.WithError(err).Warn("Embedding provider not reachable at startup")
	} else {
		logger.WithFields(logging.Fields{"dimensions": dimensions}).Info("Embedding provider ready")
	}
	rerankClient, err := llm.NewRerankClient(cfg.Rerank)
	if err != nil {
		logger.WithError(err).Warn("Rerank provider unavailable - falling back to fused retrieval scores")
		rerankClient = nil
	}

	// Stores and retrieval pipeline
	tenantStore := tenant.NewStore(db, logger)
	sessionStore := session.NewStore(db, logger)
	memory := session.NewMemory(redisClient, cfg.MaxHistoryTurns, cfg.IdleSessionTimeout, logger)
	knowledgeStore := knowledge.NewStore(db)
	sparse := knowledge.NewSparseSearcher(knowledgeStore, redisClient, cfg.SparseCacheTTL, logger)
	retriever := knowledge.NewRetriever(knowledgeStore, sparse, embedder, cfg.DenseSearchK, cfg.RerankCandidates, logger)
	scorer := knowledge.NewScorer(rerankClient, cfg.TopChunks, logger)

	// Billing
	var usagePublisher *billing.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, pubErr := billing.NewPublisher(billing.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			ClusterID: cfg.KafkaClusterID,
			Topic:     cfg.BillingKafkaTopic,
			Logger:    logger,
		})
		if pubErr != nil {
			logger.WithError(pubErr).Warn("Failed to create billing Kafka publisher - usage summaries disabled")
		} else {
			usagePublisher = publisher
			defer func() { _ = usagePublisher.Close() }()
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set - billing usage summaries disabled")
	}

	counters := billing.NewRedisCounters(redisClient)
	ledger := billing.NewLedger(db, sessionStore, counters, usagePublisher, cfg.IdleSessionTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := billing.NewSweeper(sessionStore, memory, ledger, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	// Escalation delivery
	sink := escalation.NewSink(db, logger)

	// Orchestrator
	var rewriter *agent.QueryRewriter
	if cfg.EnableQueryRewrite {
		rewriter = agent.NewQueryRewriter(utilityProvider)
	}
	orchestrator := agent.NewOrchestrator(agent.OrchestratorConfig{
		Policies:   &policyStoreWithFallback{store: tenantStore, webhookURL: cfg.EscalationWebhookURL},
		Classifier: intent.NewClassifier(utilityProvider, logger),
		Retriever:  retriever,
		Ranker:     scorer,
		Sessions:   sessionStore,
		Memory:     memory,
		Ledger:     ledger,
		Sink:       sink,
		Provider:   provider,
		Rewriter:   rewriter,
		MaxTokens:  cfg.LLM.MaxTokens,
		Logger:     logger,
	})

	// HTTP API
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := agent.NewHandler(orchestrator, ledger, language.Passthrough{}, logger)
	agent.RegisterRoutes(router.Group("/v1"), handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logging.Fields{"port": cfg.Port}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server startup failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// policyStoreWithFallback fills in the deployment-wide escalation webhook
// for tenants that have not configured their own.
type policyStoreWithFallback struct {
	store      *tenant.Store
	webhookURL string
}

func (p *policyStoreWithFallback) GetPolicy(ctx context.Context, tenantID string) (tenant.Policy, error) {
	pol, err := p.store.GetPolicy(ctx, tenantID)
	if err != nil {
		return tenant.Policy{}, err
	}
	if pol.EscalationWebhookURL == "" {
		pol.EscalationWebhookURL = p.webhookURL
	}
	return pol, nil
}
