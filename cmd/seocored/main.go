// Command seocored runs the SEO analysis and auto-fix core service: the
// HTTP API, the background job workers, the cron scheduler, and the
// retention cleanup sweep, all sharing one database connection pool.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/seocore/seocore/pkg/aianalysis"
	"github.com/seocore/seocore/pkg/aifixer"
	"github.com/seocore/seocore/pkg/api"
	"github.com/seocore/seocore/pkg/cleanup"
	"github.com/seocore/seocore/pkg/collector"
	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/database"
	"github.com/seocore/seocore/pkg/deploy"
	"github.com/seocore/seocore/pkg/detector"
	"github.com/seocore/seocore/pkg/discovery"
	"github.com/seocore/seocore/pkg/effectiveness"
	"github.com/seocore/seocore/pkg/jobqueue"
	"github.com/seocore/seocore/pkg/knowledge"
	"github.com/seocore/seocore/pkg/lighthouse"
	"github.com/seocore/seocore/pkg/llmclient"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/ratelimiter"
	"github.com/seocore/seocore/pkg/refresh"
	"github.com/seocore/seocore/pkg/scheduler"
	"github.com/seocore/seocore/pkg/searchconsole"
	"github.com/seocore/seocore/pkg/sitemap"
	"github.com/seocore/seocore/pkg/vectorstore"
	"github.com/seocore/seocore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// primaryLLMProvider is the conventional config.yaml key config/deploy
// operators use for the main generation+embedding provider (spec.md
// §4.9/§4.10 don't name per-tenant providers, only one shared one).
const primaryLLMProvider = "primary"

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"path to the configuration directory")
	podID := flag.String("pod-id", getEnv("POD_ID", "seocored-0"), "identity of this pod, used for job-queue worker naming")
	flag.Parse()

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	log := slog.With("component", "seocored", "version", version.Full())
	log.Info("starting seocore core service", "config_dir", *configDir, "http_port", httpPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Error("error closing database client", "error", err)
		}
	}()
	log.Info("connected to database and ran migrations")
	db := dbClient.DB

	var redisClient *redis.Client
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, lighthouse caching disabled", "addr", addr, "error", err)
			redisClient = nil
		}
	}

	limiterConfigs := map[ratelimiter.Kind]ratelimiter.Config{}
	for kind, rlKey := range map[ratelimiter.Kind]config.RateLimitKind{
		ratelimiter.KindLighthouse:    config.RateLimitKindLighthouse,
		ratelimiter.KindSearchConsole: config.RateLimitKindSearchConsole,
		ratelimiter.KindLLM:           config.RateLimitKindLLM,
		ratelimiter.KindCrawl:         config.RateLimitKindCrawl,
	} {
		if rl, ok := cfg.GetRateLimit(rlKey); ok {
			limiterConfigs[kind] = ratelimiter.Config{RatePerSecond: rl.RatePerSecond, MaxConcurrent: rl.MaxConcurrent, BurstSize: rl.BurstSize}
		}
	}
	limiters := ratelimiter.NewRegistry(limiterConfigs)

	var llm llmclient.Provider
	if provCfg, err := cfg.GetLLMProvider(primaryLLMProvider); err == nil {
		apiKey := os.Getenv(provCfg.APIKeyEnv)
		genaiProvider, err := llmclient.NewGenAIProvider(ctx, apiKey, provCfg.Model, "", provCfg.MaxOutputTokens)
		if err != nil {
			log.Error("failed to build LLM provider, AI analysis/auto-fix are disabled", "error", err)
		} else {
			llm = genaiProvider
			log.Info("llm provider ready", "model", provCfg.Model)
		}
	} else {
		log.Warn("no primary LLM provider configured, AI analysis/auto-fix are disabled")
	}

	var searchConsoleClient *searchconsole.Client
	if cfg.SearchConsole != nil && cfg.SearchConsole.CredentialsFile != "" {
		credBytes, err := os.ReadFile(cfg.SearchConsole.CredentialsFile)
		if err != nil {
			log.Warn("failed to read search console credentials, GSC sync disabled", "path", cfg.SearchConsole.CredentialsFile, "error", err)
		} else if searchConsoleClient, err = searchconsole.NewClient(ctx, credBytes); err != nil {
			log.Warn("failed to build search console client, GSC sync disabled", "error", err)
			searchConsoleClient = nil
		}
	}

	vectorDataDir := "./data/vectors"
	if cfg.VectorStore != nil && cfg.VectorStore.DataDir != "" {
		vectorDataDir = cfg.VectorStore.DataDir
	}
	vectorStore, err := vectorstore.Open(vectorDataDir)
	if err != nil {
		log.Error("failed to open vector store", "error", err)
		os.Exit(1)
	}
	defer vectorStore.Close()

	pageSpeedKey := os.Getenv("PAGESPEED_API_KEY")
	lighthouseClient := lighthouse.NewClient(pageSpeedKey, redisClient)

	discoveryLimiter := ratelimiter.NewBatch(4, 4, 10)
	if rl, ok := cfg.GetRateLimit(config.RateLimitKindCrawl); ok {
		discoveryLimiter = ratelimiter.NewBatch(rl.RatePerSecond, rl.MaxConcurrent, rl.BurstSize)
	}
	discoverer := discovery.New(discoveryLimiter, slog.Default())

	coll := collector.New(db, lighthouseClient, searchConsoleClient, limiters)

	maxPages := 500
	if cfg.Collector != nil && cfg.Collector.MaxPagesPerDomain > 0 {
		maxPages = cfg.Collector.MaxPagesPerDomain
	}
	orchestrator := refresh.New(db, discoverer, coll, maxPages)

	det := detector.New()
	kb := knowledge.New(db)
	analysisEngine := aianalysis.New(db, kb, vectorStore, llm)

	registry := aifixer.NewRegistry()
	if llm != nil {
		registry.Register(models.IssueTitleMissing, aifixer.NewTitleGenerator(llm))
		registry.Register(models.IssueTitleTooShort, aifixer.NewTitleGenerator(llm))
		registry.Register(models.IssueTitleTooLong, aifixer.NewTitleGenerator(llm))
		registry.Register(models.IssueDescriptionMissing, aifixer.NewDescriptionGenerator(llm))
		registry.Register(models.IssueDescriptionTooShort, aifixer.NewDescriptionGenerator(llm))
		registry.Register(models.IssueDescriptionTooLong, aifixer.NewDescriptionGenerator(llm))
		registry.Register(models.IssueH1Missing, aifixer.NewH1Generator(llm))
		registry.Register(models.IssueH1Multiple, aifixer.NewH1Generator(llm))
		registry.Register(models.IssueThinContent, aifixer.NewContentGenerator(llm))
		registry.Register(models.IssueImagesMissingAlt, aifixer.NewAltTextGenerator(llm))
		registry.Register(models.IssueOpenGraphIncomplete, aifixer.NewOpenGraphGenerator(llm))
	}

	deployPipeline := deploy.NewPipeline(db, cfg.Git)
	sitemapEditor := sitemap.NewEditor(db, deployPipeline)

	modelID := ""
	if llm != nil {
		modelID = llm.Model()
	}
	fixer := aifixer.New(aifixer.Config{
		DB:              db,
		Registry:        registry,
		ModelID:         modelID,
		LLM:             llm,
		SearchConsole:   searchConsoleClient,
		Deployer:        deployPipeline,
		SitemapDeployer: sitemapEditor,
	})

	tracker := effectiveness.New(db, searchConsoleClient, llm, vectorStore, llm)

	server := api.NewServer(db, nil, orchestrator, analysisEngine, fixer, det, tracker, sitemapEditor, searchConsoleClient, vectorStore, llm)

	pool := jobqueue.NewWorkerPool(*podID, db, cfg.Queue, server.Executors())
	server.SetPool(pool)
	if err := pool.Start(ctx); err != nil {
		log.Error("failed to start job queue workers", "error", err)
		os.Exit(1)
	}
	defer pool.Stop()
	log.Info("job queue workers started", "pod_id", *podID)

	sched := scheduler.New(db, cfg.Scheduler)
	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()
	log.Info("cron scheduler started")

	cleanupSvc := cleanup.NewService(cfg.Retention, db)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()
	log.Info("retention cleanup sweep started", "interval", cfg.Retention.CleanupInterval)

	stats := cfg.Stats()
	router := gin.New()
	router.Use(gin.Recovery())
	server.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.SQL())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version.Full(),
			"database": dbHealth,
			"configuration": gin.H{
				"llm_providers": stats.LLMProviders,
				"rate_limits":   stats.RateLimits,
			},
		})
	})

	srv := &http.Server{
		Addr:    ":" + httpPort,
		Handler: router,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during http server shutdown", "error", err)
	}
}
