// Command seocorectl is a local operator CLI for the SEO analysis and
// auto-fix core: one-off refreshes, AI analysis runs, sitemap preview
// diffing, and page-hierarchy repair, without standing up the full
// seocored service (HTTP API, job queue, scheduler).
//
// # File Index
//
//   - main.go         - rootCmd, global flags, bootstrap()
//   - cmd_refresh.go  - refreshCmd (full or --gsc-only domain refresh)
//   - cmd_analyze.go  - analyzeCmd (synchronous AI analysis run)
//   - cmd_sitemap.go  - sitemapDiffCmd (preview vs. currently-deployed sitemap.xml)
//   - cmd_hierarchy.go - recalculateDepthCmd, debugTreeCmd
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/aianalysis"
	"github.com/seocore/seocore/pkg/collector"
	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/database"
	"github.com/seocore/seocore/pkg/deploy"
	"github.com/seocore/seocore/pkg/discovery"
	"github.com/seocore/seocore/pkg/knowledge"
	"github.com/seocore/seocore/pkg/lighthouse"
	"github.com/seocore/seocore/pkg/llmclient"
	"github.com/seocore/seocore/pkg/ratelimiter"
	"github.com/seocore/seocore/pkg/refresh"
	"github.com/seocore/seocore/pkg/searchconsole"
	"github.com/seocore/seocore/pkg/sitemap"
	"github.com/seocore/seocore/pkg/vectorstore"
)

var configDir string

// rootCmd is the seocorectl entry point.
var rootCmd = &cobra.Command{
	Use:   "seocorectl",
	Short: "Operator CLI for the SEO analysis and auto-fix core",
	Long: `seocorectl runs one-off operations against the same database and
config.yaml the seocored service uses, for local debugging and ops
runbooks: triggering a single domain refresh or AI analysis pass,
previewing a sitemap diff, or repairing a domain's page hierarchy.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./deploy/config", "path to the configuration directory")
	rootCmd.AddCommand(refreshCmd, analyzeCmd, sitemapDiffCmd, recalculateDepthCmd, debugTreeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps collects the services a seocorectl subcommand can call into. Each
// command only uses the subset it needs; the rest stay nil-safe to build
// since this CLI never constructs the job queue, scheduler, or HTTP server.
type deps struct {
	db           *gorm.DB
	orchestrator *refresh.Orchestrator
	sitemap      *sitemap.Editor
	analysis     *aianalysis.Engine
	closeDB      func() error
}

// bootstrap loads configuration and connects to the database, then wires
// the services seocorectl subcommands call into, mirroring cmd/seocored's
// construction order for the pieces this CLI actually needs.
func bootstrap(ctx context.Context) (*deps, error) {
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	db := dbClient.DB

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

	var searchConsoleClient *searchconsole.Client
	if cfg.SearchConsole != nil && cfg.SearchConsole.CredentialsFile != "" {
		if credBytes, rerr := os.ReadFile(cfg.SearchConsole.CredentialsFile); rerr == nil {
			searchConsoleClient, _ = searchconsole.NewClient(ctx, credBytes)
		}
	}

	lighthouseClient := lighthouse.NewClient(os.Getenv("PAGESPEED_API_KEY"), nil)

	discoveryLimiter := ratelimiter.NewBatch(4, 4, 10)
	if rl, ok := cfg.GetRateLimit(config.RateLimitKindCrawl); ok {
		discoveryLimiter = ratelimiter.NewBatch(rl.RatePerSecond, rl.MaxConcurrent, rl.BurstSize)
	}
	discoverer := discovery.New(discoveryLimiter, nil)
	coll := collector.New(db, lighthouseClient, searchConsoleClient, limiters)

	maxPages := 500
	if cfg.Collector != nil && cfg.Collector.MaxPagesPerDomain > 0 {
		maxPages = cfg.Collector.MaxPagesPerDomain
	}
	orchestrator := refresh.New(db, discoverer, coll, maxPages)

	vectorDataDir := "./data/vectors"
	if cfg.VectorStore != nil && cfg.VectorStore.DataDir != "" {
		vectorDataDir = cfg.VectorStore.DataDir
	}
	vectorStore, err := vectorstore.Open(vectorDataDir)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	var llm llmclient.Provider
	if provCfg, perr := cfg.GetLLMProvider("primary"); perr == nil {
		apiKey := os.Getenv(provCfg.APIKeyEnv)
		if genaiProvider, gerr := llmclient.NewGenAIProvider(ctx, apiKey, provCfg.Model, "", provCfg.MaxOutputTokens); gerr == nil {
			llm = genaiProvider
		}
	}

	kb := knowledge.New(db)
	analysisEngine := aianalysis.New(db, kb, vectorStore, llm)

	deployPipeline := deploy.NewPipeline(db, cfg.Git)
	sitemapEditor := sitemap.NewEditor(db, deployPipeline)

	return &deps{
		db:           db,
		orchestrator: orchestrator,
		sitemap:      sitemapEditor,
		analysis:     analysisEngine,
		closeDB:      dbClient.Close,
	}, nil
}
