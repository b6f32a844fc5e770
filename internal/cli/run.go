package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anditomara/chatpulse/internal/cache"
	"github.com/anditomara/chatpulse/internal/classify"
	"github.com/anditomara/chatpulse/internal/logging"
	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/notify"
	"github.com/anditomara/chatpulse/internal/output"
	"github.com/anditomara/chatpulse/internal/pipeline"
	"github.com/anditomara/chatpulse/internal/registry"
	"github.com/anditomara/chatpulse/internal/scrape"
	"github.com/anditomara/chatpulse/internal/session"
	"github.com/anditomara/chatpulse/internal/worker"
)

var (
	window         time.Duration
	harvestWorkers int
	classifyCap    int
	batchSize      int
	sourcesFile    string
	databaseDSN    string
	outputDir      string
	logLevel       string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest all registered sources and classify the results",
	Long: `Run executes one full cycle:
- Load the source list (Postgres or YAML file)
- Harvest every source concurrently inside the time window
- Merge, deduplicate and order the messages
- Score them in batches through the relevance service
- Write the surviving messages to a dated JSON file

Credentials come from the environment:
  CHATPULSE_CHANNEL_TOKEN    channel REST API token
  CHATPULSE_ANALYTICS_KEY    analytics API key
  CHATPULSE_SESSION_URL      chat-group gateway base URL
  CHATPULSE_SESSION_TOKEN    chat-group gateway token
  DEEPSEEK_API_KEY           relevance-scoring service key
  TELEGRAM_BOT_TOKEN         operator alert bot (optional)
  TELEGRAM_CHAT_ID           operator alert chat (optional)
  DATABASE_URL               Postgres registry DSN (optional)

Example:
  chatpulse run
  chatpulse run --sources sources.yaml --window 12h --batch-size 20`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&window, "window", 24*time.Hour, "trailing time window per source")
	runCmd.Flags().IntVar(&harvestWorkers, "harvest-concurrency", 10, "max concurrent source harvests (all platforms combined)")
	runCmd.Flags().IntVar(&classifyCap, "classify-concurrency", 5, "max concurrent classification batches")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 10, "messages per classification batch")
	runCmd.Flags().StringVar(&sourcesFile, "sources", "sources.yaml", "YAML source list (used when no database DSN is set)")
	runCmd.Flags().StringVar(&databaseDSN, "dsn", "", "Postgres DSN for the source registry (overrides DATABASE_URL)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "out", "directory for dated JSON output")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := model.DefaultConfig()
	cfg.Window = window
	cfg.Concurrency.Harvest = harvestWorkers
	cfg.Concurrency.Classify = classifyCap
	cfg.Classify.BatchSize = batchSize
	cfg.Registry.File = sourcesFile
	cfg.Output.Dir = outputDir
	cfg.Log.Level = logLevel

	cfg.Registry.DSN = databaseDSN
	if cfg.Registry.DSN == "" {
		cfg.Registry.DSN = os.Getenv("DATABASE_URL")
	}
	cfg.Channel.Token = os.Getenv("CHATPULSE_CHANNEL_TOKEN")
	cfg.Analytics.APIKey = os.Getenv("CHATPULSE_ANALYTICS_KEY")
	cfg.Session.BridgeURL = os.Getenv("CHATPULSE_SESSION_URL")
	cfg.Session.Token = os.Getenv("CHATPULSE_SESSION_TOKEN")
	cfg.Classify.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.Notify.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Notify.ChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if cfg.Classify.APIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY environment variable not set")
	}

	log := logging.New(cfg.Log.Level)

	// Registry: Postgres when a DSN is configured, YAML file otherwise.
	var reg registry.Registry
	if cfg.Registry.DSN != "" {
		pg, err := registry.OpenPostgres(ctx, cfg.Registry.DSN)
		if err != nil {
			return fmt.Errorf("connect registry: %w", err)
		}
		defer func() { _ = pg.Close() }()
		reg = pg
	} else {
		reg = registry.NewFile(cfg.Registry.File, log)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.BotToken != "" && cfg.Notify.ChatID != "" {
		notifier = notify.NewTelegram(cfg.Notify.BotToken, cfg.Notify.ChatID)
	}

	var groupSession scrape.GroupSession
	if cfg.Session.BridgeURL != "" {
		groupSession = session.NewBridgeClient(cfg.Session, cfg.Scrape.Timeout)
	}

	limiter := worker.NewLimiter(cfg.Scrape.RatePerSec, cfg.Scrape.RateBurst)
	store := cache.NewMemoryCache(cfg.Analytics.CacheTTL, 10*time.Minute)

	connectors := map[model.Platform]worker.Harvester{
		model.PlatformChannel:   scrape.NewChannelConnector(cfg.Channel, cfg.Scrape, cfg.Window, limiter, log),
		model.PlatformAnalytics: scrape.NewAnalyticsConnector(cfg.Analytics, cfg.Scrape, cfg.Window, limiter, store, log),
	}
	if groupSession != nil {
		connectors[model.PlatformChatGroup] = scrape.NewChatGroupConnector(groupSession, cfg.Scrape, cfg.Window, log)
	}

	scorer, err := classify.NewOpenAIScorer(classify.ScorerConfig{
		BaseURL: cfg.Classify.BaseURL,
		Model:   cfg.Classify.Model,
		APIKey:  cfg.Classify.APIKey,
		Timeout: cfg.Classify.Timeout,
	})
	if err != nil {
		return fmt.Errorf("scoring service: %w", err)
	}

	p := pipeline.New(pipeline.Deps{
		Registry:     reg,
		Session:      groupSession,
		Connectors:   connectors,
		Orchestrator: worker.NewOrchestrator(cfg.Concurrency.Harvest, log),
		Classifier:   classify.NewClassifier(scorer, cfg.Classify, cfg.Concurrency.Classify, log),
		Writer:       output.NewWriter(cfg.Output.Dir),
		Notifier:     notifier,
		Log:          log,
	})

	summary, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("Pulled: %d | Kept: %d | Final: %d\n", summary.Pulled, summary.Kept, summary.Final)
	fmt.Printf("Output: %s\n", summary.OutputPath)
	return nil
}
