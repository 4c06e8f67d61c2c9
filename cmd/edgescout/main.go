package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edgescout/internal/balldontlie"
	"edgescout/internal/config"
	"edgescout/internal/dedup"
	"edgescout/internal/logger"
	"edgescout/internal/oddsapi"
	"edgescout/internal/scanner"
	"edgescout/internal/storage"
	"edgescout/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.MaxAlerts, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize alert history storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	var notifier scanner.Notifier
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	var oddsScanner *scanner.OddsScanner
	if cfg.Odds.Enabled {
		oddsClient := oddsapi.NewClient(
			cfg.Odds.APIURL,
			cfg.Odds.APIKey,
			cfg.Odds.Regions,
			cfg.Odds.Timeout,
			cfg.Odds.MaxRetries,
			cfg.Odds.RetryDelayBase,
		)
		oddsScanner = scanner.NewOddsScanner(oddsClient, notifier, store, cfg.Odds.SharpBooks, scanner.OddsConfig{
			Sports:      cfg.Odds.Sports,
			TargetBooks: cfg.Odds.TargetBooks,
			MinEdge:     cfg.Odds.MinEdgePct / 100.0,
			MinPrice:    cfg.Odds.MinPrice,
			MaxLeadTime: cfg.Odds.MaxLeadTime,
			Cooldown:    cfg.Odds.Cooldown,
		})
	}

	var trendScanner *scanner.TrendScanner
	if cfg.Trends.Enabled {
		statsClient := balldontlie.NewClient(
			cfg.Trends.APIURL,
			cfg.Trends.APIKey,
			cfg.Trends.Timeout,
			cfg.Trends.MaxRetries,
			cfg.Trends.RetryDelayBase,
		)
		trendScanner = scanner.NewTrendScanner(statsClient, notifier, store, scanner.TrendConfig{
			Players:        cfg.Trends.Players,
			PointThreshold: cfg.Trends.PointThreshold,
			WindowSize:     cfg.Trends.WindowSize,
			Cooldown:       cfg.Trends.Cooldown,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scan.Interval <= 0 {
		// One scan cycle per invocation; the scheduler (cron, CI timer)
		// drives repetition and guarantees at most one concurrent run.
		if err := runScanCycle(ctx, cfg, oddsScanner, trendScanner); err != nil {
			logger.Error("Scan cycle finished with errors: %v", err)
		}
		logger.Info("Scan finished")
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting scan service (interval: %v, min_edge: %.1f%%, cooldowns: %v/%v)",
		cfg.Scan.Interval,
		cfg.Odds.MinEdgePct,
		cfg.Odds.Cooldown,
		cfg.Trends.Cooldown,
	)

	ticker := time.NewTicker(cfg.Scan.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Scan cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial scan cycle")
	handleCycleResult(runScanCycle(ctx, cfg, oddsScanner, trendScanner))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			handleCycleResult(runScanCycle(ctx, cfg, oddsScanner, trendScanner))
		}
	}
}

// runScanCycle performs one full run: rehydrate the dedup cache, scan both
// domains, persist the cache. Per-item and per-domain failures are isolated
// inside the scanners; the only error surfaced here is a cache save failure,
// and it never aborts the process.
func runScanCycle(ctx context.Context, cfg *config.Config, odds *scanner.OddsScanner, trends *scanner.TrendScanner) error {
	startTime := time.Now()
	logger.Info("Starting scan cycle")

	cache := dedup.NewCache(cfg.Cache.FilePath)
	cache.Load()

	now := time.Now().UTC()
	var total scanner.Summary

	if odds != nil {
		sum := odds.Scan(ctx, cache, now)
		logger.Info("Odds scan: %d events, %d alerts, %d suppressed, %d skipped",
			sum.Scanned, sum.Alerted, sum.Suppressed, sum.Skipped)
		total.Add(sum)
	}
	if trends != nil {
		sum := trends.Scan(ctx, cache, now)
		logger.Info("Trend scan: %d players, %d alerts, %d suppressed, %d skipped",
			sum.Scanned, sum.Alerted, sum.Suppressed, sum.Skipped)
		total.Add(sum)
	}

	// The cache is saved even when nothing fired, so stale entries keep
	// their timestamps and cooldown math stays exact across runs.
	saveErr := cache.Save()
	if saveErr != nil {
		logger.Error("Failed to persist dedup cache: %v", saveErr)
	}

	logger.Info("Scan cycle completed in %v (%d items, %d alerts)",
		time.Since(startTime), total.Scanned, total.Alerted)

	return saveErr
}
