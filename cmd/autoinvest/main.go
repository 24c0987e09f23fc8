package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/autoinvest/internal/channels"
	"github.com/rewired-gh/autoinvest/internal/config"
	"github.com/rewired-gh/autoinvest/internal/extract"
	"github.com/rewired-gh/autoinvest/internal/fetcher"
	"github.com/rewired-gh/autoinvest/internal/logger"
	"github.com/rewired-gh/autoinvest/internal/models"
	"github.com/rewired-gh/autoinvest/internal/openai"
	"github.com/rewired-gh/autoinvest/internal/prices"
	"github.com/rewired-gh/autoinvest/internal/purchase"
	"github.com/rewired-gh/autoinvest/internal/storage"
	"github.com/rewired-gh/autoinvest/internal/telegram"
	"github.com/rewired-gh/autoinvest/internal/youtube"
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

	var store *storage.Storage
	if cfg.Fetcher.SkipSeenVideos {
		store, err = storage.New(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize seen-video storage: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	}

	ytClient := youtube.NewClient(
		cfg.YouTube.APIKey,
		cfg.YouTube.APIURL,
		cfg.YouTube.TimedTextURL,
		cfg.YouTube.PageSize,
		cfg.YouTube.Timeout,
	)
	llmClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.APIURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	extractor := extract.NewExtractor(llmClient)

	var seen fetcher.SeenStore
	if store != nil {
		seen = store
	}
	fetch := fetcher.New(ytClient, extractor, seen, fetcher.Config{
		WindowDays:   cfg.Fetcher.WindowDays,
		MaxAssets:    cfg.Fetcher.MaxAssets,
		MaxFeedPages: cfg.Fetcher.MaxFeedPages,
	})

	priceClient := prices.NewClient(cfg.Prices.ChartAPIURL, cfg.Prices.Timeout)

	var purchaser *purchase.Purchaser
	if cfg.Purchaser.Enabled {
		purchaser, err = purchase.New(purchase.Config{
			LedgerFile:      cfg.Purchaser.LedgerFile,
			ValidDays:       cfg.Purchaser.ValidDays,
			AssetAmounts:    cfg.Purchaser.AssetAmounts,
			UniversalAmount: cfg.Purchaser.UniversalAmount,
			SimulationMode:  cfg.Purchaser.SimulationMode,
		}, priceClient)
		if err != nil {
			logger.Fatal("Failed to initialize purchaser: %v", err)
		}
		defer func() {
			if err := purchaser.Close(); err != nil {
				logger.Error("Failed to close ledger: %v", err)
			}
		}()
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting auto-invest pipeline (window: %d days, max assets: %d, purchasing: %v)",
		cfg.Fetcher.WindowDays, cfg.Fetcher.MaxAssets, cfg.Purchaser.Enabled)

	runOnce := func() {
		if err := runPipeline(ctx, cfg, fetch, purchaser, telegramClient); err != nil {
			logger.Error("Pipeline run failed: %v", err)
			if telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		}
		if store != nil && cfg.Storage.MaxAge > 0 {
			if n, err := store.Prune(time.Now().Add(-cfg.Storage.MaxAge)); err != nil {
				logger.Warn("Failed to prune seen-video cache: %v", err)
			} else if n > 0 {
				logger.Debug("Pruned %d stale seen-video entries", n)
			}
		}
	}

	runOnce()

	if cfg.Run.Interval == 0 {
		logger.Info("Single pass complete")
		return
	}

	ticker := time.NewTicker(cfg.Run.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled pipeline run")
			runOnce()
		}
	}
}

func runPipeline(
	ctx context.Context,
	cfg *config.Config,
	fetch *fetcher.Fetcher,
	purchaser *purchase.Purchaser,
	telegramClient *telegram.Client,
) error {
	startTime := time.Now()
	logger.Info("Starting pipeline run")

	entries, err := channels.Load(cfg.Fetcher.ChannelsFile)
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}
	logger.Info("Loaded %d channels from %s", len(entries), cfg.Fetcher.ChannelsFile)

	assets, err := fetch.FetchAssets(ctx, entries)
	if err != nil {
		return fmt.Errorf("failed to fetch assets: %w", err)
	}
	logger.Info("Recommended assets: %v", assets)

	var records []models.PurchaseRecord
	if purchaser != nil && len(assets) > 0 {
		records, err = purchaser.PurchaseAssets(ctx, assets)
		if err != nil {
			return fmt.Errorf("failed to purchase assets: %w", err)
		}
		logger.Info("Appended %d purchase records to ledger", len(records))
	}

	if telegramClient != nil {
		if err := telegramClient.SendRunSummary(assets, records); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		} else {
			logger.Info("Sent Telegram run summary")
		}
	}

	logger.Info("Pipeline run completed in %v", time.Since(startTime))
	return nil
}
