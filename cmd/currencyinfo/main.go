package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/metrics"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/history"
	"github.com/Adamant-im/currencyinfo/pkg/rates/merger"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
	sourceapi "github.com/Adamant-im/currencyinfo/pkg/rates/sources/api"
	"github.com/Adamant-im/currencyinfo/pkg/rates/updater"
	serverapi "github.com/Adamant-im/currencyinfo/pkg/server/api"
	"github.com/Adamant-im/currencyinfo/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("currencyinfo version %s\n", version.Version)
		os.Exit(0)
	}

	// Environment variables referenced from the config file may live in .env
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting currencyinfo", "version", version.Version)

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)

	go func() {
		errChan <- run(ctx, cfg, logger)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Component failed", "error", err)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down gracefully...")
	<-shutdownCtx.Done()
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	notifier := notify.NewService(cfg.Notify.Slack, cfg.Notify.Discord, logger)

	srcs := []sources.Source{
		sourceapi.NewCurrencyAPI(cfg, logger),
		sourceapi.NewExchangeRateHost(cfg, logger),
		sourceapi.NewMoex(cfg, logger),
		sourceapi.NewCoinmarketcap(cfg, logger, notifier),
		sourceapi.NewCryptoCompare(cfg, logger),
		sourceapi.NewCoingecko(cfg, logger, notifier),
	}

	manager := sources.NewManager(srcs, cfg, logger, notifier)
	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize sources: %w", err)
	}

	m, err := merger.New(cfg, manager.SourceWeights(), notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create merger: %w", err)
	}
	m.SetCoverage(manager.AllCoins(), manager.PairSources())

	store, err := history.NewPostgres(cfg.History.DSN, logger)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}

	u := updater.New(manager, m, store, cfg, notifier, logger)

	server := serverapi.NewServer(cfg.Server.Addr, u, logger)

	if cfg.Server.WebSocket.Enabled {
		wsServer := serverapi.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		u.SetBroadcast(wsServer.SendUpdate)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server failed", "error", err)
			}
		}()

		defer wsServer.Stop()
	}

	go u.Run(ctx)

	go func() {
		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		_ = server.Stop(stopCtx)
	}()

	return server.Start()
}
