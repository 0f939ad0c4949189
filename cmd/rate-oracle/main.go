package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tc.com/rate-oracle/pkg/config"
	"tc.com/rate-oracle/pkg/logging"
	"tc.com/rate-oracle/pkg/metrics"
	"tc.com/rate-oracle/pkg/oracle"
	"tc.com/rate-oracle/pkg/server/api"
	"tc.com/rate-oracle/pkg/server/sources"
	"tc.com/rate-oracle/pkg/version"

	// Import feeds to register them
	_ "tc.com/rate-oracle/pkg/server/sources/cex"
	_ "tc.com/rate-oracle/pkg/server/sources/evm"
	_ "tc.com/rate-oracle/pkg/server/sources/fiat"
	_ "tc.com/rate-oracle/pkg/server/sources/static"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("rate-oracle version %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	logger.Info("Starting rate-oracle", "version", version.Version, "feeds", sources.List())

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
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
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}

	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	feeds := make(map[string]sources.Source)
	var allSources []sources.Source

	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		logger.Info("Initializing feed", "type", sourceCfg.Type, "name", sourceCfg.Name)

		// Pass the logger and feed decimals down so feeds don't invent
		// their own.
		if sourceCfg.Config == nil {
			sourceCfg.Config = make(map[string]interface{})
		}
		sourceCfg.Config["logger"] = logger
		if sourceCfg.Decimals > 0 {
			sourceCfg.Config["decimals"] = sourceCfg.Decimals
		}
		if sourceCfg.Interval > 0 {
			sourceCfg.Config["interval"] = int(sourceCfg.Interval.ToDuration().Milliseconds())
		}

		source, err := sources.Create(sourceCfg.Type, sourceCfg.Name, sourceCfg.Config)
		if err != nil {
			logger.Warn("Failed to create feed", "type", sourceCfg.Type, "name", sourceCfg.Name, "error", err)
			continue
		}

		if err := source.Initialize(ctx); err != nil {
			logger.Warn("Failed to initialize feed", "source", source.Name(), "error", err)
			continue
		}

		if err := source.Start(ctx); err != nil {
			logger.Warn("Failed to start feed", "source", source.Name(), "error", err)
			continue
		}

		feeds[sourceCfg.Key()] = source
		allSources = append(allSources, source)

		logger.Info("Feed started", "source", source.Name(), "symbols", source.Symbols())
	}

	if len(allSources) == 0 {
		return fmt.Errorf("no feeds available")
	}

	// Asset precision comes from configuration.
	assetDecimals := make(map[string]uint8, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		assetDecimals[asset.Symbol] = uint8(asset.Decimals)
	}
	engine := oracle.NewEngine(oracle.MetadataFunc(func(asset string) (uint8, error) {
		d, ok := assetDecimals[asset]
		if !ok {
			return 0, fmt.Errorf("%w: %s", oracle.ErrUnknownAsset, asset)
		}
		return d, nil
	}))

	for _, asset := range cfg.Assets {
		source, ok := feeds[asset.Source]
		if !ok {
			logger.Warn("Asset references unavailable feed", "asset", asset.Symbol, "source", asset.Source)
			continue
		}

		feed, err := source.Feed(asset.Feed)
		if err != nil {
			logger.Warn("Feed does not serve symbol", "asset", asset.Symbol, "feed", asset.Feed, "error", err)
			continue
		}

		if err := engine.RegisterSource(asset.Symbol, feed); err != nil {
			logger.Warn("Failed to register asset", "asset", asset.Symbol, "error", err)
			continue
		}

		logger.Info("Registered asset", "asset", asset.Symbol, "source", asset.Source, "feed", asset.Feed)
	}
	metrics.SetRegisteredBindings(len(engine.Bindings()))

	server := api.NewServer(cfg.Server.HTTP.Addr, engine, allSources, feeds, cfg.Server.AdminToken, logger)

	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		server.SetWebSocketServer(wsServer)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()

		// Stream live feed updates to WebSocket clients.
		updates := make(chan sources.PriceUpdate, 100)
		for _, source := range allSources {
			if err := source.Subscribe(updates); err != nil {
				logger.Debug("Feed does not stream updates", "source", source.Name())
			}
		}
		go wsServer.Pump(ctx, updates)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		if wsServer != nil {
			wsServer.Stop()
		}

		for _, source := range allSources {
			if err := source.Stop(); err != nil {
				logger.Warn("Feed shutdown failed", "source", source.Name(), "error", err)
			}
		}
	}()

	return server.Start()
}
