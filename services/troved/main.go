package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"solusd/config"
	"solusd/core"
	"solusd/core/genesis"
	"solusd/node"
	"solusd/observability"
	"solusd/observability/logging"
	telemetry "solusd/observability/otel"
	trovedconfig "solusd/services/troved/config"
	"solusd/services/troved/server"
	"solusd/storage/journal"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/troved/config.yaml", "path to troved config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SOLUSD_ENV"))

	cfg, err := trovedconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, logCloser := logging.SetupWithFile("troved", env, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   true,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "troved",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		Metrics:     true,
		Traces:      true,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	engineCfg, err := config.Load(cfg.EnginePath)
	if err != nil {
		log.Fatalf("load engine config: %v", err)
	}
	if cfg.DataDir != "" {
		engineCfg.DataDir = cfg.DataDir
	}
	if cfg.Backend != "" {
		engineCfg.Backend = cfg.Backend
	}

	n, err := node.Open(engineCfg, nil, core.WithLogger(logger), core.WithMetrics(observability.Engine()))
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer n.Close()

	if path := strings.TrimSpace(cfg.GenesisPath); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			log.Fatalf("load genesis: %v", err)
		}
		if err := n.Processor.InitGenesis(spec); err != nil && !errors.Is(err, core.ErrGenesisApplied) {
			log.Fatalf("apply genesis: %v", err)
		}
	}

	var receipts *journal.Journal
	if dsn := strings.TrimSpace(cfg.Journal.DSN); dsn != "" {
		receipts, err = journal.Open(dsn)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		defer receipts.Close()
	}

	auth, err := server.NewAuthenticator(server.AuthConfig{
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  cfg.Auth.ClockSkew.Duration,
	}, logger)
	if err != nil {
		log.Fatalf("configure auth: %v", err)
	}

	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		Processor:     n.Processor,
		Journal:       receipts,
		Authenticator: auth,
		RateLimiter: server.NewRateLimiter(server.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		}),
		Logger:        logger,
		ShutdownGrace: cfg.ShutdownGrace.Duration,
	})
	if err != nil {
		log.Fatalf("configure server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("troved stopped")
}
