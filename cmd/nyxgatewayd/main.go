// Package main provides nyxgatewayd - the NYX testnet gateway daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nyx-testnet/nyx-gateway/internal/chatpush"
	"github.com/nyx-testnet/nyx-gateway/internal/compliance"
	"github.com/nyx-testnet/nyx-gateway/internal/evidence"
	"github.com/nyx-testnet/nyx-gateway/internal/httpapi"
	"github.com/nyx-testnet/nyx-gateway/internal/risk"
	"github.com/nyx-testnet/nyx-gateway/internal/router"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/web2guard"
	"github.com/nyx-testnet/nyx-gateway/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		host        = flag.String("host", "", "Listen host, overrides NYX_HOST")
		port        = flag.Int("port", 0, "Listen port, overrides NYX_PORT")
		envFile     = flag.String("env-file", "", "Dotenv file to load before reading settings")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("nyxgatewayd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatal("failed to load env file", "path", *envFile, "error", err)
		}
	}

	cfg, err := settings.Load()
	if err != nil {
		log.Fatal("failed to load settings", "error", err)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	httpapi.Version = version

	store, err := storage.Open(storage.Config{DataDir: cfg.DataDir, Log: log.Component("storage")})
	if err != nil {
		log.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()
	log.Info("storage opened", "path", cfg.DataDir)

	limiter := risk.NewRateLimiter(cfg)
	engine := risk.NewEngine(cfg)
	comp := compliance.New(cfg)
	guard := web2guard.New(web2guard.DefaultAllowlist)
	hub := chatpush.NewHub()
	go hub.Run()

	var proof evidence.ProofEngine = evidence.LocalEngine{}

	exec := router.New(store, cfg, engine, limiter, proof, guard, comp, hub)
	server := httpapi.New(exec, store, cfg, guard, hub)

	if err := server.Start(); err != nil {
		log.Fatal("failed to start httpapi server", "error", err)
	}
	log.Info("nyxgatewayd started", "host", cfg.Host, "port", cfg.Port, "env", cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("error stopping httpapi server", "error", err)
	}

	log.Info("goodbye!")
}
