package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"waterguard/config"
	whttp "waterguard/http"
	"waterguard/logging"
	"waterguard/predictor"
)

func main() {
	configPath := flag.String("config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")
	flag.Parse()

	// 1. Load config
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load the model before accepting requests
	p, err := predictor.Load(cfg.Model.Path, cfg.Model.Features, cfg.Server.CacheSize)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	info := p.Info()
	logger.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Strings("features", info.Features),
		zap.Int("trees", info.Trees),
	)

	// 3. Start HTTP server
	server := whttp.NewServer(whttp.ServerConfig{
		Addr:           cfg.Addr(),
		Timeout:        cfg.Server.Timeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, p, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
		return
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := server.Stop(5 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("exiting")
}
