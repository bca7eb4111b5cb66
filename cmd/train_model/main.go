package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"waterguard/config"
	"waterguard/logging"
	"waterguard/trainer"
)

func main() {
	configPath := flag.String("config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")
	dataPath := flag.String("data", "", "training CSV (overrides training.dataset_path)")
	modelPath := flag.String("model", "", "model output path (overrides model.path)")
	trees := flag.Int("trees", 0, "number of trees (overrides training.trees)")
	maxDepth := flag.Int("max_depth", -1, "max tree depth, 0 for unlimited (overrides training.max_depth)")
	testRatio := flag.Float64("test_ratio", 0, "held-out ratio (overrides training.test_ratio)")
	seed := flag.Int64("seed", 0, "random seed (overrides training.seed)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	opts := trainer.OptionsFromConfig(cfg)
	if *dataPath != "" {
		opts.DatasetPath = *dataPath
	}
	if *modelPath != "" {
		opts.ModelPath = *modelPath
	}
	if *trees > 0 {
		opts.Forest.NTrees = *trees
	}
	if *maxDepth >= 0 {
		opts.Forest.MaxDepth = *maxDepth
	}
	if *testRatio > 0 {
		opts.TestRatio = *testRatio
	}
	if *seed != 0 {
		opts.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := trainer.Run(ctx, opts, logger)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("training finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("dropped_rows", result.DroppedRows),
		zap.Int64("seed", result.Seed),
		zap.Float64("accuracy", result.Artifact.Metrics.Accuracy),
	)

	fmt.Printf("model saved to %s\n", opts.ModelPath)
}
