// Package trainer fits the potability forest from a CSV dataset and writes
// the model artifact.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"waterguard/config"
	"waterguard/dataset"
	"waterguard/db"
	"waterguard/features"
	"waterguard/ml"
)

// positiveClass is the Potability value for drinkable water.
const positiveClass = 1

type Options struct {
	DatasetPath string
	ModelPath   string
	Features    []string
	TestRatio   float64
	// Seed 0 seeds from the clock, so repeated runs split differently.
	Seed   int64
	Forest ml.ForestParams
	// LogDB, when set, receives one training_log row per run.
	LogDB string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DatasetPath: cfg.Training.DatasetPath,
		ModelPath:   cfg.Model.Path,
		Features:    cfg.Model.Features,
		TestRatio:   cfg.Training.TestRatio,
		Seed:        cfg.Training.Seed,
		Forest: ml.ForestParams{
			NTrees:          cfg.Training.Trees,
			MaxDepth:        cfg.Training.MaxDepth,
			MinSamplesSplit: cfg.Training.MinSamplesSplit,
			MaxFeatures:     cfg.Training.MaxFeatures,
			Bootstrap:       cfg.Training.Bootstrap,
		},
		LogDB: cfg.Training.LogDB,
	}
}

type Result struct {
	Artifact    *ml.Artifact
	TotalRows   int
	DroppedRows int
	Seed        int64
}

// Run trains and saves a model. No artifact is written when any step fails.
func Run(ctx context.Context, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DatasetPath == "" {
		return nil, errors.New("dataset path is required")
	}
	if opts.ModelPath == "" {
		return nil, errors.New("model path is required")
	}

	schema, err := features.New(opts.Features)
	if err != nil {
		return nil, err
	}

	raw, err := dataset.Load(opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	complete := raw.DropIncomplete()
	dropped := len(raw.Rows) - len(complete.Rows)
	logger.Info("dataset loaded",
		zap.String("path", opts.DatasetPath),
		zap.Int("rows", len(raw.Rows)),
		zap.Int("dropped_incomplete", dropped),
	)

	x, y, err := complete.Select(schema.Features, schema.Label)
	if err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))
	trainX, trainY, testX, testY := dataset.Split(x, y, opts.TestRatio, rnd)

	forest := ml.NewRandomForest(opts.Forest, rnd)
	start := time.Now()
	if err := forest.Train(ctx, trainX, trainY); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	metrics := ml.Evaluate(forest, testX, testY, positiveClass)
	logger.Info("model trained",
		zap.Int("trees", len(forest.Trees)),
		zap.Strings("features", schema.Features),
		zap.Int("train_rows", len(trainX)),
		zap.Int("test_rows", len(testX)),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall),
		zap.Float64("f1", metrics.F1),
		zap.Duration("elapsed", time.Since(start)),
	)

	artifact := ml.NewArtifact(schema, forest)
	artifact.TrainingRows = len(trainX)
	artifact.TestRows = len(testX)
	artifact.Metrics = metrics
	if err := artifact.Save(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	if opts.LogDB != "" {
		if err := recordRun(ctx, opts, artifact, dropped); err != nil {
			// Best effort: the artifact is already saved.
			logger.Warn("failed to record training run", zap.String("db", opts.LogDB), zap.Error(err))
		}
	}

	return &Result{
		Artifact:    artifact,
		TotalRows:   len(raw.Rows),
		DroppedRows: dropped,
		Seed:        seed,
	}, nil
}

func recordRun(ctx context.Context, opts Options, artifact *ml.Artifact, dropped int) error {
	store, err := db.Open(opts.LogDB)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveTrainingLog(ctx, db.TrainingLog{
		ModelName:   artifact.ModelType,
		ModelPath:   opts.ModelPath,
		Features:    artifact.Features,
		Accuracy:    artifact.Metrics.Accuracy,
		Precision:   artifact.Metrics.Precision,
		Recall:      artifact.Metrics.Recall,
		F1:          artifact.Metrics.F1,
		TrainRows:   artifact.TrainingRows,
		TestRows:    artifact.TestRows,
		DroppedRows: dropped,
		TrainedAt:   artifact.TrainedAt,
	})
}
