// Package config loads the YAML configuration shared by the prediction
// service and the training command.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"waterguard/features"
)

// DefaultPath is used when neither a flag nor WATERGUARD_CONFIG names a file.
const DefaultPath = "config.yaml"

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "WATERGUARD_CONFIG"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	CacheSize      int           `yaml:"cache_size"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ModelConfig is read by both binaries. Features is the single list of model
// inputs; an empty list means all nine measurements.
type ModelConfig struct {
	Path     string   `yaml:"path"`
	Features []string `yaml:"features"`
}

type TrainingConfig struct {
	DatasetPath     string  `yaml:"dataset_path"`
	TestRatio       float64 `yaml:"test_ratio"`
	Seed            int64   `yaml:"seed"`
	Trees           int     `yaml:"trees"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	MaxFeatures     string  `yaml:"max_features"`
	Bootstrap       bool    `yaml:"bootstrap"`
	LogDB           string  `yaml:"log_db"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           5001,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 20,
			CacheSize:      1024,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Model: ModelConfig{
			Path: "water_model.json",
		},
		Training: TrainingConfig{
			DatasetPath:     "water_potability.csv",
			TestRatio:       0.2,
			Trees:           100,
			MinSamplesSplit: 2,
			MaxFeatures:     "sqrt",
			Bootstrap:       true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ResolvePath picks the config file: the explicit path, then
// WATERGUARD_CONFIG, then DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load decodes the file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// LoadOrDefault is Load, except that a missing file at the implicit default
// location yields Default().
func LoadOrDefault(path string) (*Config, error) {
	resolved := ResolvePath(path)
	config, err := Load(resolved)
	if err != nil && path == "" && resolved == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Server.CacheSize < 0 {
		return errors.New("server.cache_size cannot be negative")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if _, err := features.New(c.Model.Features); err != nil {
		return fmt.Errorf("model.features: %w", err)
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio %v must be in (0,1)", c.Training.TestRatio)
	}
	if c.Training.Trees <= 0 {
		return errors.New("training.trees must be positive")
	}
	if c.Training.MaxDepth < 0 {
		return errors.New("training.max_depth cannot be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q must be console or json", c.Log.Format)
	}
	return nil
}

// Addr is the listen address of the prediction service.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
