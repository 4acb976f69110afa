// Package config holds the configuration mapping read by the dataset, sampler
// and loader factories.
//
// A configuration can be loaded from a YAML, JSON or TOML file with Load, or
// decoded from an already parsed mapping with FromMap:
//
//	cfg, err := config.Load("configs/tracking.yaml")
//	if err != nil {
//		return err
//	}
//	if err := cfg.Require(config.KeyTrainFile, config.KeyImageRoot); err != nil {
//		return err
//	}
//
// Values not present in the source keep the defaults of DefaultConfig. The
// dataset keys (image_res, train_file, image_root, eval_image_root, max_words)
// have no defaults and must be provided by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrMissingKey is wrapped by every error reporting an absent or empty key.
var ErrMissingKey = errors.New("missing configuration key")

// Keys read by the dataset factory.
const (
	KeyImageRes      = "image_res"
	KeyTrainFile     = "train_file"
	KeyImageRoot     = "image_root"
	KeyEvalImageRoot = "eval_image_root"
	KeyMaxWords      = "max_words"
)

// Config is the full configuration mapping.
type Config struct {
	// ImageRes is the side of the square the images are resized to.
	ImageRes int `yaml:"image_res" mapstructure:"image_res"`

	// TrainFile is the annotation file used by the pretrain, tracking and
	// eval_tracking datasets.
	TrainFile string `yaml:"train_file" mapstructure:"train_file"`

	// ImageRoot is the directory training image paths are relative to.
	ImageRoot string `yaml:"image_root" mapstructure:"image_root"`

	// EvalImageRoot is the directory used by eval_tracking and inference.
	EvalImageRoot string `yaml:"eval_image_root" mapstructure:"eval_image_root"`

	// MaxWords caps the number of caption words kept after pre-processing.
	MaxWords int `yaml:"max_words" mapstructure:"max_words"`

	Loader      LoaderConfig      `yaml:"loader" mapstructure:"loader"`
	Distributed DistributedConfig `yaml:"distributed" mapstructure:"distributed"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// LoaderConfig configures the data loaders built by the CLI.
type LoaderConfig struct {
	TrainBatchSize int   `yaml:"batch_size_train" mapstructure:"batch_size_train"`
	EvalBatchSize  int   `yaml:"batch_size_eval" mapstructure:"batch_size_eval"`
	NumWorkers     int   `yaml:"num_workers" mapstructure:"num_workers"`
	PrefetchFactor int   `yaml:"prefetch_factor" mapstructure:"prefetch_factor"`
	Seed           int64 `yaml:"seed" mapstructure:"seed"`
}

// DistributedConfig describes this process inside a multi-process job.
type DistributedConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	NumTasks int  `yaml:"num_tasks" mapstructure:"num_tasks"`
	Rank     int  `yaml:"rank" mapstructure:"rank"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is json or console.
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the prometheus collectors.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// DefaultConfig returns a configuration with the loader, distributed and log
// defaults set. Dataset keys are left empty.
func DefaultConfig() *Config {
	return &Config{
		Loader: LoaderConfig{
			TrainBatchSize: 32,
			EvalBatchSize:  64,
			NumWorkers:     4,
			PrefetchFactor: 2,
			Seed:           42,
		},
		Distributed: DistributedConfig{
			NumTasks: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "vltrack",
		},
	}
}

// Load reads a YAML, JSON or TOML file on top of DefaultConfig. The format is
// chosen by extension; anything but .toml is parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		return FromMap(m)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromMap decodes a parsed configuration mapping on top of DefaultConfig.
// Numeric strings are accepted for numeric fields.
func FromMap(m map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode config mapping: %w", err)
	}
	return cfg, nil
}

// Require checks that every named key is set. String keys must be non-empty
// and numeric keys must be positive. All missing keys are reported together.
func (c *Config) Require(keys ...string) error {
	var errs []error
	for _, key := range keys {
		var ok bool
		switch key {
		case KeyImageRes:
			ok = c.ImageRes > 0
		case KeyTrainFile:
			ok = strings.TrimSpace(c.TrainFile) != ""
		case KeyImageRoot:
			ok = strings.TrimSpace(c.ImageRoot) != ""
		case KeyEvalImageRoot:
			ok = strings.TrimSpace(c.EvalImageRoot) != ""
		case KeyMaxWords:
			ok = c.MaxWords > 0
		default:
			errs = append(errs, fmt.Errorf("unknown configuration key %q", key))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, key))
		}
	}
	return errors.Join(errs...)
}
