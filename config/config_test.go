package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 32, cfg.Loader.TrainBatchSize)
	assert.Equal(t, 64, cfg.Loader.EvalBatchSize)
	assert.Equal(t, 4, cfg.Loader.NumWorkers)
	assert.Equal(t, 2, cfg.Loader.PrefetchFactor)
	assert.Equal(t, 1, cfg.Distributed.NumTasks)
	assert.Equal(t, "info", cfg.Log.Level)

	// dataset keys have no defaults
	assert.Zero(t, cfg.ImageRes)
	assert.Empty(t, cfg.TrainFile)
	assert.Zero(t, cfg.MaxWords)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.yaml")
	content := `
image_res: 256
train_file: data/train.json
image_root: /data/images
eval_image_root: /data/eval
max_words: 30
loader:
  batch_size_train: 8
  num_workers: 2
distributed:
  enabled: true
  num_tasks: 4
  rank: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.ImageRes)
	assert.Equal(t, "data/train.json", cfg.TrainFile)
	assert.Equal(t, "/data/images", cfg.ImageRoot)
	assert.Equal(t, "/data/eval", cfg.EvalImageRoot)
	assert.Equal(t, 30, cfg.MaxWords)
	assert.Equal(t, 8, cfg.Loader.TrainBatchSize)
	assert.Equal(t, 2, cfg.Loader.NumWorkers)
	assert.True(t, cfg.Distributed.Enabled)
	assert.Equal(t, 4, cfg.Distributed.NumTasks)
	assert.Equal(t, 3, cfg.Distributed.Rank)

	// untouched values keep their defaults
	assert.Equal(t, 64, cfg.Loader.EvalBatchSize)
	assert.Equal(t, 2, cfg.Loader.PrefetchFactor)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"image_res": 224, "train_file": "a.json", "image_root": "imgs", "max_words": 40}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 224, cfg.ImageRes)
	assert.Equal(t, 40, cfg.MaxWords)
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.toml")
	content := `
image_res = 384
train_file = "data/train.json"
image_root = "/data/images"
max_words = 40

[loader]
batch_size_eval = 16
seed = 7

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 384, cfg.ImageRes)
	assert.Equal(t, "data/train.json", cfg.TrainFile)
	assert.Equal(t, 40, cfg.MaxWords)
	assert.Equal(t, 16, cfg.Loader.EvalBatchSize)
	assert.Equal(t, int64(7), cfg.Loader.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 32, cfg.Loader.TrainBatchSize)
	assert.Equal(t, "vltrack", cfg.Metrics.Namespace)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image_res: [1, 2\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"image_res":       "384",
		"train_file":      "train.json",
		"image_root":      "images",
		"eval_image_root": "eval",
		"max_words":       float64(50),
		"loader": map[string]any{
			"num_workers": 0,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 384, cfg.ImageRes)
	assert.Equal(t, 50, cfg.MaxWords)
	assert.Equal(t, "eval", cfg.EvalImageRoot)
	assert.Equal(t, 0, cfg.Loader.NumWorkers)
	assert.Equal(t, 32, cfg.Loader.TrainBatchSize)
}

func TestRequire(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImageRes = 224
	cfg.TrainFile = "train.json"

	assert.NoError(t, cfg.Require(KeyImageRes, KeyTrainFile))

	err := cfg.Require(KeyImageRes, KeyImageRoot, KeyMaxWords)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Contains(t, err.Error(), KeyImageRoot)
	assert.Contains(t, err.Error(), KeyMaxWords)
	assert.NotContains(t, err.Error(), KeyImageRes)
}

func TestRequire_UnknownKey(t *testing.T) {
	err := DefaultConfig().Require("batch_size")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingKey))
}

func TestRequire_UnknownKeyKeepsMissing(t *testing.T) {
	err := DefaultConfig().Require(KeyTrainFile, "batch_size", KeyMaxWords)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Contains(t, err.Error(), KeyTrainFile)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), KeyMaxWords)
}
