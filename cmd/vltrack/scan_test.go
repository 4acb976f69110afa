package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanLoader(t *testing.T) {
	p, err := buildPipeline(testConfig(t), []string{"eval_tracking"}, zap.NewNop(), nil)
	require.NoError(t, err)

	batches, examples, _, err := scanLoader(context.Background(), zap.NewNop(), p.loaders[0])
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, 5, examples)
}

func TestScanCommandWritesMetrics(t *testing.T) {
	cfg, logger = testConfig(t), zap.NewNop()
	kindsFlag = "tracking"
	scanMetricsOut = filepath.Join(t.TempDir(), "metrics", "loader.prom")
	t.Cleanup(func() { scanMetricsOut = "" })

	var out bytes.Buffer
	scanCmd.SetOut(&out)
	scanCmd.SetContext(context.Background())
	require.NoError(t, scanCmd.RunE(scanCmd, nil))
	assert.True(t, strings.HasPrefix(out.String(), "tracking: 2 batches, 4 examples"), out.String())

	data, err := os.ReadFile(scanMetricsOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vltrack_loader_batches_total")
}

func TestCollectStats(t *testing.T) {
	p, err := buildPipeline(testConfig(t), []string{"eval_tracking"}, zap.NewNop(), nil)
	require.NoError(t, err)

	centers, lengths, err := collectStats(context.Background(), p.loaders[0], 0)
	require.NoError(t, err)
	require.Len(t, centers, 5)
	require.Len(t, lengths, 5)
	// bbox [0,0,8,4] on a 16x8 image
	assert.InDelta(t, 0.25, centers[0].X, 1e-6)
	assert.InDelta(t, 0.25, centers[0].Y, 1e-6)
	assert.Equal(t, 3.0, lengths[0])

	centers, _, err = collectStats(context.Background(), p.loaders[0], 1)
	require.NoError(t, err)
	assert.Len(t, centers, 2)

	dir := t.TempDir()
	require.NoError(t, plotCenters(filepath.Join(dir, "c.png"), centers))
	require.NoError(t, plotLengths(filepath.Join(dir, "l.png"), lengths, 5))
	assert.FileExists(t, filepath.Join(dir, "c.png"))
	assert.FileExists(t, filepath.Join(dir, "l.png"))
}
