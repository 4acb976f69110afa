package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Noofbiz/vltrack/loader"
)

var (
	scanEpoch            int
	scanLimit            int
	scanMetricsOut       string
	scanProgressInterval time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Iterate one epoch of every loader and report throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		metrics := loader.NewMetrics(reg, cfg.Metrics.Namespace)

		log := logger.With(zap.String("run_id", uuid.NewString()))
		p, err := buildPipeline(cfg, splitKinds(kindsFlag), log, metrics)
		if err != nil {
			return err
		}

		for i, l := range p.loaders {
			l.SetEpoch(scanEpoch)
			batches, examples, elapsed, err := scanLoader(ctx, log, l)
			if err != nil {
				return fmt.Errorf("scan %s: %w", p.kinds[i], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d batches, %d examples in %s (%.1f examples/s)\n",
				p.kinds[i], batches, examples, elapsed.Round(time.Millisecond),
				float64(examples)/max(elapsed.Seconds(), 1e-9))
		}

		if scanMetricsOut != "" {
			if err := os.MkdirAll(filepath.Dir(scanMetricsOut), 0o755); err != nil {
				return err
			}
			if err := prometheus.WriteToTextfile(scanMetricsOut, reg); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			log.Info("metrics written", zap.String("path", scanMetricsOut))
		}
		return nil
	},
}

// scanLoader drains one pass of l, logging progress periodically.
func scanLoader(ctx context.Context, log *zap.Logger, l *loader.Loader) (batches, examples int, elapsed time.Duration, err error) {
	total := l.Len()
	if scanLimit > 0 {
		total = min(total, scanLimit)
	}

	// atomic counter for progress
	var done int64

	ticker := time.NewTicker(scanProgressInterval)
	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d := atomic.LoadInt64(&done)
				log.Info("scan progress",
					zap.String("dataset", l.Name()),
					zap.Int64("batches", d),
					zap.Int("total", total),
					zap.Float64("percent", float64(d)/float64(max(total, 1))*100),
				)
			case <-stopProgress:
				return
			}
		}
	}()
	defer func() {
		close(stopProgress)
		<-progressDone
	}()

	start := time.Now()
	it := l.Iterate(ctx)
	defer it.Close()
	for batches < total {
		b, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batches, examples, time.Since(start), err
		}
		batches++
		examples += b.Size()
		atomic.AddInt64(&done, 1)
	}
	return batches, examples, time.Since(start), nil
}

func init() {
	scanCmd.Flags().IntVar(&scanEpoch, "epoch", 0, "epoch passed to the samplers")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "maximum number of batches per loader (0 = all)")
	scanCmd.Flags().StringVar(&scanMetricsOut, "metrics-out", "", "write loader metrics in Prometheus text format to this path")
	scanCmd.Flags().DurationVar(&scanProgressInterval, "progress-interval", 3*time.Second, "how often scan logs progress")
	rootCmd.AddCommand(scanCmd)
}
