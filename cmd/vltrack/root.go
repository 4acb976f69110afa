package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Noofbiz/vltrack/config"
)

var (
	configPath string
	logLevel   string
	kindsFlag  string
	numTasks   int
	rank       int

	// set by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vltrack",
	Short: "Build and inspect the data pipeline of the vision-language tracker",
	Long: `vltrack builds datasets, distributed samplers and batched loaders from a
configuration file, the same way the training and evaluation drivers do.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := applyDistributed(cmd, cfg); err != nil {
			return err
		}
		logger, err = newLogger(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/tracking.yaml", "path to the YAML, JSON or TOML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&kindsFlag, "kinds", "tracking,eval_tracking", "comma-separated dataset kinds")
	rootCmd.PersistentFlags().IntVar(&numTasks, "num-tasks", 0, "number of distributed processes (0 = config or WORLD_SIZE)")
	rootCmd.PersistentFlags().IntVar(&rank, "rank", -1, "rank of this process (-1 = config or RANK)")
}

// applyDistributed resolves the distributed setup with precedence:
// 1) CLI flags, 2) WORLD_SIZE/RANK environment variables, 3) config file.
func applyDistributed(cmd *cobra.Command, c *config.Config) error {
	if ws, ok := os.LookupEnv("WORLD_SIZE"); ok {
		n, err := strconv.Atoi(ws)
		if err != nil {
			return fmt.Errorf("invalid WORLD_SIZE %q: %w", ws, err)
		}
		c.Distributed.NumTasks = n
		c.Distributed.Enabled = n > 1
	}
	if r, ok := os.LookupEnv("RANK"); ok {
		n, err := strconv.Atoi(r)
		if err != nil {
			return fmt.Errorf("invalid RANK %q: %w", r, err)
		}
		c.Distributed.Rank = n
	}
	if cmd.Flags().Changed("num-tasks") {
		c.Distributed.NumTasks = numTasks
		c.Distributed.Enabled = numTasks > 1
	}
	if cmd.Flags().Changed("rank") {
		c.Distributed.Rank = rank
	}
	return nil
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func splitKinds(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
