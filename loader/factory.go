package loader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Noofbiz/vltrack/datasets"
)

// Policy derives shuffle and drop_last for one loader. Training loaders drop
// the trailing incomplete batch and shuffle unless a sampler already decides
// the order; evaluation loaders do neither.
func Policy(isTrain, hasSampler bool) (shuffle, dropLast bool) {
	if isTrain {
		return !hasSampler, true
	}
	return false, false
}

// Option sets a field shared by every loader built by CreateLoaders.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithSeed fixes the shuffle order of loaders without a sampler.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithPrefetchFactor sets the number of batches prefetched per worker.
func WithPrefetchFactor(n int) Option {
	return func(o *Options) { o.PrefetchFactor = n }
}

// CreateLoaders builds one loader per dataset. samplers and collateFns may be
// nil, meaning no sampler and DefaultCollate for every dataset; otherwise every
// slice must have one entry per dataset. Individual nil samplers and collate
// functions are allowed.
func CreateLoaders(dss []datasets.Dataset, samplers []Sampler, batchSizes, numWorkers []int,
	isTrains []bool, collateFns []CollateFunc, opts ...Option) ([]*Loader, error) {

	n := len(dss)
	if samplers == nil {
		samplers = make([]Sampler, n)
	}
	if collateFns == nil {
		collateFns = make([]CollateFunc, n)
	}
	if len(samplers) != n || len(batchSizes) != n || len(numWorkers) != n || len(isTrains) != n || len(collateFns) != n {
		return nil, fmt.Errorf("%w: datasets=%d samplers=%d batch_sizes=%d num_workers=%d is_trains=%d collate_fns=%d",
			ErrLengthMismatch, n, len(samplers), len(batchSizes), len(numWorkers), len(isTrains), len(collateFns))
	}

	var common Options
	for _, opt := range opts {
		opt(&common)
	}

	loaders := make([]*Loader, 0, n)
	for i, ds := range dss {
		shuffle, dropLast := Policy(isTrains[i], samplers[i] != nil)

		o := common
		o.BatchSize = batchSizes[i]
		o.NumWorkers = numWorkers[i]
		o.Sampler = samplers[i]
		o.Shuffle = shuffle
		o.DropLast = dropLast
		o.Collate = collateFns[i]

		l, err := New(ds, o)
		if err != nil {
			return nil, fmt.Errorf("loader %d: %w", i, err)
		}
		l.logger.Info("loader created",
			zap.Int("batch_size", o.BatchSize),
			zap.Int("workers", o.NumWorkers),
			zap.Bool("shuffle", shuffle),
			zap.Bool("drop_last", dropLast),
			zap.Bool("sampler", o.Sampler != nil),
			zap.Int("batches", l.Len()),
		)
		loaders = append(loaders, l)
	}
	return loaders, nil
}
