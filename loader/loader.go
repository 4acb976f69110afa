// Package loader turns a dataset into a stream of collated batches.
//
// A Loader reads indices from a sampler, groups them into batches and fetches
// the batches either in the calling goroutine (NumWorkers == 0) or with a pool
// of workers that prefetch ahead of the consumer. Batches are always delivered
// in sampler order.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Noofbiz/vltrack/datasets"
	"github.com/Noofbiz/vltrack/sampler"
)

var (
	ErrSamplerShuffle = errors.New("shuffle must be false when a sampler is set")
	ErrLengthMismatch = errors.New("loader arguments have different lengths")
)

// DefaultPrefetchFactor is the number of batches each worker may have ready
// ahead of the consumer.
const DefaultPrefetchFactor = 2

// Sampler yields the indices of one pass over a dataset.
type Sampler interface {
	Len() int
	Indices() []int
}

// epochSetter is implemented by samplers whose order depends on the epoch.
type epochSetter interface {
	SetEpoch(epoch int)
}

// FromDistributed converts distributed samplers to Sampler values, keeping nil
// entries as nil interfaces.
func FromDistributed(ss []*sampler.DistributedSampler) []Sampler {
	out := make([]Sampler, len(ss))
	for i, s := range ss {
		if s != nil {
			out[i] = s
		}
	}
	return out
}

// Options configures a Loader.
type Options struct {
	BatchSize  int
	NumWorkers int
	// PrefetchFactor defaults to DefaultPrefetchFactor.
	PrefetchFactor int

	// Sampler overrides the default index order. It cannot be combined with Shuffle.
	Sampler  Sampler
	Shuffle  bool
	DropLast bool

	// Collate defaults to DefaultCollate.
	Collate CollateFunc

	// Seed fixes the permutations drawn when Shuffle is set.
	Seed int64

	Logger  *zap.Logger
	Metrics *Metrics
}

// Loader yields batches from a dataset.
type Loader struct {
	ds      datasets.Dataset
	opts    Options
	sampler Sampler
	logger  *zap.Logger

	// current iterator used by the train.Dataset methods
	mu sync.Mutex
	it *Iterator
}

// New creates a loader over ds.
func New(ds datasets.Dataset, opts Options) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", opts.BatchSize)
	}
	if opts.NumWorkers < 0 {
		return nil, fmt.Errorf("number of workers must be >= 0, got %d", opts.NumWorkers)
	}
	if opts.Sampler != nil && opts.Shuffle {
		return nil, ErrSamplerShuffle
	}
	if opts.PrefetchFactor <= 0 {
		opts.PrefetchFactor = DefaultPrefetchFactor
	}
	if opts.Collate == nil {
		opts.Collate = DefaultCollate
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := opts.Sampler
	switch {
	case s != nil:
	case opts.Shuffle:
		s = sampler.NewRandom(ds.Len(), opts.Seed)
	default:
		s = sampler.NewSequential(ds.Len())
	}

	return &Loader{
		ds:      ds,
		opts:    opts,
		sampler: s,
		logger:  opts.Logger.With(zap.String("component", "loader"), zap.String("dataset", ds.Name())),
	}, nil
}

// Dataset returns the dataset the loader reads from.
func (l *Loader) Dataset() datasets.Dataset { return l.ds }

// Shuffle reports whether the loader draws a new random order every pass.
func (l *Loader) Shuffle() bool { return l.opts.Shuffle }

// DropLast reports whether a trailing incomplete batch is dropped.
func (l *Loader) DropLast() bool { return l.opts.DropLast }

// Sampler returns the caller-provided sampler, nil if none was set.
func (l *Loader) Sampler() Sampler { return l.opts.Sampler }

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.opts.BatchSize }

// NumWorkers returns the configured number of workers.
func (l *Loader) NumWorkers() int { return l.opts.NumWorkers }

// Len returns the number of batches in one pass.
func (l *Loader) Len() int {
	n := l.sampler.Len()
	if l.opts.DropLast {
		return n / l.opts.BatchSize
	}
	return (n + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// SetEpoch forwards the epoch to the sampler when it depends on it.
func (l *Loader) SetEpoch(epoch int) {
	if es, ok := l.sampler.(epochSetter); ok {
		es.SetEpoch(epoch)
	}
}

// batches splits one pass of sampler indices into batches.
func (l *Loader) batches() [][]int {
	indices := l.sampler.Indices()
	bs := l.opts.BatchSize
	out := make([][]int, 0, (len(indices)+bs-1)/bs)
	for start := 0; start < len(indices); start += bs {
		end := min(start+bs, len(indices))
		if end-start < bs && l.opts.DropLast {
			break
		}
		out = append(out, indices[start:end])
	}
	return out
}

// fetch reads and collates the examples of one batch.
func (l *Loader) fetch(ctx context.Context, indices []int) (*Batch, error) {
	start := time.Now()
	name := l.ds.Name()

	examples := make([]*datasets.Example, len(indices))
	for i, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex, err := l.ds.Example(idx)
		if err != nil {
			l.opts.Metrics.observe(name, 0, 0, err)
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		examples[i] = ex
	}

	b, err := l.opts.Collate(examples)
	l.opts.Metrics.observe(name, len(examples), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

type result struct {
	batch *Batch
	err   error
}

// Iterator walks one pass of a Loader. It must be drained or closed.
type Iterator struct {
	l       *Loader
	batches [][]int
	next    int
	done    bool

	// set when workers are used
	ctx     context.Context
	cancel  context.CancelFunc
	g       *errgroup.Group
	results []chan result
	slots   chan struct{}
}

// Iterate starts a pass over the dataset. With workers, fetching starts
// immediately and stops when ctx is cancelled or the iterator is closed.
func (l *Loader) Iterate(ctx context.Context) *Iterator {
	it := &Iterator{l: l, batches: l.batches()}
	if l.opts.NumWorkers > 0 && len(it.batches) > 0 {
		it.start(ctx)
	}
	l.logger.Debug("iteration started",
		zap.Int("batches", len(it.batches)),
		zap.Int("workers", l.opts.NumWorkers),
	)
	return it
}

func (it *Iterator) start(parent context.Context) {
	workers := min(it.l.opts.NumWorkers, len(it.batches))

	it.ctx, it.cancel = context.WithCancel(parent)
	g, gctx := errgroup.WithContext(it.ctx)
	it.g = g
	it.results = make([]chan result, len(it.batches))
	for i := range it.results {
		it.results[i] = make(chan result, 1)
	}
	// bounds the batches fetched but not yet consumed
	it.slots = make(chan struct{}, it.l.opts.NumWorkers*it.l.opts.PrefetchFactor)

	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range it.batches {
			select {
			case it.slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for i := range jobs {
				b, err := it.l.fetch(gctx, it.batches[i])
				it.results[i] <- result{batch: b, err: err}
			}
			return nil
		})
	}
}

// Len returns the number of batches in this pass.
func (it *Iterator) Len() int { return len(it.batches) }

// Next returns the next batch, or io.EOF after the last one. After an error
// the iterator is closed.
func (it *Iterator) Next(ctx context.Context) (*Batch, error) {
	if it.done || it.next >= len(it.batches) {
		it.Close()
		return nil, io.EOF
	}
	i := it.next

	if it.results == nil {
		b, err := it.l.fetch(ctx, it.batches[i])
		if err != nil {
			it.fail(err)
			return nil, err
		}
		it.next++
		return b, nil
	}

	var r result
	select {
	case r = <-it.results[i]:
	case <-it.ctx.Done():
		err := it.ctx.Err()
		it.fail(err)
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	<-it.slots
	it.next++
	if r.err != nil {
		it.fail(r.err)
		return nil, r.err
	}
	return r.batch, nil
}

func (it *Iterator) fail(err error) {
	it.l.logger.Warn("batch failed", zap.Int("batch", it.next), zap.Error(err))
	it.Close()
}

// Close stops the workers and waits for them to exit.
func (it *Iterator) Close() error {
	if it.done {
		return nil
	}
	it.done = true
	if it.cancel == nil {
		return nil
	}
	it.cancel()
	if err := it.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
