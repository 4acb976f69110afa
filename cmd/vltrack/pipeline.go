package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Noofbiz/vltrack/config"
	"github.com/Noofbiz/vltrack/datasets"
	"github.com/Noofbiz/vltrack/loader"
	"github.com/Noofbiz/vltrack/sampler"
)

// pipeline holds what a driver builds before its epoch loop.
type pipeline struct {
	kinds    []string
	datasets []datasets.Dataset
	// samplers is nil unless distributed mode is enabled
	samplers []*sampler.DistributedSampler
	loaders  []*loader.Loader
}

// isTrainKind reports whether a kind feeds the training loop.
func isTrainKind(kind string) bool {
	return kind == string(datasets.KindPretrain) || kind == string(datasets.KindTracking)
}

// buildPipeline runs dataset factory -> sampler factory -> loader factory.
func buildPipeline(c *config.Config, kinds []string, log *zap.Logger, metrics *loader.Metrics) (*pipeline, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no dataset kinds given")
	}
	factory := datasets.NewFactory(datasets.WithLogger(log))

	p := &pipeline{kinds: kinds}
	isTrains := make([]bool, len(kinds))
	batchSizes := make([]int, len(kinds))
	workers := make([]int, len(kinds))
	for i, kind := range kinds {
		ds, err := factory.Create(kind, c)
		if err != nil {
			return nil, err
		}
		p.datasets = append(p.datasets, ds)

		isTrains[i] = isTrainKind(kind)
		batchSizes[i] = c.Loader.EvalBatchSize
		if isTrains[i] {
			batchSizes[i] = c.Loader.TrainBatchSize
		}
		workers[i] = c.Loader.NumWorkers
	}

	var samplers []loader.Sampler
	if c.Distributed.Enabled {
		sized := make([]sampler.Sized, len(p.datasets))
		for i, ds := range p.datasets {
			sized[i] = ds
		}
		ss, err := sampler.CreateSamplers(sized, isTrains, c.Distributed.NumTasks, c.Distributed.Rank, c.Loader.Seed)
		if err != nil {
			return nil, err
		}
		p.samplers = ss
		samplers = loader.FromDistributed(ss)
		log.Info("distributed samplers created",
			zap.Int("num_tasks", c.Distributed.NumTasks),
			zap.Int("rank", c.Distributed.Rank),
		)
	}

	loaders, err := loader.CreateLoaders(p.datasets, samplers, batchSizes, workers, isTrains, nil,
		loader.WithLogger(log),
		loader.WithMetrics(metrics),
		loader.WithSeed(c.Loader.Seed),
		loader.WithPrefetchFactor(c.Loader.PrefetchFactor),
	)
	if err != nil {
		return nil, err
	}
	p.loaders = loaders
	return p, nil
}
