package main

// Example command that builds the tracking datasets from a config file, wraps
// them in distributed samplers and batched loaders, and prints the first batch
// of each loader as gomlx tensors.
//
// Images are decoded lazily: only the examples of the batches actually read
// are loaded from disk.
//
// Usage:
//   go run ./datasets/example -config configs/tracking.yaml -num-tasks 2 -rank 0
//
// Note: this example expects the annotation file and image roots named in the
// config to exist. If they do not the example prints an error and exits.

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Noofbiz/vltrack/config"
	"github.com/Noofbiz/vltrack/datasets"
	"github.com/Noofbiz/vltrack/loader"
	"github.com/Noofbiz/vltrack/sampler"
)

func main() {
	configPath := flag.String("config", "configs/tracking.yaml", "path to config file")
	numTasks := flag.Int("num-tasks", 1, "number of distributed processes")
	rank := flag.Int("rank", 0, "rank of this process")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dataset factory: one train and one eval dataset
	kinds := []string{"tracking", "eval_tracking"}
	var dss []datasets.Dataset
	for _, kind := range kinds {
		ds, err := datasets.CreateDataset(kind, cfg)
		if err != nil {
			log.Fatalf("failed to create %s dataset: %v", kind, err)
		}
		fmt.Printf("%s: %s with %d examples\n", kind, ds.Name(), ds.Len())
		dss = append(dss, ds)
	}

	// Sampler factory: only the train dataset is shuffled
	sized := []sampler.Sized{dss[0], dss[1]}
	samplers, err := sampler.CreateSamplers(sized, []bool{true, false}, *numTasks, *rank, cfg.Loader.Seed)
	if err != nil {
		log.Fatalf("failed to create samplers: %v", err)
	}
	for i, s := range samplers {
		fmt.Printf("%s: rank %d/%d gets %d of %d padded indices\n",
			kinds[i], s.Rank, s.NumReplicas, s.Len(), s.TotalSize())
	}

	// Loader factory: shuffle and drop_last follow from is_train and the sampler
	loaders, err := loader.CreateLoaders(dss, loader.FromDistributed(samplers),
		[]int{cfg.Loader.TrainBatchSize, cfg.Loader.EvalBatchSize},
		[]int{cfg.Loader.NumWorkers, cfg.Loader.NumWorkers},
		[]bool{true, false}, nil)
	if err != nil {
		log.Fatalf("failed to create loaders: %v", err)
	}

	ctx := context.Background()
	for i, l := range loaders {
		fmt.Printf("\n%s loader: %d batches (shuffle=%v drop_last=%v)\n", kinds[i], l.Len(), l.Shuffle(), l.DropLast())
		it := l.Iterate(ctx)
		b, err := it.Next(ctx)
		it.Close()
		if err != nil {
			fmt.Printf("  no batch: %v\n", err)
			continue
		}
		fmt.Printf("  images: %s\n", b.Images.Shape())
		fmt.Printf("  bboxes: %s\n", b.BBoxes.Shape())
		if b.Saliency != nil {
			fmt.Printf("  saliency: %s\n", b.Saliency.Shape())
		}
		fmt.Printf("  first caption: %q (%s)\n", b.Captions[0], b.IDs[0])
	}
}
