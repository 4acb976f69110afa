// Package sampler decides which dataset indices a process iterates over and in
// which order.
//
// DistributedSampler splits a dataset across the processes of a distributed
// job; SequentialSampler and RandomSampler cover the single-process case.
package sampler

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrInvalidReplicas = errors.New("number of replicas must be >= 1")
	ErrInvalidRank     = errors.New("rank out of range")
	ErrLengthMismatch  = errors.New("datasets and shuffles have different lengths")
)

// Sized is anything with a number of examples.
type Sized interface {
	Len() int
}

// DistributedSampler restricts iteration to the shard of one rank.
//
// Every rank builds the same index list (a permutation seeded with
// Seed+epoch when shuffling), pads it by repeating from the start so it
// divides evenly (or truncates it when DropLast is set), then keeps every
// NumReplicas-th index starting at Rank.
type DistributedSampler struct {
	NumReplicas int
	Rank        int
	Shuffle     bool
	Seed        int64
	DropLast    bool

	size  int
	epoch int
}

// NewDistributed creates a sampler over a dataset of size n.
func NewDistributed(n, numReplicas, rank int, shuffle bool, seed int64) (*DistributedSampler, error) {
	if numReplicas < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidReplicas, numReplicas)
	}
	if rank < 0 || rank >= numReplicas {
		return nil, fmt.Errorf("%w: rank %d not in [0, %d)", ErrInvalidRank, rank, numReplicas)
	}
	if n < 0 {
		return nil, fmt.Errorf("dataset size must be >= 0, got %d", n)
	}
	return &DistributedSampler{
		NumReplicas: numReplicas,
		Rank:        rank,
		Shuffle:     shuffle,
		Seed:        seed,
		size:        n,
	}, nil
}

// SetEpoch changes the shuffle order. Call it before every epoch so that all
// ranks draw the same fresh permutation.
func (s *DistributedSampler) SetEpoch(epoch int) {
	s.epoch = epoch
}

// Epoch returns the epoch set last.
func (s *DistributedSampler) Epoch() int {
	return s.epoch
}

// Len returns the number of indices this rank iterates over.
func (s *DistributedSampler) Len() int {
	if s.DropLast && s.size%s.NumReplicas != 0 {
		return s.size / s.NumReplicas
	}
	return (s.size + s.NumReplicas - 1) / s.NumReplicas
}

// TotalSize is Len times NumReplicas.
func (s *DistributedSampler) TotalSize() int {
	return s.Len() * s.NumReplicas
}

// Indices returns this rank's indices for the current epoch.
func (s *DistributedSampler) Indices() []int {
	var indices []int
	if s.Shuffle {
		r := rand.New(rand.NewSource(s.Seed + int64(s.epoch)))
		indices = r.Perm(s.size)
	} else {
		indices = make([]int, s.size)
		for i := range indices {
			indices[i] = i
		}
	}

	total := s.TotalSize()
	if len(indices) < total {
		// pad by cycling from the start
		for i := 0; len(indices) < total; i++ {
			indices = append(indices, indices[i%s.size])
		}
	} else {
		indices = indices[:total]
	}

	out := make([]int, 0, s.Len())
	for i := s.Rank; i < total; i += s.NumReplicas {
		out = append(out, indices[i])
	}
	return out
}

// CreateSamplers returns one DistributedSampler per dataset, in input order,
// shuffling the datasets whose flag is set.
func CreateSamplers(datasets []Sized, shuffles []bool, numTasks, globalRank int, seed int64) ([]*DistributedSampler, error) {
	if len(datasets) != len(shuffles) {
		return nil, fmt.Errorf("%w: %d datasets, %d shuffles", ErrLengthMismatch, len(datasets), len(shuffles))
	}
	samplers := make([]*DistributedSampler, 0, len(datasets))
	for i, ds := range datasets {
		if ds == nil {
			return nil, fmt.Errorf("dataset %d is nil", i)
		}
		s, err := NewDistributed(ds.Len(), numTasks, globalRank, shuffles[i], seed)
		if err != nil {
			return nil, fmt.Errorf("sampler %d: %w", i, err)
		}
		samplers = append(samplers, s)
	}
	return samplers, nil
}

// SequentialSampler yields 0..n-1.
type SequentialSampler struct {
	n int
}

// NewSequential creates a sequential sampler over n examples.
func NewSequential(n int) *SequentialSampler {
	return &SequentialSampler{n: n}
}

// Len returns n.
func (s *SequentialSampler) Len() int { return s.n }

// Indices returns 0..n-1.
func (s *SequentialSampler) Indices() []int {
	out := make([]int, s.n)
	for i := range out {
		out[i] = i
	}
	return out
}

// RandomSampler yields a new permutation of 0..n-1 on every call to Indices.
type RandomSampler struct {
	n   int
	rng *rand.Rand
}

// NewRandom creates a random sampler whose sequence of permutations is fixed
// by seed.
func NewRandom(n int, seed int64) *RandomSampler {
	return &RandomSampler{n: n, rng: rand.New(rand.NewSource(seed))}
}

// Len returns n.
func (s *RandomSampler) Len() int { return s.n }

// Indices draws the next permutation.
func (s *RandomSampler) Indices() []int {
	return s.rng.Perm(s.n)
}
