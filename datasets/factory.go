package datasets

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Noofbiz/vltrack/config"
	"github.com/Noofbiz/vltrack/transforms"
)

// Args is the argument set the factory hands to a constructor. Only the
// fields relevant to the kind are populated: SaliencyTransform is set for
// tracking alone and AnnotationFile is empty for inference.
type Args struct {
	AnnotationFile    string
	ImageRoot         string
	Transform         transforms.Transform
	SaliencyTransform transforms.Transform
	MaxWords          int
}

// Constructor builds a dataset from its arguments.
type Constructor func(Args) (Dataset, error)

// Factory maps dataset kinds to constructors.
type Factory struct {
	constructors map[Kind]Constructor
	logger       *zap.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used to report constructed datasets.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory returns a factory with the four default variants registered.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		constructors: make(map[Kind]Constructor, len(Kinds)),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("component", "dataset_factory"))

	f.Register(KindPretrain, func(a Args) (Dataset, error) {
		ds, err := NewPretrain(a.AnnotationFile, a.ImageRoot, a.Transform, a.MaxWords)
		if err != nil {
			return nil, err
		}
		return ds, nil
	})
	f.Register(KindTracking, func(a Args) (Dataset, error) {
		ds, err := NewTracking(a.AnnotationFile, a.ImageRoot, a.Transform, a.SaliencyTransform, a.MaxWords)
		if err != nil {
			return nil, err
		}
		return ds, nil
	})
	f.Register(KindEvalTracking, func(a Args) (Dataset, error) {
		ds, err := NewEval(a.AnnotationFile, a.ImageRoot, a.Transform, a.MaxWords)
		if err != nil {
			return nil, err
		}
		return ds, nil
	})
	f.Register(KindInference, func(a Args) (Dataset, error) {
		ds, err := NewInference(a.ImageRoot, a.Transform, a.MaxWords)
		if err != nil {
			return nil, err
		}
		return ds, nil
	})
	return f
}

// Register replaces the constructor used for kind. Only the kinds in Kinds
// can be created. Registering nil makes Create fail for kind.
func (f *Factory) Register(kind Kind, c Constructor) {
	f.constructors[kind] = c
}

// requiredKeys lists the configuration keys each kind reads.
var requiredKeys = map[Kind][]string{
	KindPretrain:     {config.KeyImageRes, config.KeyTrainFile, config.KeyImageRoot, config.KeyMaxWords},
	KindTracking:     {config.KeyImageRes, config.KeyTrainFile, config.KeyImageRoot, config.KeyMaxWords},
	KindEvalTracking: {config.KeyImageRes, config.KeyTrainFile, config.KeyEvalImageRoot, config.KeyMaxWords},
	KindInference:    {config.KeyImageRes, config.KeyEvalImageRoot, config.KeyMaxWords},
}

// ArgsFor builds the argument subset for kind from cfg.
func ArgsFor(kind Kind, cfg *config.Config) (Args, error) {
	keys, ok := requiredKeys[kind]
	if !ok {
		return Args{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if cfg == nil {
		return Args{}, fmt.Errorf("config is nil")
	}
	if err := cfg.Require(keys...); err != nil {
		return Args{}, fmt.Errorf("dataset %s: %w", kind, err)
	}

	args := Args{
		Transform: TrackingTransform(cfg.ImageRes),
		MaxWords:  cfg.MaxWords,
	}
	switch kind {
	case KindPretrain:
		args.AnnotationFile = cfg.TrainFile
		args.ImageRoot = cfg.ImageRoot
	case KindTracking:
		args.AnnotationFile = cfg.TrainFile
		args.ImageRoot = cfg.ImageRoot
		args.SaliencyTransform = SaliencyTransform(cfg.ImageRes)
	case KindEvalTracking:
		args.AnnotationFile = cfg.TrainFile
		args.ImageRoot = cfg.EvalImageRoot
	case KindInference:
		args.ImageRoot = cfg.EvalImageRoot
	}
	return args, nil
}

// Create builds the dataset registered for kind.
func (f *Factory) Create(kind string, cfg *config.Config) (Dataset, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	ctor, ok := f.constructors[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if ctor == nil {
		return nil, fmt.Errorf("no constructor registered for %s", kind)
	}
	args, err := ArgsFor(k, cfg)
	if err != nil {
		return nil, err
	}
	ds, err := ctor(args)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s dataset: %w", kind, err)
	}
	f.logger.Info("dataset created",
		zap.String("kind", kind),
		zap.String("name", ds.Name()),
		zap.Int("examples", ds.Len()),
		zap.String("image_root", args.ImageRoot),
	)
	return ds, nil
}

// CreateDataset builds a dataset of the given kind with the default factory.
func CreateDataset(kind string, cfg *config.Config) (Dataset, error) {
	return NewFactory().Create(kind, cfg)
}

// TrackingTransform converts to RGB, resizes to res x res with bicubic
// filtering, converts to a tensor and applies CLIP normalization.
func TrackingTransform(res int) transforms.Transform {
	return &transforms.Compose{
		ImageOps:  []transforms.ImageOp{transforms.ToRGB(), transforms.Resize(res, res)},
		TensorOps: []transforms.TensorOp{transforms.Normalize(transforms.CLIPMean, transforms.CLIPStd)},
	}
}

// SaliencyTransform resizes to res x res and converts to a tensor. Grayscale
// maps stay single-channel.
func SaliencyTransform(res int) transforms.Transform {
	return &transforms.Compose{
		ImageOps: []transforms.ImageOp{transforms.Resize(res, res)},
	}
}
