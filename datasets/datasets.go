package datasets

import (
	"errors"
	"fmt"

	"github.com/Noofbiz/vltrack/transforms"
)

// This package provides the dataset variants used to train and evaluate the
// vision-language tracker, and the factory that selects one of them by kind.
//
// All variants use lazy loading: the annotation file (or the directory listing
// for inference) is read at construction, images are only decoded when an
// example is requested.
//
// Layout and intended usage:
//
// PretrainDataset
//   - annotation file + training image root
//   - image transform only
//
// TrackingDataset
//   - annotation file + training image root
//   - image transform and saliency transform; every record points to a saliency map
//
// EvalDataset
//   - annotation file + evaluation image root
//   - image transform only
//
// InferenceDataset
//   - evaluation image root only, frames discovered by walking the directory
//   - captions read from language.txt files next to the frames

// ErrUnknownKind is returned when a dataset kind is not registered.
var ErrUnknownKind = errors.New("unknown dataset kind")

// Kind selects a dataset variant.
type Kind string

const (
	KindPretrain     Kind = "pretrain"
	KindTracking     Kind = "tracking"
	KindEvalTracking Kind = "eval_tracking"
	KindInference    Kind = "inference"
)

// Kinds lists every kind the default factory knows, in a stable order.
var Kinds = []Kind{KindPretrain, KindTracking, KindEvalTracking, KindInference}

// ParseKind validates a dataset kind identifier.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Dataset is implemented by every variant. The loader package consumes it.
type Dataset interface {
	Name() string
	Len() int
	Example(i int) (*Example, error)
}

// Example is a single transformed sample.
type Example struct {
	// Index is the position of the example in its dataset.
	Index int
	// ID is the annotation id, or the relative frame path for inference.
	ID string
	// Path is the image file the example was decoded from.
	Path string

	Image *transforms.CHW
	// Saliency is only set by TrackingDataset.
	Saliency *transforms.CHW

	// Caption is the pre-processed referring expression.
	Caption string

	// BBox is [x, y, w, h] normalized by the source image size.
	BBox    [4]float32
	HasBBox bool
}
