package loader

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/vltrack/datasets"
)

// Batch is a collated group of examples.
type Batch struct {
	Indices  []int
	IDs      []string
	Paths    []string
	Captions []string

	// Images is float32 [B, C, H, W].
	Images *tensors.Tensor
	// Saliency is float32 [B, C, H, W], nil when the examples carry none.
	Saliency *tensors.Tensor
	// BBoxes is float32 [B, 4]; rows of examples without a box are zero.
	BBoxes  *tensors.Tensor
	HasBBox []bool
	// Boxes holds the same values as BBoxes without going through a tensor.
	Boxes [][4]float32
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int {
	return len(b.Indices)
}

// CollateFunc merges examples into a batch.
type CollateFunc func(examples []*datasets.Example) (*Batch, error)

// DefaultCollate stacks images, saliency maps and boxes into gomlx tensors.
// All images (and all saliency maps) must share one shape, and either every
// example has a saliency map or none does.
func DefaultCollate(examples []*datasets.Example) (*Batch, error) {
	n := len(examples)
	if n == 0 {
		return nil, fmt.Errorf("collate: empty batch")
	}
	b := &Batch{
		Indices:  make([]int, n),
		IDs:      make([]string, n),
		Paths:    make([]string, n),
		Captions: make([]string, n),
		HasBBox:  make([]bool, n),
		Boxes:    make([][4]float32, n),
	}

	first := examples[0]
	if first == nil || first.Image == nil {
		return nil, fmt.Errorf("collate: example 0 has no image")
	}
	withSaliency := first.Saliency != nil

	c, h, w := first.Image.C, first.Image.H, first.Image.W
	images := make([]float32, 0, n*c*h*w)
	var saliency []float32
	var sc, sh, sw int
	if withSaliency {
		sc, sh, sw = first.Saliency.C, first.Saliency.H, first.Saliency.W
		saliency = make([]float32, 0, n*sc*sh*sw)
	}
	boxes := make([]float32, n*4)

	for i, ex := range examples {
		if ex == nil || ex.Image == nil {
			return nil, fmt.Errorf("collate: example %d has no image", i)
		}
		if ex.Image.C != c || ex.Image.H != h || ex.Image.W != w {
			return nil, fmt.Errorf("collate: inconsistent image shapes: example 0 is [%d %d %d], example %d is [%d %d %d]",
				c, h, w, i, ex.Image.C, ex.Image.H, ex.Image.W)
		}
		images = append(images, ex.Image.Data...)

		if (ex.Saliency != nil) != withSaliency {
			return nil, fmt.Errorf("collate: example %d saliency presence differs from example 0", i)
		}
		if withSaliency {
			if ex.Saliency.C != sc || ex.Saliency.H != sh || ex.Saliency.W != sw {
				return nil, fmt.Errorf("collate: inconsistent saliency shapes at example %d", i)
			}
			saliency = append(saliency, ex.Saliency.Data...)
		}

		if ex.HasBBox {
			copy(boxes[i*4:], ex.BBox[:])
			b.Boxes[i] = ex.BBox
		}
		b.Indices[i] = ex.Index
		b.IDs[i] = ex.ID
		b.Paths[i] = ex.Path
		b.Captions[i] = ex.Caption
		b.HasBBox[i] = ex.HasBBox
	}

	b.Images = tensors.FromFlatDataAndDimensions(images, n, c, h, w)
	if withSaliency {
		b.Saliency = tensors.FromFlatDataAndDimensions(saliency, n, sc, sh, sw)
	}
	b.BBoxes = tensors.FromFlatDataAndDimensions(boxes, n, 4)
	return b, nil
}
