package loader

import (
	"context"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// To implement gomlx's train.Dataset interface
var _ train.Dataset = (*Loader)(nil)

// Name returns the name of the underlying dataset.
func (l *Loader) Name() string {
	return l.ds.Name()
}

// Yield returns the next batch for gomlx training loops. Inputs are the images
// followed by the saliency maps when present, labels are the boxes and spec is
// the *Batch itself (captions, ids, paths). It returns io.EOF at the end of the
// pass until Reset is called.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.it == nil {
		l.it = l.Iterate(context.Background())
	}
	b, err := l.it.Next(context.Background())
	if err != nil {
		return nil, nil, nil, err
	}
	inputs = []*tensors.Tensor{b.Images}
	if b.Saliency != nil {
		inputs = append(inputs, b.Saliency)
	}
	labels = []*tensors.Tensor{b.BBoxes}
	return b, inputs, labels, nil
}

// Reset stops the current pass; the next Yield starts a new one.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.it != nil {
		l.it.Close()
		l.it = nil
	}
}
