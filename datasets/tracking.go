package datasets

import (
	"fmt"

	"github.com/Noofbiz/vltrack/transforms"
)

// annotated holds what the annotation-file backed variants share.
type annotated struct {
	// AnnotationFile the records were read from
	AnnotationFile string
	// ImageRoot relative image paths are joined to
	ImageRoot string

	records   []record
	transform transforms.Transform
	maxWords  int
}

func newAnnotated(annotationFile, imageRoot string, transform transforms.Transform, maxWords int) (*annotated, error) {
	if transform == nil {
		return nil, fmt.Errorf("image transform is nil")
	}
	records, err := loadAnnotations(annotationFile)
	if err != nil {
		return nil, err
	}
	return &annotated{
		AnnotationFile: annotationFile,
		ImageRoot:      imageRoot,
		records:        records,
		transform:      transform,
		maxWords:       maxWords,
	}, nil
}

// Len returns the number of annotation records.
func (a *annotated) Len() int {
	return len(a.records)
}

// example decodes and transforms the image of record idx.
func (a *annotated) example(idx int) (*Example, error) {
	if idx < 0 || idx >= len(a.records) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(a.records))
	}
	r := a.records[idx]
	path := resolvePath(a.ImageRoot, r.Image)

	img, err := transforms.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("example %d: %w", idx, err)
	}
	t, err := a.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("example %d: %w", idx, err)
	}

	ex := &Example{
		Index:   idx,
		ID:      r.id(idx),
		Path:    path,
		Image:   t,
		Caption: PreCaption(r.Caption, a.maxWords),
	}
	ex.BBox, ex.HasBBox = normalizeBBox(r.BBox, img.Bounds())
	return ex, nil
}

// PretrainDataset yields image, caption and box from the training image root.
type PretrainDataset struct {
	*annotated
}

// NewPretrain creates a pretraining dataset.
func NewPretrain(annotationFile, imageRoot string, transform transforms.Transform, maxWords int) (*PretrainDataset, error) {
	a, err := newAnnotated(annotationFile, imageRoot, transform, maxWords)
	if err != nil {
		return nil, err
	}
	return &PretrainDataset{annotated: a}, nil
}

// Name returns the name of the dataset
func (d *PretrainDataset) Name() string { return "PretrainDataset" }

// Example reads a single example by index
func (d *PretrainDataset) Example(idx int) (*Example, error) { return d.example(idx) }

// TrackingDataset adds a saliency map, transformed without normalization, to
// every example.
type TrackingDataset struct {
	*annotated
	saliencyTransform transforms.Transform
}

// NewTracking creates a tracking dataset. Every record must name a saliency map.
func NewTracking(annotationFile, imageRoot string, transform, saliencyTransform transforms.Transform, maxWords int) (*TrackingDataset, error) {
	if saliencyTransform == nil {
		return nil, fmt.Errorf("saliency transform is nil")
	}
	a, err := newAnnotated(annotationFile, imageRoot, transform, maxWords)
	if err != nil {
		return nil, err
	}
	return &TrackingDataset{annotated: a, saliencyTransform: saliencyTransform}, nil
}

// Name returns the name of the dataset
func (d *TrackingDataset) Name() string { return "TrackingDataset" }

// Example reads the image and its saliency map.
func (d *TrackingDataset) Example(idx int) (*Example, error) {
	ex, err := d.example(idx)
	if err != nil {
		return nil, err
	}
	r := d.records[idx]
	if r.Saliency == "" {
		return nil, fmt.Errorf("example %d: record has no saliency map", idx)
	}
	sal, err := transforms.LoadImage(resolvePath(d.ImageRoot, r.Saliency))
	if err != nil {
		return nil, fmt.Errorf("example %d: %w", idx, err)
	}
	if ex.Saliency, err = d.saliencyTransform.Apply(sal); err != nil {
		return nil, fmt.Errorf("example %d: saliency: %w", idx, err)
	}
	return ex, nil
}

// EvalDataset reads annotated frames from the evaluation image root.
type EvalDataset struct {
	*annotated
}

// NewEval creates an evaluation dataset.
func NewEval(annotationFile, evalImageRoot string, transform transforms.Transform, maxWords int) (*EvalDataset, error) {
	a, err := newAnnotated(annotationFile, evalImageRoot, transform, maxWords)
	if err != nil {
		return nil, err
	}
	return &EvalDataset{annotated: a}, nil
}

// Name returns the name of the dataset
func (d *EvalDataset) Name() string { return "EvalDataset" }

// Example reads a single example by index
func (d *EvalDataset) Example(idx int) (*Example, error) { return d.example(idx) }
