package datasets

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Noofbiz/vltrack/transforms"
)

// InferenceDataset walks an image root and yields every frame with the caption
// of its sequence. No boxes are available.
type InferenceDataset struct {
	Root string

	frames    []string
	captions  map[string]string // frame dir -> caption
	transform transforms.Transform
	maxWords  int
}

// NewInference scans root for image files in lexical order.
func NewInference(root string, transform transforms.Transform, maxWords int) (*InferenceDataset, error) {
	if transform == nil {
		return nil, fmt.Errorf("image transform is nil")
	}
	ds := &InferenceDataset{
		Root:      root,
		captions:  make(map[string]string),
		transform: transform,
		maxWords:  maxWords,
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !transforms.IsImageFile(path) {
			return nil
		}
		ds.frames = append(ds.frames, path)

		dir := filepath.Dir(path)
		if _, seen := ds.captions[dir]; seen {
			return nil
		}
		caption, _, err := findCaption(dir)
		if err != nil {
			return fmt.Errorf("failed to read caption for %s: %w", dir, err)
		}
		ds.captions[dir] = caption
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(ds.frames) == 0 {
		return nil, fmt.Errorf("no image files found under %s", root)
	}
	return ds, nil
}

// Name returns the name of the dataset
func (d *InferenceDataset) Name() string { return "InferenceDataset" }

// Len returns the number of frames found.
func (d *InferenceDataset) Len() int { return len(d.frames) }

// Example decodes frame idx.
func (d *InferenceDataset) Example(idx int) (*Example, error) {
	if idx < 0 || idx >= len(d.frames) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.frames))
	}
	path := d.frames[idx]
	img, err := transforms.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", idx, err)
	}
	t, err := d.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", idx, err)
	}

	id, err := filepath.Rel(d.Root, path)
	if err != nil {
		id = path
	}
	return &Example{
		Index:   idx,
		ID:      filepath.ToSlash(id),
		Path:    path,
		Image:   t,
		Caption: PreCaption(d.captions[filepath.Dir(path)], d.maxWords),
	}, nil
}
