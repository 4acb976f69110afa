package datasets

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// record is one entry of an annotation file.
type record struct {
	Image    string    `json:"image"`
	Caption  string    `json:"caption"`
	BBox     []float64 `json:"bbox"`
	Saliency string    `json:"saliency"`
	ID       any       `json:"id"`
}

// loadAnnotations reads a JSON array of records.
func loadAnnotations(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations %s: %w", path, err)
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse annotations %s: %w", path, err)
	}
	for i, r := range records {
		if strings.TrimSpace(r.Image) == "" {
			return nil, fmt.Errorf("annotation %d in %s has no image", i, path)
		}
		if len(r.BBox) != 0 && len(r.BBox) != 4 {
			return nil, fmt.Errorf("annotation %d in %s: bbox must have 4 values, got %d", i, path, len(r.BBox))
		}
	}
	return records, nil
}

func (r record) id(i int) string {
	if r.ID == nil {
		return fmt.Sprint(i)
	}
	return fmt.Sprint(r.ID)
}

// normalizeBBox scales a pixel [x, y, w, h] box by the source image size.
func normalizeBBox(box []float64, bounds image.Rectangle) (out [4]float32, ok bool) {
	if len(box) != 4 || bounds.Dx() == 0 || bounds.Dy() == 0 {
		return out, false
	}
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	out[0] = float32(box[0] / w)
	out[1] = float32(box[1] / h)
	out[2] = float32(box[2] / w)
	out[3] = float32(box[3] / h)
	return out, true
}

// resolvePath joins a relative annotation path to its root.
func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Auto-discovery helpers

const captionFile = "language.txt"

// findCaption looks for a language.txt in dir and then in its parent.
func findCaption(dir string) (string, bool, error) {
	for _, d := range []string{dir, filepath.Dir(dir)} {
		data, err := os.ReadFile(filepath.Join(d, captionFile))
		if err == nil {
			return strings.TrimSpace(string(data)), true, nil
		}
		if !os.IsNotExist(err) {
			return "", false, err
		}
	}
	return "", false, nil
}
