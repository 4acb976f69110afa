package datasets

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writePNG writes a solid w x h image to path, creating parent directories.
func writePNG(t *testing.T, path string, w, h int, gray bool) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create png %s: %v", path, err)
	}
	defer f.Close()

	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for i := range g.Pix {
			g.Pix[i] = 200
		}
		img = g
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := range h {
			for x := range w {
				rgba.SetRGBA(x, y, color.RGBA{R: 120, G: 60, B: 30, A: 255})
			}
		}
		img = rgba
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png %s: %v", path, err)
	}
}

// writeAnnotations writes records as a JSON array to path.
func writeAnnotations(t *testing.T, path string, records []map[string]any) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("failed to marshal annotations: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write annotations: %v", err)
	}
}

// fixture lays out a small training tree:
//
//	root/images/seq1/0001.png  (40x20)
//	root/images/seq1/0002.png  (40x20)
//	root/images/seq1/sal/0001.png (gray)
//	root/images/seq1/sal/0002.png (gray)
//	root/train.json
func fixture(t *testing.T) (annotationFile, imageRoot string) {
	t.Helper()
	root := t.TempDir()
	imageRoot = filepath.Join(root, "images")
	for _, name := range []string{"0001.png", "0002.png"} {
		writePNG(t, filepath.Join(imageRoot, "seq1", name), 40, 20, false)
		writePNG(t, filepath.Join(imageRoot, "seq1", "sal", name), 40, 20, true)
	}
	annotationFile = filepath.Join(root, "train.json")
	writeAnnotations(t, annotationFile, []map[string]any{
		{
			"image":    "seq1/0001.png",
			"caption":  "The man's RED car, on the left!",
			"bbox":     []float64{4, 2, 20, 10},
			"saliency": "seq1/sal/0001.png",
			"id":       7,
		},
		{
			"image":    "seq1/0002.png",
			"caption":  "a dog-walker / <person> in  black",
			"bbox":     []float64{0, 0, 40, 20},
			"saliency": "seq1/sal/0002.png",
			"id":       "seq1-2",
		},
	})
	return annotationFile, imageRoot
}
