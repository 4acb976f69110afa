// Package transforms converts decoded images into channel-major float32
// buffers ready to be stacked into gomlx tensors.
//
// A Compose runs image stages (e.g. Resize) on the decoded image, converts the
// result to a CHW buffer with values in [0,1], then runs tensor stages (e.g.
// Normalize) on the buffer.
package transforms

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// CLIP normalization constants used by the tracking image transform.
var (
	CLIPMean = []float32{0.48145466, 0.4578275, 0.40821073}
	CLIPStd  = []float32{0.26862954, 0.26130258, 0.27577711}
)

// CHW is an image stored channel-major: Data[c*H*W + y*W + x].
type CHW struct {
	C, H, W int
	Data    []float32
}

// At returns the value at channel c, row y, column x.
func (t *CHW) At(c, y, x int) float32 {
	return t.Data[c*t.H*t.W+y*t.W+x]
}

// Transform turns a decoded image into a CHW buffer.
type Transform interface {
	Apply(img image.Image) (*CHW, error)
	String() string
}

// ImageOp is a stage applied to the decoded image before tensor conversion.
type ImageOp interface {
	Apply(img image.Image) image.Image
	String() string
}

// TensorOp is a stage applied in place to the CHW buffer.
type TensorOp interface {
	Apply(t *CHW) error
	String() string
}

// Compose chains image stages, the ToTensor conversion and tensor stages.
type Compose struct {
	ImageOps  []ImageOp
	TensorOps []TensorOp
}

// Apply implements Transform.
func (c *Compose) Apply(img image.Image) (*CHW, error) {
	if img == nil {
		return nil, fmt.Errorf("transform: nil image")
	}
	for _, op := range c.ImageOps {
		img = op.Apply(img)
	}
	t := ToTensor(img)
	for _, op := range c.TensorOps {
		if err := op.Apply(t); err != nil {
			return nil, fmt.Errorf("transform %s: %w", op, err)
		}
	}
	return t, nil
}

// String lists the stages in order, e.g. "Resize(224x224) -> ToTensor -> Normalize".
func (c *Compose) String() string {
	parts := make([]string, 0, len(c.ImageOps)+len(c.TensorOps)+1)
	for _, op := range c.ImageOps {
		parts = append(parts, op.String())
	}
	parts = append(parts, "ToTensor")
	for _, op := range c.TensorOps {
		parts = append(parts, op.String())
	}
	return strings.Join(parts, " -> ")
}

// toRGB converts any image to opaque 8-bit RGB.
type toRGB struct{}

// ToRGB returns an ImageOp converting grayscale, paletted and translucent
// images to opaque RGB. Translucent pixels keep their straight colour and lose
// their alpha.
func ToRGB() ImageOp {
	return toRGB{}
}

func (toRGB) Apply(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, b, src, b.Min, draw.Src)
		return dst
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

func (toRGB) String() string {
	return "ToRGB"
}

// resize scales an image to a fixed size with Catmull-Rom (bicubic) filtering.
type resize struct {
	w, h int
}

// Resize returns an ImageOp scaling to w x h. Grayscale images stay grayscale.
func Resize(w, h int) ImageOp {
	return resize{w: w, h: h}
}

func (r resize) Apply(src image.Image) image.Image {
	rect := image.Rect(0, 0, r.w, r.h)
	var dst draw.Image
	if isGray(src) {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	return dst
}

func (r resize) String() string {
	return fmt.Sprintf("Resize(%dx%d)", r.w, r.h)
}

type normalize struct {
	mean, std []float32
}

// Normalize returns a TensorOp computing (v - mean[c]) / std[c] per channel.
func Normalize(mean, std []float32) TensorOp {
	return normalize{mean: mean, std: std}
}

func (n normalize) Apply(t *CHW) error {
	if len(n.mean) != t.C || len(n.std) != t.C {
		return fmt.Errorf("normalize expects %d channels, got mean=%d std=%d", t.C, len(n.mean), len(n.std))
	}
	plane := t.H * t.W
	for c := range t.C {
		if n.std[c] == 0 {
			return fmt.Errorf("normalize: zero std for channel %d", c)
		}
		m, s := n.mean[c], n.std[c]
		ch := t.Data[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = (ch[i] - m) / s
		}
	}
	return nil
}

func (n normalize) String() string {
	return "Normalize"
}

// ToTensor converts an image to CHW with values in [0,1]. Grayscale images
// produce one channel, everything else three. Alpha is dropped after
// un-premultiplying, so translucent pixels keep their straight colour.
func ToTensor(img image.Image) *CHW {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h

	if isGray(img) {
		t := &CHW{C: 1, H: h, W: w, Data: make([]float32, plane)}
		for y := range h {
			for x := range w {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				t.Data[y*w+x] = float32(g.Y) / 0xffff
			}
		}
		return t
	}

	t := &CHW{C: 3, H: h, W: w, Data: make([]float32, 3*plane)}
	if rgba, ok := img.(*image.RGBA); ok {
		for y := range h {
			row := rgba.Pix[(y)*rgba.Stride:]
			for x := range w {
				p := row[x*4 : x*4+4]
				r, g, bl := p[0], p[1], p[2]
				if a := p[3]; a != 0xff {
					c := color.NRGBAModel.Convert(color.RGBA{R: r, G: g, B: bl, A: a}).(color.NRGBA)
					r, g, bl = c.R, c.G, c.B
				}
				i := y*w + x
				t.Data[i] = float32(r) / 255
				t.Data[plane+i] = float32(g) / 255
				t.Data[2*plane+i] = float32(bl) / 255
			}
		}
		return t
	}
	for y := range h {
		for x := range w {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			i := y*w + x
			t.Data[i] = float32(c.R) / 0xffff
			t.Data[plane+i] = float32(c.G) / 0xffff
			t.Data[2*plane+i] = float32(c.B) / 0xffff
		}
	}
	return t
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
