// Package source loads and normalizes the two keyframe images a job
// starts from. All downstream stages assume RGBA pixels and a shared
// canvas size, so every intake path funnels through here.
package source

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"unicode/utf8"

	"github.com/h2non/filetype"
	xdraw "golang.org/x/image/draw"
)

// Instruction length window. Shorter strings carry no usable motion
// intent, longer ones are almost always pasted noise.
const (
	MinInstructionLen = 5
	MaxInstructionLen = 500
)

// Pair holds two decoded keyframes on a shared canvas.
type Pair struct {
	First  *image.RGBA
	Second *image.RGBA
}

// Bounds returns the shared canvas rectangle.
func (p *Pair) Bounds() image.Rectangle {
	return p.First.Bounds()
}

// LoadPair reads two keyframe files and normalizes them to a shared
// canvas no larger than maxDim on either side.
func LoadPair(path1, path2 string, maxDim int) (*Pair, error) {
	first, err := loadImage(path1)
	if err != nil {
		return nil, fmt.Errorf("load first keyframe: %w", err)
	}
	second, err := loadImage(path2)
	if err != nil {
		return nil, fmt.Errorf("load second keyframe: %w", err)
	}
	return normalize(first, second, maxDim), nil
}

// DecodePair decodes two uploaded keyframe payloads. Content type is
// sniffed from the bytes, not trusted from the request.
func DecodePair(data1, data2 []byte, maxDim int) (*Pair, error) {
	if err := SniffImage(data1); err != nil {
		return nil, fmt.Errorf("first keyframe: %w", err)
	}
	if err := SniffImage(data2); err != nil {
		return nil, fmt.Errorf("second keyframe: %w", err)
	}

	first, err := decodeImage(data1)
	if err != nil {
		return nil, fmt.Errorf("decode first keyframe: %w", err)
	}
	second, err := decodeImage(data2)
	if err != nil {
		return nil, fmt.Errorf("decode second keyframe: %w", err)
	}
	return normalize(first, second, maxDim), nil
}

// SniffImage checks magic bytes and accepts only PNG and JPEG payloads.
func SniffImage(data []byte) error {
	kind, err := filetype.Match(data)
	if err != nil {
		return fmt.Errorf("sniff content type: %w", err)
	}
	switch kind.MIME.Value {
	case "image/png", "image/jpeg":
		return nil
	default:
		return fmt.Errorf("unsupported content type %q, want PNG or JPEG", kind.MIME.Value)
	}
}

// ValidateInstruction enforces the instruction length window.
func ValidateInstruction(text string) error {
	n := utf8.RuneCountInString(text)
	if n < MinInstructionLen {
		return fmt.Errorf("instruction too short: %d runes, need at least %d", n, MinInstructionLen)
	}
	if n > MaxInstructionLen {
		return fmt.Errorf("instruction too long: %d runes, limit is %d", n, MaxInstructionLen)
	}
	return nil
}

// SavePNG writes an image as PNG, creating the file with 0644.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// EncodePNG renders an image to PNG bytes in memory.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func loadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return ToRGBA(img), nil
}

func decodeImage(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any decoded image to RGBA with a zero-origin rect.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// normalize brings both keyframes onto the first keyframe's canvas,
// downscaled so neither side exceeds maxDim.
func normalize(first, second *image.RGBA, maxDim int) *Pair {
	target := fitWithin(first.Bounds(), maxDim)
	if target != first.Bounds() {
		first = Resize(first, target)
	}
	if second.Bounds() != target {
		second = Resize(second, target)
	}
	return &Pair{First: first, Second: second}
}

// fitWithin shrinks a rect preserving aspect so that neither dimension
// exceeds maxDim. A rect already inside the limit is returned as is.
func fitWithin(r image.Rectangle, maxDim int) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return image.Rect(0, 0, w, h)
	}

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(0, 0, w, h)
}

// Resize scales an image to the target rect with bilinear filtering.
func Resize(img *image.RGBA, target image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(target)
	xdraw.ApproxBiLinear.Scale(dst, target, img, img.Bounds(), xdraw.Over, nil)
	return dst
}
