package refiner

import (
	"image"

	"github.com/ivlev/inbetween/internal/renderer"
)

// smoothOp blends each interior frame with its neighbors. Window
// weights decay linearly with temporal distance and are normalized;
// strength mixes the smoothed result back over the original.
type smoothOp struct {
	name     string
	strength float64
}

func (s smoothOp) Name() string { return s.name }

func (s smoothOp) Apply(frames []renderer.Frame) []renderer.Frame {
	if len(frames) < 3 {
		return frames
	}
	out := make([]renderer.Frame, len(frames))
	out[0] = frames[0]
	out[len(frames)-1] = frames[len(frames)-1]
	for i := 1; i < len(frames)-1; i++ {
		out[i] = frames[i]
		out[i].Image = smoothFrame(frames, i, s.strength)
	}
	return out
}

func smoothFrame(frames []renderer.Frame, i int, strength float64) *image.RGBA {
	const radius = 1

	src := frames[i].Image
	acc := make([]float64, len(src.Pix))
	var total float64
	for d := -radius; d <= radius; d++ {
		j := i + d
		if j < 0 || j >= len(frames) {
			continue
		}
		w := float64(radius + 1 - absInt(d))
		total += w
		for k, p := range frames[j].Image.Pix {
			acc[k] += w * float64(p)
		}
	}

	out := image.NewRGBA(src.Bounds())
	for k := range acc {
		out.Pix[k] = clampByte(float64(src.Pix[k])*(1-strength) + acc[k]/total*strength)
	}
	return out
}

// alphaOp rebuilds each interior frame's alpha channel: box blur,
// binary threshold, erode, dilate. Color channels pass through.
type alphaOp struct{}

func (alphaOp) Name() string { return "alpha edge cleanup" }

func (alphaOp) Apply(frames []renderer.Frame) []renderer.Frame {
	if len(frames) < 3 {
		return frames
	}
	out := make([]renderer.Frame, len(frames))
	out[0] = frames[0]
	out[len(frames)-1] = frames[len(frames)-1]
	for i := 1; i < len(frames)-1; i++ {
		out[i] = frames[i]
		out[i].Image = cleanAlpha(frames[i].Image)
	}
	return out
}

func cleanAlpha(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	alpha := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			alpha[y*w+x] = row[x*4+3]
		}
	}

	plane := boxBlur(alpha, w, h)
	for i, v := range plane {
		if v >= 128 {
			plane[i] = 255
		} else {
			plane[i] = 0
		}
	}
	plane = dilatePlane(erodePlane(plane, w, h), w, h)

	out := image.NewRGBA(bounds)
	copy(out.Pix, img.Pix)
	for y := 0; y < h; y++ {
		row := out.Pix[out.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			row[x*4+3] = plane[y*w+x]
		}
	}
	return out
}

// colorOp corrects each interior frame's mean foreground color toward
// the value linearly expected between the first and last frames.
type colorOp struct{}

func (colorOp) Name() string { return "color normalization" }

func (colorOp) Apply(frames []renderer.Frame) []renderer.Frame {
	n := len(frames)
	if n < 3 {
		return frames
	}
	first, ok1 := meanForeground(frames[0].Image)
	last, ok2 := meanForeground(frames[n-1].Image)
	if !ok1 || !ok2 {
		return frames
	}

	out := make([]renderer.Frame, n)
	out[0] = frames[0]
	out[n-1] = frames[n-1]
	for i := 1; i < n-1; i++ {
		t := float64(i) / float64(n-1)
		want := [3]float64{
			lerp(first[0], last[0], t),
			lerp(first[1], last[1], t),
			lerp(first[2], last[2], t),
		}
		out[i] = frames[i]
		out[i].Image = shiftColors(frames[i].Image, want)
	}
	return out
}

func shiftColors(img *image.RGBA, want [3]float64) *image.RGBA {
	have, ok := meanForeground(img)
	if !ok {
		return img
	}

	var delta [3]float64
	for c := 0; c < 3; c++ {
		delta[c] = want[c] - have[c]
	}

	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for i := 0; i < len(out.Pix); i += 4 {
		if !isForeground(out.Pix[i : i+4]) {
			continue
		}
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = clampByte(float64(out.Pix[i+c]) + delta[c])
		}
	}
	return out
}

// meanForeground averages RGB over foreground pixels. Opaque near-white
// pixels count as background, matching the detector's notion of
// foreground. Returns false when nothing qualifies.
func meanForeground(img *image.RGBA) ([3]float64, bool) {
	var sum [3]float64
	var n int
	for i := 0; i < len(img.Pix); i += 4 {
		if !isForeground(img.Pix[i : i+4]) {
			continue
		}
		sum[0] += float64(img.Pix[i])
		sum[1] += float64(img.Pix[i+1])
		sum[2] += float64(img.Pix[i+2])
		n++
	}
	if n == 0 {
		return sum, false
	}
	f := float64(n)
	return [3]float64{sum[0] / f, sum[1] / f, sum[2] / f}, true
}

func isForeground(px []uint8) bool {
	if px[3] == 0 {
		return false
	}
	return px[0] <= 240 || px[1] <= 240 || px[2] <= 240
}

func boxBlur(src []uint8, w, h int) []uint8 {
	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					xx, yy := x+dx, y+dy
					if xx < 0 || yy < 0 || xx >= w || yy >= h {
						continue
					}
					sum += int(src[yy*w+xx])
					n++
				}
			}
			dst[y*w+x] = uint8(sum / n)
		}
	}
	return dst
}

func erodePlane(src []uint8, w, h int) []uint8  { return rankPlane(src, w, h, true) }
func dilatePlane(src []uint8, w, h int) []uint8 { return rankPlane(src, w, h, false) }

func rankPlane(src []uint8, w, h int, takeMin bool) []uint8 {
	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := src[y*w+x]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					xx, yy := x+dx, y+dy
					if xx < 0 || yy < 0 || xx >= w || yy >= h {
						continue
					}
					v := src[yy*w+xx]
					if takeMin && v < best || !takeMin && v > best {
						best = v
					}
				}
			}
			dst[y*w+x] = best
		}
	}
	return dst
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
