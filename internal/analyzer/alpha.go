package analyzer

import (
	"image"
	"image/color"
)

// AlphaDetector isolates the foreground subject by transparency and
// background segmentation: a pixel belongs to the subject when it is
// opaque enough and not near-white. Works for the typical animation
// input of a colored character on a transparent or white background.
type AlphaDetector struct {
	AlphaThreshold uint8 // minimum alpha to count as opaque
	WhiteThreshold uint8 // all RGB above this counts as background
	KernelSize     int   // morphology kernel, must be odd
}

// NewAlphaDetector creates a detector with default thresholds.
func NewAlphaDetector() *AlphaDetector {
	return &AlphaDetector{
		AlphaThreshold: 10,
		WhiteThreshold: 240,
		KernelSize:     3,
	}
}

// Detect runs the full segmentation: mask, morphological cleanup,
// largest connected component, moments, mean color, boundary trace.
// Returns nil when no foreground survives cleanup.
func (d *AlphaDetector) Detect(img *image.RGBA) *Subject {
	mask := d.buildMask(img)

	// Close small holes, then open to drop speckle noise
	mask = dilate(mask, d.KernelSize, 1)
	mask = erode(mask, d.KernelSize, 1)
	mask = erode(mask, d.KernelSize, 1)
	mask = dilate(mask, d.KernelSize, 1)

	comp := largestComponent(mask)
	if len(comp.points) == 0 {
		return nil
	}

	// Centroid from first-order moments over component pixels
	var sumX, sumY float64
	for _, p := range comp.points {
		sumX += float64(p.X)
		sumY += float64(p.Y)
	}
	n := float64(len(comp.points))
	centroid := PointF{X: sumX / n, Y: sumY / n}

	// Mean color over the component, sampled from the source image
	var sumR, sumG, sumB uint64
	for _, p := range comp.points {
		c := img.RGBAAt(p.X, p.Y)
		sumR += uint64(c.R)
		sumG += uint64(c.G)
		sumB += uint64(c.B)
	}
	avg := color.RGBA{
		R: uint8(sumR / uint64(len(comp.points))),
		G: uint8(sumG / uint64(len(comp.points))),
		B: uint8(sumB / uint64(len(comp.points))),
		A: 255,
	}

	componentMask := image.NewGray(mask.Bounds())
	for _, p := range comp.points {
		componentMask.SetGray(p.X, p.Y, color.Gray{Y: 255})
	}

	return &Subject{
		Mask:         componentMask,
		Centroid:     centroid,
		Bounds:       comp.rect,
		AverageColor: avg,
		Contour:      traceBoundary(componentMask, comp.rect),
		Width:        comp.rect.Dx(),
		Height:       comp.rect.Dy(),
	}
}

// buildMask marks pixels that are opaque and not near-white.
func (d *AlphaDetector) buildMask(img *image.RGBA) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.A <= d.AlphaThreshold {
				continue
			}
			if c.R > d.WhiteThreshold && c.G > d.WhiteThreshold && c.B > d.WhiteThreshold {
				continue
			}
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	return mask
}

// dilate grows white regions by the kernel radius.
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	return morph(img, kernelSize, iterations, func(maxVal, val uint8) uint8 {
		if val > maxVal {
			return val
		}
		return maxVal
	}, 0)
}

// erode shrinks white regions by the kernel radius.
func erode(img *image.Gray, kernelSize, iterations int) *image.Gray {
	return morph(img, kernelSize, iterations, func(minVal, val uint8) uint8 {
		if val < minVal {
			return val
		}
		return minVal
	}, 255)
}

// morph applies a min/max filter over the kernel neighborhood. The
// neighborhood is clamped at canvas borders so edge pixels are treated
// the same as interior ones.
func morph(img *image.Gray, kernelSize, iterations int, pick func(acc, val uint8) uint8, seed uint8) *image.Gray {
	bounds := img.Bounds()
	result := img
	half := kernelSize / 2

	for iter := 0; iter < iterations; iter++ {
		temp := image.NewGray(bounds)

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				acc := seed

				for ky := -half; ky <= half; ky++ {
					for kx := -half; kx <= half; kx++ {
						nx, ny := x+kx, y+ky
						if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
							continue
						}
						acc = pick(acc, result.GrayAt(nx, ny).Y)
					}
				}

				temp.SetGray(x, y, color.Gray{Y: acc})
			}
		}

		result = temp
	}

	return result
}

// component is one connected white region with its bounding box.
type component struct {
	points []image.Point
	rect   image.Rectangle
}

// largestComponent finds the biggest 4-connected white region.
func largestComponent(img *image.Gray) component {
	bounds := img.Bounds()
	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var best component

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y > 128 && !visited[y-bounds.Min.Y][x-bounds.Min.X] {
				comp := floodFill(img, visited, x, y)
				if len(comp.points) > len(best.points) {
					best = comp
				}
			}
		}
	}

	return best
}

// floodFill collects one connected component and its bounding box.
func floodFill(img *image.Gray, visited [][]bool, startX, startY int) component {
	bounds := img.Bounds()
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	var points []image.Point
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y

		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}

		if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y <= 128 {
			continue
		}

		visited[y-bounds.Min.Y][x-bounds.Min.X] = true
		points = append(points, p)

		// Update bounds
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		// Add neighbors
		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return component{points: points, rect: image.Rect(minX, minY, maxX+1, maxY+1)}
}

// mooreDirs walks the 8-neighborhood clockwise starting west, with
// image y growing downward.
var mooreDirs = [8]image.Point{
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
}

// traceBoundary walks the component border clockwise using Moore
// neighbor tracing, producing an ordered polygon for re-rendering.
func traceBoundary(mask *image.Gray, rect image.Rectangle) []image.Point {
	isSet := func(p image.Point) bool {
		if !p.In(mask.Bounds()) {
			return false
		}
		return mask.GrayAt(p.X, p.Y).Y > 128
	}

	// Start at the topmost-leftmost foreground pixel
	var start image.Point
	found := false
	for y := rect.Min.Y; y < rect.Max.Y && !found; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if isSet(image.Point{X: x, Y: y}) {
				start = image.Point{X: x, Y: y}
				found = true
				break
			}
		}
	}
	if !found {
		return nil
	}

	contour := []image.Point{start}
	backtrack := start.Add(mooreDirs[0]) // west of start is background
	cur := start

	// Safety cap: a boundary never exceeds the perimeter of the bbox
	// walked in both directions
	maxSteps := 4 * (rect.Dx() + rect.Dy() + 4)

	for step := 0; step < maxSteps; step++ {
		// Index of the direction pointing from cur to backtrack
		diff := backtrack.Sub(cur)
		idx := 0
		for i, d := range mooreDirs {
			if d == diff {
				idx = i
				break
			}
		}

		advanced := false
		for i := 1; i <= 8; i++ {
			dir := mooreDirs[(idx+i)%8]
			next := cur.Add(dir)
			if isSet(next) {
				backtrack = cur.Add(mooreDirs[(idx+i-1)%8])
				cur = next
				advanced = true
				break
			}
		}
		if !advanced {
			// Isolated pixel
			break
		}
		if cur == start {
			break
		}
		contour = append(contour, cur)
	}

	return contour
}
