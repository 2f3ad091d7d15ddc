// Package preprocess prepares captured frames for text recognition
package preprocess

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Config holds the transform parameters for one preprocessing pass.
// Out-of-range values are clamped, never rejected.
type Config struct {
	Grayscale     bool
	Invert        bool
	Contrast      float64 // > 0, 1.0 = unchanged
	Threshold     int     // 0-255, 0 disables binarization
	Upscale       float64 // >= 1
	Blur          float64 // >= 0, box blur radius
	Dilate        int     // 0-5 iterations
	Erode         int     // 0-5 iterations
	EdgeDetection int     // 0-150, 0 = disabled; replaces the threshold step when > 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU8(v int) uint8 {
	return uint8(clampInt(v, 0, 255))
}

// normalized returns a copy with every parameter clamped into range.
func (c Config) normalized() Config {
	if c.Contrast <= 0 {
		c.Contrast = 1.0
	}
	if c.Upscale < 1 {
		c.Upscale = 1
	}
	if c.Blur < 0 {
		c.Blur = 0
	}
	c.Threshold = clampInt(c.Threshold, 0, 255)
	c.Dilate = clampInt(c.Dilate, 0, 5)
	c.Erode = clampInt(c.Erode, 0, 5)
	c.EdgeDetection = clampInt(c.EdgeDetection, 0, 150)
	return c
}

// Process applies the transform chain to a captured frame. It is a pure
// function of (img, cfg): no hidden state, identical output for identical
// input. The stage order is fixed: grayscale, invert, contrast, upscale,
// blur, dilate/erode, then threshold or edge detection.
func Process(img image.Image, cfg Config) image.Image {
	cfg = cfg.normalized()
	work := toNRGBA(img)

	if cfg.Grayscale {
		grayscale(work)
	}
	if cfg.Invert {
		invert(work)
	}
	if cfg.Contrast != 1.0 {
		contrast(work, cfg.Contrast)
	}
	if cfg.Upscale > 1 {
		work = upscale(work, cfg.Upscale)
	}
	if r := int(cfg.Blur + 0.5); r > 0 {
		work = boxBlur(work, r)
	}
	for i := 0; i < cfg.Dilate; i++ {
		work = morph(work, true)
	}
	for i := 0; i < cfg.Erode; i++ {
		work = morph(work, false)
	}

	// Edge detection and binarization are mutually exclusive: a non-zero
	// edge setting wins and the threshold is ignored.
	if cfg.EdgeDetection > 0 {
		return sobelEdges(work, cfg.EdgeDetection)
	}
	if cfg.Threshold > 0 {
		return binarize(work, cfg.Threshold)
	}
	return work
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		out := image.NewNRGBA(n.Bounds())
		copy(out.Pix, n.Pix)
		return out
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return out
}

// luma computes Rec.601 luminance with integer arithmetic for determinism.
func luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

func grayscale(img *image.NRGBA) {
	p := img.Pix
	for i := 0; i < len(p); i += 4 {
		l := luma(p[i], p[i+1], p[i+2])
		p[i], p[i+1], p[i+2] = l, l, l
	}
}

func invert(img *image.NRGBA) {
	p := img.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = 255 - p[i]
		p[i+1] = 255 - p[i+1]
		p[i+2] = 255 - p[i+2]
	}
}

func contrast(img *image.NRGBA, factor float64) {
	// Precomputed lookup keeps the pass deterministic and cheap.
	var lut [256]uint8
	for v := 0; v < 256; v++ {
		lut[v] = clampU8(int((float64(v)-128)*factor + 128 + 0.5))
	}
	p := img.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = lut[p[i]]
		p[i+1] = lut[p[i+1]]
		p[i+2] = lut[p[i+2]]
	}
}

func upscale(img *image.NRGBA, factor float64) *image.NRGBA {
	w := uint(float64(img.Bounds().Dx())*factor + 0.5)
	h := uint(float64(img.Bounds().Dy())*factor + 0.5)
	return toNRGBA(resize.Resize(w, h, img, resize.Bicubic))
}

// boxBlur applies a separable box filter of the given radius.
func boxBlur(img *image.NRGBA, radius int) *image.NRGBA {
	horizontal := blurPass(img, radius, true)
	return blurPass(horizontal, radius, false)
}

func blurPass(img *image.NRGBA, radius int, horizontal bool) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(bounds)
	window := 2*radius + 1

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sumR, sumG, sumB, sumA int
			for d := -radius; d <= radius; d++ {
				sx, sy := x, y
				if horizontal {
					sx = clampInt(x+d, 0, w-1)
				} else {
					sy = clampInt(y+d, 0, h-1)
				}
				i := img.PixOffset(sx, sy)
				sumR += int(img.Pix[i])
				sumG += int(img.Pix[i+1])
				sumB += int(img.Pix[i+2])
				sumA += int(img.Pix[i+3])
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = uint8(sumR / window)
			out.Pix[i+1] = uint8(sumG / window)
			out.Pix[i+2] = uint8(sumB / window)
			out.Pix[i+3] = uint8(sumA / window)
		}
	}
	return out
}

// morph applies one 3x3 dilation (max) or erosion (min) pass per channel.
func morph(img *image.NRGBA, dilate bool) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(bounds)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var best [3]uint8
			if !dilate {
				best = [3]uint8{255, 255, 255}
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sx := clampInt(x+dx, 0, w-1)
					sy := clampInt(y+dy, 0, h-1)
					i := img.PixOffset(sx, sy)
					for ch := 0; ch < 3; ch++ {
						v := img.Pix[i+ch]
						if dilate && v > best[ch] {
							best[ch] = v
						} else if !dilate && v < best[ch] {
							best[ch] = v
						}
					}
				}
			}
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = best[0], best[1], best[2]
			out.Pix[i+3] = img.Pix[img.PixOffset(x, y)+3]
		}
	}
	return out
}

// binarize thresholds luminance into a black-and-white image.
func binarize(img *image.NRGBA, threshold int) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := img.PixOffset(x, y)
			v := uint8(0)
			if int(luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])) >= threshold {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

// sobelEdges computes Sobel gradient magnitude on luminance and thresholds
// it with the edge parameter.
func sobelEdges(img *image.NRGBA, threshold int) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	lum := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			lum[y*w+x] = int(luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		}
	}

	at := func(x, y int) int {
		return lum[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)]
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)

			mag := (abs(gx) + abs(gy)) / 4
			v := uint8(0)
			if mag >= threshold {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
