/*
DESCRIPTION
  imgproc.go provides the image primitives used by every downstream
  stage: RGBA-to-grayscale conversion, separable Gaussian blur,
  area-averaging resample, 2x pyramid-down, and the bit-population
  count used throughout Hamming matching.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package imgproc provides grayscale conversion, blur, resampling and
// pyramid downsampling over the vision.Plane buffer type. Per-row work
// may be fanned out across goroutines; the result is identical
// regardless of how many goroutines run it.
package imgproc

import (
	"math"
	"math/bits"
	"sync"

	"github.com/ausocean/artrack/vision"
)

// rowWorkers is the number of goroutines used to fan out per-row work.
// Chosen to match filter/basic.go's 4-way row split.
const rowWorkers = 4

// Grayscale converts an RGBA buffer (width*height*4 bytes) into a
// vision.Plane using the standard luma weights. dst is resized in
// place if necessary.
func Grayscale(dst *vision.Plane, rgba []byte, w, h int) {
	dst.Resize(w, h)
	forEachRow(h, func(y int) {
		rowOff := y * w * 4
		pixOff := y * w
		for x := 0; x < w; x++ {
			i := rowOff + x*4
			r := uint32(rgba[i])
			g := uint32(rgba[i+1])
			b := uint32(rgba[i+2])
			// Standard luma weights (ITU-R BT.601), matching the
			// RGBA.RGBA()-derived weighting used elsewhere in the
			// image/color standard library.
			y8 := (299*r + 587*g + 114*b) / 1000
			dst.Pix[pixOff+x] = uint8(y8)
		}
	})
}

// clampBlurSize clamps a requested odd blur kernel size into the
// supported [3, 9] range, defaulting to 5.
func clampBlurSize(size int) int {
	if size <= 0 {
		return 5
	}
	if size%2 == 0 {
		size++
	}
	if size < 3 {
		return 3
	}
	if size > 9 {
		return 9
	}
	return size
}

// gaussianKernel1D returns a normalized 1D Gaussian kernel of the
// given odd size.
func gaussianKernel1D(size int) []float64 {
	sigma := 0.3*(float64(size/2)-1) + 0.8
	k := make([]float64, size)
	var sum float64
	half := size / 2
	for i := range k {
		x := float64(i - half)
		v := math.Exp(-(x * x) / (2 * sigma * sigma))
		k[i] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur applies a separable Gaussian blur of the given odd
// kernel size (clamped to [3,9], default 5) to src, writing into dst.
// dst is resized to match src if necessary. src and dst must not
// alias.
func GaussianBlur(dst *vision.Plane, src vision.Plane, size int) {
	size = clampBlurSize(size)
	kernel := gaussianKernel1D(size)
	half := size / 2

	dst.Resize(src.W, src.H)
	tmp := make([]float64, src.W*src.H)

	// Horizontal pass.
	forEachRow(src.H, func(y int) {
		rowOff := y * src.W
		for x := 0; x < src.W; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sx := x + k
				if sx < 0 {
					sx = 0
				} else if sx >= src.W {
					sx = src.W - 1
				}
				sum += float64(src.Pix[rowOff+sx]) * kernel[k+half]
			}
			tmp[rowOff+x] = sum
		}
	})

	// Vertical pass.
	forEachRow(src.H, func(y int) {
		rowOff := y * src.W
		for x := 0; x < src.W; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sy := y + k
				if sy < 0 {
					sy = 0
				} else if sy >= src.H {
					sy = src.H - 1
				}
				sum += tmp[sy*src.W+x] * kernel[k+half]
			}
			v := sum
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			dst.Pix[rowOff+x] = uint8(v + 0.5)
		}
	})
}

// Resample area-averages src down (or up, via nearest-source-box) to
// (w, h). If (w, h) equals src's dimensions, src is copied verbatim
// (bit-identical).
func Resample(dst *vision.Plane, src vision.Plane, w, h int) {
	if w == src.W && h == src.H {
		dst.Resize(w, h)
		copy(dst.Pix, src.Pix)
		return
	}
	dst.Resize(w, h)

	scaleX := float64(src.W) / float64(w)
	scaleY := float64(src.H) / float64(h)

	forEachRow(h, func(y int) {
		sy0 := int(float64(y) * scaleY)
		sy1 := int(float64(y+1) * scaleY)
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		if sy1 > src.H {
			sy1 = src.H
		}
		rowOff := y * w
		for x := 0; x < w; x++ {
			sx0 := int(float64(x) * scaleX)
			sx1 := int(float64(x+1) * scaleX)
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			if sx1 > src.W {
				sx1 = src.W
			}
			var sum, n int
			for sy := sy0; sy < sy1; sy++ {
				base := sy * src.W
				for sx := sx0; sx < sx1; sx++ {
					sum += int(src.Pix[base+sx])
					n++
				}
			}
			if n == 0 {
				dst.Pix[rowOff+x] = 0
				continue
			}
			dst.Pix[rowOff+x] = uint8(sum / n)
		}
	})
}

// PyramidDown 2x-downsamples src with a 2x2 box average, used to build
// the pattern preview.
func PyramidDown(dst *vision.Plane, src vision.Plane) {
	w, h := src.W/2, src.H/2
	dst.Resize(w, h)
	forEachRow(h, func(y int) {
		sy := y * 2
		rowOff := y * w
		srcRow0 := sy * src.W
		srcRow1 := srcRow0 + src.W
		for x := 0; x < w; x++ {
			sx := x * 2
			sum := int(src.Pix[srcRow0+sx]) + int(src.Pix[srcRow0+sx+1]) +
				int(src.Pix[srcRow1+sx]) + int(src.Pix[srcRow1+sx+1])
			dst.Pix[rowOff+x] = uint8(sum / 4)
		}
	})
}

// PopCount32 returns the number of set bits in x.
func PopCount32(x uint32) int {
	return bits.OnesCount32(x)
}

// forEachRow fans rows [0,h) out across rowWorkers goroutines, each
// handling every rowWorkers'th row, mirroring filter/basic.go's
// 4-goroutine row split. The observable result must not depend on the
// number of workers, so callers never communicate across rows except
// through pre-sized, disjoint output slices.
func forEachRow(h int, fn func(y int)) {
	if h <= rowWorkers {
		for y := 0; y < h; y++ {
			fn(y)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(rowWorkers)
	for w := 0; w < rowWorkers; w++ {
		go func(start int) {
			defer wg.Done()
			for y := start; y < h; y += rowWorkers {
				fn(y)
			}
		}(w)
	}
	wg.Wait()
}
