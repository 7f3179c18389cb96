/*
DESCRIPTION
  descriptor.go computes the intensity-centroid keypoint orientation
  and the 256-bit rotated-BRIEF descriptor used to match keypoints
  across frames and pattern levels.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package descriptor

import (
	"math"

	"github.com/ausocean/artrack/vision"
)

// uMax is the per-row half-width table for the 15-pixel orientation
// disk.
var uMax = [16]int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}

// Orient computes the intensity-centroid angle of the keypoint at
// (px, py) in img, using a 15-pixel half-radius disk and the uMax
// per-row width table. Pixel accesses that would fall outside img are
// skipped.
func Orient(img vision.Plane, px, py int) float32 {
	var m01, m10 float64
	for dy := -15; dy <= 15; dy++ {
		y := py + dy
		if y < 0 || y >= img.H {
			continue
		}
		row := dy
		if row < 0 {
			row = -row
		}
		u := uMax[row]
		rowOff := y * img.W
		for dx := -u; dx <= u; dx++ {
			x := px + dx
			if x < 0 || x >= img.W {
				continue
			}
			v := float64(img.Pix[rowOff+x])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return float32(math.Atan2(m01, m10))
}

// numPairs is the number of sample-pair comparisons making up the
// 256-bit descriptor (8 words * 32 bits).
const numPairs = 256

// pattern holds numPairs (dx0,dy0,dx1,dy1) offset pairs, fixed at
// package init, within a 31x31 patch — the BRIEF sampling pattern.
var pattern [numPairs][4]int8

func init() {
	// Deterministic pseudo-random sampling pattern generated from a
	// fixed linear-congruential sequence, so the pattern is identical
	// across builds/platforms without embedding a data file.
	var seed uint32 = 0x9E3779B9
	next := func() int8 {
		seed = seed*1664525 + 1013904223
		// Map to [-15, 15].
		return int8(int32(seed>>24)%31 - 15)
	}
	for i := 0; i < numPairs; i++ {
		pattern[i] = [4]int8{next(), next(), next(), next()}
	}
}

// Describe computes the rotated-BRIEF descriptor for the keypoint
// (px, py, angle) over img. Any sample pair with a coordinate outside
// img is defined to produce a zero bit.
func Describe(img vision.Plane, px, py int, angle float32) vision.Descriptor {
	var desc vision.Descriptor
	cosA, sinA := math.Cos(float64(angle)), math.Sin(float64(angle))

	for i := 0; i < numPairs; i++ {
		p := pattern[i]
		x0 := rotX(float64(p[0]), float64(p[1]), cosA, sinA)
		y0 := rotY(float64(p[0]), float64(p[1]), cosA, sinA)
		x1 := rotX(float64(p[2]), float64(p[3]), cosA, sinA)
		y1 := rotY(float64(p[2]), float64(p[3]), cosA, sinA)

		ax, ay := px+round(x0), py+round(y0)
		bx, by := px+round(x1), py+round(y1)

		var bit uint32
		if inBounds(img, ax, ay) && inBounds(img, bx, by) {
			if img.Pix[ay*img.W+ax] < img.Pix[by*img.W+bx] {
				bit = 1
			}
		}
		word, shift := i/32, uint(i%32)
		desc[word] |= bit << shift
	}
	return desc
}

func rotX(x, y, cosA, sinA float64) float64 { return x*cosA - y*sinA }
func rotY(x, y, cosA, sinA float64) float64 { return x*sinA + y*cosA }

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

func inBounds(img vision.Plane, x, y int) bool {
	return x >= 0 && x < img.W && y >= 0 && y < img.H
}
