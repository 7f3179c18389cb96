/*
DESCRIPTION
  corner.go implements a YAPE06-style corner detector: a Laplacian-like
  response filtered by a minimum eigenvalue of the local structure
  matrix, border-excluded and sorted+truncated to a maximum count.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package corner provides a YAPE06-style corner detector over a
// vision.Plane.
package corner

import (
	"math"
	"sort"

	"github.com/ausocean/artrack/vision"
)

// Params configures the detector.
type Params struct {
	Border   int // pixels excluded from detection at every edge.
	LapThr   float32
	EigenThr float32
	MaxN     int

	// Level is stamped onto every keypoint Detect produces, so a
	// caller detecting across a pyramid can tell them apart afterward.
	Level int
}

// DefaultParams returns the tunable defaults for a full-size level.
func DefaultParams() Params {
	return Params{
		Border:   vision.DefaultBorder,
		LapThr:   vision.LapThreshold,
		EigenThr: vision.EigenThreshold,
		MaxN:     vision.MaxCorners,
	}
}

// BorderFor returns the border to use for a pattern-pyramid level of
// the given size, reduced from the default on small levels.
func BorderFor(cols, rows int) int {
	b := vision.DefaultBorder
	m := cols
	if rows < m {
		m = rows
	}
	if m/10 < b {
		b = m / 10
	}
	if b < 0 {
		b = 0
	}
	return b
}

// Detect returns up to p.MaxN keypoints in img, sorted by
// non-increasing score (ties broken by ascending raster index, per
// Design Note "Open Question" — the source's comparator is not a
// total order).
func Detect(img vision.Plane, p Params) []vision.Keypoint {
	w, h := img.W, img.H
	b := p.Border
	if b < 1 {
		b = 1
	}
	if w-2*b < 1 || h-2*b < 1 {
		return nil
	}

	var kps []vision.Keypoint
	for y := b; y < h-b; y++ {
		for x := b; x < w-b; x++ {
			lap := laplacianResponse(img, x, y)
			if lap < p.LapThr {
				continue
			}
			minEig := minEigenvalue(img, x, y)
			if minEig < p.EigenThr {
				continue
			}
			kps = append(kps, vision.Keypoint{
				X:     float32(x),
				Y:     float32(y),
				Score: lap,
				Level: p.Level,
			})
		}
	}

	sortKeypoints(kps)
	if len(kps) > p.MaxN {
		kps = kps[:p.MaxN]
	}
	return kps
}

// sortKeypoints orders keypoints by descending score, with ties broken
// by their original (raster) order — a total order, resolving the
// noted non-total-order comparator bug.
func sortKeypoints(kps []vision.Keypoint) {
	type indexed struct {
		kp  vision.Keypoint
		idx int
	}
	tmp := make([]indexed, len(kps))
	for i, kp := range kps {
		tmp[i] = indexed{kp, i}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		if tmp[i].kp.Score != tmp[j].kp.Score {
			return tmp[i].kp.Score > tmp[j].kp.Score
		}
		return tmp[i].idx < tmp[j].idx
	})
	for i, e := range tmp {
		kps[i] = e.kp
	}
}

// laplacianResponse computes a discrete Laplacian-like response at
// (x, y): the absolute difference between the center pixel and the
// mean of its 4-neighbourhood, scaled up. This is the YAPE06
// "difference of means" trigger.
func laplacianResponse(img vision.Plane, x, y int) float32 {
	c := int(img.Pix[y*img.W+x])
	n := int(img.Pix[(y-1)*img.W+x])
	s := int(img.Pix[(y+1)*img.W+x])
	e := int(img.Pix[y*img.W+x+1])
	w := int(img.Pix[y*img.W+x-1])
	lap := 4*c - n - s - e - w
	if lap < 0 {
		lap = -lap
	}
	return float32(lap)
}

// minEigenvalue estimates the minimum eigenvalue of the local
// structure (second-moment) matrix over a 3x3 window centered at
// (x, y), using Sobel-like gradients.
func minEigenvalue(img vision.Plane, x, y int) float32 {
	var sxx, syy, sxy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			px, py := x+dx, y+dy
			gx := gradX(img, px, py)
			gy := gradY(img, px, py)
			sxx += gx * gx
			syy += gy * gy
			sxy += gx * gy
		}
	}
	trace := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := trace*trace/4 - det
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)
	lambda := trace/2 - root
	if lambda < 0 {
		lambda = 0
	}
	return float32(lambda)
}

func gradX(img vision.Plane, x, y int) float64 {
	x0, x1 := clamp(x-1, 0, img.W-1), clamp(x+1, 0, img.W-1)
	yy := clamp(y, 0, img.H-1)
	return float64(img.Pix[yy*img.W+x1]) - float64(img.Pix[yy*img.W+x0])
}

func gradY(img vision.Plane, x, y int) float64 {
	y0, y1 := clamp(y-1, 0, img.H-1), clamp(y+1, 0, img.H-1)
	xx := clamp(x, 0, img.W-1)
	return float64(img.Pix[y1*img.W+xx]) - float64(img.Pix[y0*img.W+xx])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
