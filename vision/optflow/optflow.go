/*
DESCRIPTION
  optflow.go implements pyramidal Lucas-Kanade tracking of inlier
  points across frames, with incremental homography composition and
  the geometric sanity checks (density, point count, prune, quad
  validity) that drive the detect<->track state machine.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package optflow implements the pyramidal Lucas-Kanade point tracker
// that advances a homography incrementally between frames once
// detection has handed off an initial set of inlier points.
package optflow

import (
	"math"

	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/geom"
	"github.com/ausocean/artrack/vision/homography"
	"github.com/ausocean/artrack/vision/imgproc"
)

// Params configures the tracker.
type Params struct {
	Window           int
	MaxIter          int
	Eps              float64
	MinEigen         float64
	DensityThreshold float64
	PointThreshold   int
	PruneThreshold   float64
	GoodMatchThresh  int
	PyramidLevels    int
	MaxQuadAngle     float64
}

// DefaultParams returns the tunable defaults.
func DefaultParams() Params {
	return Params{
		Window:           50,
		MaxIter:          50,
		Eps:              0.01,
		MinEigen:         0.001,
		DensityThreshold: vision.DensityThreshold,
		PointThreshold:   vision.PointThreshold,
		PruneThreshold:   vision.PruneThreshold,
		GoodMatchThresh:  vision.GoodMatchThresh,
		PyramidLevels:    vision.PyramidLevels,
		MaxQuadAngle:     vision.MaxQuadAngle,
	}
}

// Result is the sum-type result of a tracker tick: either Tracked with
// the new quad, or Lost (per Design Note "Sentinel return values").
type Result struct {
	Lost bool
	Quad vision.Quad
}

// Tracker holds the pyramidal-LK tracking state across frames.
type Tracker struct {
	params Params

	hBase vision.Homography

	prevPyr, currPyr []vision.Plane
	prevXY, currXY   []vision.Point

	pointCount int
	refW, refH float64
	prevQuad   *vision.Quad
	transform  geom.Transform
}

// New returns an idle Tracker; call Init to seed it after a successful
// detection.
func New(p Params) *Tracker {
	return &Tracker{params: p, hBase: vision.Identity()}
}

// Init seeds the tracker with a base homography, the inlier points
// that produced it (in frame coordinates), a grayscale pyramid for the
// frame those points came from, and the reference rectangle dimensions
// (the pattern preview, doubled).
func (t *Tracker) Init(h vision.Homography, pts []vision.Point, framePyr []vision.Plane, refW, refH float64, tr geom.Transform) {
	t.hBase = h
	t.refW, t.refH = refW, refH
	t.transform = tr
	t.prevQuad = nil

	n := len(pts)
	if n > vision.MaxCorners {
		n = vision.MaxCorners
	}
	t.currXY = append(t.currXY[:0], pts[:n]...)
	t.currPyr = clonePyramid(t.currPyr, framePyr)
	t.pointCount = n
}

// clonePyramid copies src's planes into dst, reusing dst's backing
// arrays where capacity allows: scratch buffers are owned and reused,
// never grown on the hot path beyond a resolution change.
func clonePyramid(dst, src []vision.Plane) []vision.Plane {
	if cap(dst) < len(src) {
		dst = make([]vision.Plane, len(src))
	}
	dst = dst[:len(src)]
	for i, p := range src {
		dst[i].Resize(p.W, p.H)
		copy(dst[i].Pix, p.Pix)
	}
	return dst
}

// buildPyramid half-samples src into a pyramid of levels planes in
// total, src itself being level 0.
func buildPyramid(dst []vision.Plane, src vision.Plane, levels int) []vision.Plane {
	if cap(dst) < levels {
		dst = make([]vision.Plane, levels)
	}
	dst = dst[:levels]
	dst[0].Resize(src.W, src.H)
	copy(dst[0].Pix, src.Pix)
	for i := 1; i < levels; i++ {
		imgproc.PyramidDown(&dst[i], dst[i-1])
	}
	return dst
}

// Track advances the tracker by one frame. frameW/frameH/rgba describe
// the new frame; it is grayscaled and pyramided internally.
func (t *Tracker) Track(rgba []byte, frameW, frameH int) Result {
	// Step 1: swap prev/curr.
	t.prevXY, t.currXY = t.currXY, t.prevXY
	t.prevPyr, t.currPyr = t.currPyr, t.prevPyr

	// Step 2: density check on the points carried over from the last
	// tick (this guards against the tracker continuing on a
	// collapsed/degenerate point set before doing any new work).
	if averagePairwiseDistance(t.prevXY) < t.params.DensityThreshold {
		return t.lost()
	}

	// Step 3: grayscale + pyramid the new frame into curr.
	var gray vision.Plane
	imgproc.Grayscale(&gray, rgba, frameW, frameH)
	t.currPyr = buildPyramid(t.currPyr, gray, t.params.PyramidLevels)

	// Step 4: pyramidal LK.
	status := make([]bool, len(t.prevXY))
	newXY := make([]vision.Point, len(t.prevXY))
	for i, p := range t.prevXY {
		np, ok := trackPoint(t.prevPyr, t.currPyr, p, t.params)
		newXY[i] = np
		status[i] = ok
	}

	// Step 5: compact to successfully tracked points.
	compacted := newXY[:0]
	compactedPrev := t.prevXY[:0]
	for i, ok := range status {
		if ok {
			compacted = append(compacted, newXY[i])
			compactedPrev = append(compactedPrev, t.prevXY[i])
		}
	}
	t.currXY = append(t.currXY[:0], compacted...)
	prevMatched := append([]vision.Point(nil), compactedPrev...)
	t.pointCount = len(t.currXY)

	// Step 6: point-count check.
	if t.pointCount < t.params.PointThreshold {
		return t.lost()
	}

	// Step 7: incremental homography via RANSAC between matched prev
	// and curr points.
	hInc, _, good := homography.RANSAC(prevMatched, t.currXY, homography.DefaultParams())

	// Step 8: good-count check.
	if good < t.params.GoodMatchThresh {
		return t.lost()
	}

	// Step 9: compose H_base <- H_inc * H_base (H_base maps the pattern
	// into the previous frame, H_inc maps that frame into this one).
	t.hBase = hInc.Mul(t.hBase)

	// Step 10: project reference rectangle corners.
	quad, ok := geom.CornerQuad(t.hBase, t.refW, t.refH, t.transform)
	if !ok {
		return t.lost()
	}

	// Step 11: prune on large corner displacement from the previous
	// quad.
	if t.prevQuad != nil && averageCornerDisplacement(*t.prevQuad, quad) > t.params.PruneThreshold {
		return t.lost()
	}

	if !geom.ValidQuad(quad, t.params.MaxQuadAngle) {
		return t.lost()
	}

	t.prevQuad = &quad
	return Result{Quad: quad}
}

// lost declares the tracker lost: point_count -> 0, H_base -> I,
// previous quad cleared.
func (t *Tracker) lost() Result {
	t.pointCount = 0
	t.hBase = vision.Identity()
	t.prevQuad = nil
	return Result{Lost: true}
}

// averagePairwiseDistance computes the mean Euclidean distance over
// all unordered pairs of pts. An empty or singleton set reports 0
// (treated as "too dense to judge", which the caller correctly reads
// as below threshold -> lost).
func averagePairwiseDistance(pts []vision.Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx, dy := pts[i].X-pts[j].X, pts[i].Y-pts[j].Y
			sum += math.Hypot(dx, dy)
			count++
		}
	}
	return sum / float64(count)
}

// averageCornerDisplacement returns the mean per-corner Euclidean
// displacement between two quads.
func averageCornerDisplacement(a, b vision.Quad) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		dx, dy := a[i].X-b[i].X, a[i].Y-b[i].Y
		sum += math.Hypot(dx, dy)
	}
	return sum / 4
}
