/*
DESCRIPTION
  geom.go provides the geometry utilities shared by the tracker and
  orchestrator: point-in-polygon, polygon area, corner projection by a
  homography (with a normalized offset/scale transform), and
  quad-shape validation.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package geom provides point-in-polygon, area and quad-validity
// geometry utilities over vision.Point/vision.Quad.
package geom

import (
	"math"

	"github.com/ausocean/artrack/vision"
)

// PointInPolygon reports whether p lies inside (or on the boundary of)
// the closed polygon defined by verts, using a standard ray-casting
// test with an inclusive boundary convention.
func PointInPolygon(p vision.Point, verts []vision.Point) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := verts[i], verts[j]
		if onSegment(p, vi, vj) {
			return true
		}
		if (vi.Y > p.Y) != (vj.Y > p.Y) {
			xIntersect := vi.X + (p.Y-vi.Y)*(vj.X-vi.X)/(vj.Y-vi.Y)
			if p.X < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func onSegment(p, a, b vision.Point) bool {
	cross := (p.Y-a.Y)*(b.X-a.X) - (p.X-a.X)*(b.Y-a.Y)
	if math.Abs(cross) > 1e-9 {
		return false
	}
	if p.X < math.Min(a.X, b.X)-1e-9 || p.X > math.Max(a.X, b.X)+1e-9 {
		return false
	}
	if p.Y < math.Min(a.Y, b.Y)-1e-9 || p.Y > math.Max(a.Y, b.Y)+1e-9 {
		return false
	}
	return true
}

// PolygonArea returns the absolute area of the polygon defined by
// verts via the shoelace formula; invariant under rotation of the
// vertex list (and reversal, since the absolute value is taken).
func PolygonArea(verts []vision.Point) float64 {
	n := len(verts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += verts[i].X*verts[j].Y - verts[j].X*verts[i].Y
	}
	return math.Abs(sum) / 2
}

// Transform describes the normalized offset/scale applied to the
// lev0-pixel corner rectangle before homography projection. A
// zero-value Transform (all fields zero) is NOT the identity —
// callers use IdentityTransform for that.
type Transform struct {
	OffsetX, OffsetY float64
	ScaleX, ScaleY   float64
}

// IdentityTransform is the no-op variant transform (full scale, no
// offset).
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// CornerQuad computes the four corners (TL, TR, BR, BL) of a w x h
// rectangle, adjusted by the normalized offset/scale transform t, then
// projected through h. ok is false if the homography is singular at
// any of the four corners.
func CornerQuad(hg vision.Homography, w, h float64, t Transform) (vision.Quad, bool) {
	scaledW := w * t.ScaleX
	scaledH := h * t.ScaleY
	offsetX := t.OffsetX*w + (1-t.ScaleX)*w/2
	offsetY := t.OffsetY*h - (1-t.ScaleY)*h/2

	corners := [4][2]float64{
		{offsetX, offsetY},                   // TL
		{offsetX + scaledW, offsetY},         // TR
		{offsetX + scaledW, offsetY + scaledH}, // BR
		{offsetX, offsetY + scaledH},         // BL
	}

	var q vision.Quad
	for i, c := range corners {
		x, y, ok := hg.Apply(c[0], c[1])
		if !ok {
			return q, false
		}
		q[i] = vision.Point{X: x, Y: y}
	}
	return q, true
}

// angleDeg returns the interior angle in degrees at vertex b, given
// its neighbours a and c.
func angleDeg(a, b, c vision.Point) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	dot := v1x*v2x + v1y*v2y
	m1 := math.Hypot(v1x, v1y)
	m2 := math.Hypot(v2x, v2y)
	if m1 < 1e-9 || m2 < 1e-9 {
		return 0
	}
	cos := dot / (m1 * m2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// ValidQuad reports whether q is a valid quadrilateral: its four
// interior angles sum within ±5 degrees of 360, and every interior
// angle lies strictly within (15, maxAngle) degrees.
func ValidQuad(q vision.Quad, maxAngle float64) bool {
	var sum float64
	for i := 0; i < 4; i++ {
		a := q[(i+3)%4]
		b := q[i]
		c := q[(i+1)%4]
		ang := angleDeg(a, b, c)
		if ang <= 15 || ang >= maxAngle {
			return false
		}
		sum += ang
	}
	return math.Abs(sum-360) <= 5
}
