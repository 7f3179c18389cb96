/*
DESCRIPTION
  lk.go implements single-point pyramidal Lucas-Kanade tracking: for
  each point, flow is estimated coarse-to-fine across the pyramid,
  iterating a local translation estimate until convergence or the
  iteration cap, and rejecting points whose local structure matrix is
  too poorly conditioned to track reliably.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package optflow

import (
	"math"

	"github.com/ausocean/artrack/vision"
)

// trackPoint tracks a single point p from prevPyr[0]'s coordinate
// space into currPyr[0]'s, using a coarse-to-fine pyramidal
// Lucas-Kanade search. ok is false if, at level 0, the point's window
// falls off the plane or its local structure matrix is too poorly
// conditioned (min eigenvalue below params.MinEigen) to trust the
// estimate. A coarser level where either happens passes the current
// estimate down unrefined.
func trackPoint(prevPyr, currPyr []vision.Plane, p vision.Point, params Params) (vision.Point, bool) {
	levels := len(prevPyr)
	if levels == 0 || len(currPyr) != levels {
		return p, false
	}

	// Coarsest-level guess: point scaled down, zero initial flow.
	scale := math.Pow(2, float64(levels-1))
	guess := vision.Point{X: p.X / scale, Y: p.Y / scale}

	for lvl := levels - 1; lvl >= 0; lvl-- {
		levelScale := math.Pow(2, float64(lvl))
		basePt := vision.Point{X: p.X / levelScale, Y: p.Y / levelScale}

		// On failure lkIterate returns the guess unchanged, so a coarse
		// level that cannot be refined simply carries the guess down.
		refined, ok := lkIterate(prevPyr[lvl], currPyr[lvl], basePt, guess, params)
		if !ok && lvl == 0 {
			return p, false
		}
		guess = refined
		if lvl > 0 {
			guess = vision.Point{X: guess.X * 2, Y: guess.Y * 2}
		}
	}

	return guess, true
}

// lkIterate runs the iterative Lucas-Kanade translation refinement of
// a single point at one pyramid level, starting the search at init in
// curr's coordinate space, tracking the patch centered at base in
// prev.
func lkIterate(prev, curr vision.Plane, base, init vision.Point, params Params) (vision.Point, bool) {
	half := params.Window / 2
	if half < 2 {
		half = 2
	}
	bx, by := int(math.Round(base.X)), int(math.Round(base.Y))
	if !patchInBounds(prev, bx, by, half) {
		return init, false
	}

	// Structure matrix and per-pixel prev gradients/values, computed
	// once from the reference patch.
	type sample struct {
		x, y   int
		ix, iy float64
		val    float64
	}
	samples := make([]sample, 0, (2*half+1)*(2*half+1))
	var gxx, gyy, gxy float64
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			x, y := bx+dx, by+dy
			ix := gradX(prev, x, y)
			iy := gradY(prev, x, y)
			gxx += ix * ix
			gyy += iy * iy
			gxy += ix * iy
			samples = append(samples, sample{x: x, y: y, ix: ix, iy: iy, val: float64(prev.Pix[y*prev.W+x])})
		}
	}

	trace := gxx + gyy
	det := gxx*gyy - gxy*gxy
	disc := trace*trace/4 - det
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)
	minEig := trace/2 - root
	if minEig < 0 {
		minEig = 0
	}
	if minEig < params.MinEigen*255*255 {
		return init, false
	}
	if det > -1e-9 && det < 1e-9 {
		return init, false
	}

	pos := init
	for iter := 0; iter < params.MaxIter; iter++ {
		px, py := pos.X-base.X, pos.Y-base.Y // translation relative to base

		var bx1, by1 float64
		for _, s := range samples {
			cx, cy := float64(s.x)+px, float64(s.y)+py
			cv, ok := bilinear(curr, cx, cy)
			if !ok {
				return init, false
			}
			diff := s.val - cv
			bx1 += diff * s.ix
			by1 += diff * s.iy
		}

		// Solve [gxx gxy; gxy gyy] * delta = [bx1; by1].
		dx := (gyy*bx1 - gxy*by1) / det
		dy := (gxx*by1 - gxy*bx1) / det

		pos.X += dx
		pos.Y += dy

		if math.Hypot(dx, dy) < params.Eps {
			break
		}
	}

	return pos, true
}

func patchInBounds(p vision.Plane, cx, cy, half int) bool {
	return cx-half-1 >= 0 && cx+half+1 < p.W && cy-half-1 >= 0 && cy+half+1 < p.H
}

func gradX(p vision.Plane, x, y int) float64 {
	if x-1 < 0 || x+1 >= p.W {
		return 0
	}
	return (float64(p.Pix[y*p.W+x+1]) - float64(p.Pix[y*p.W+x-1])) / 2
}

func gradY(p vision.Plane, x, y int) float64 {
	if y-1 < 0 || y+1 >= p.H {
		return 0
	}
	return (float64(p.Pix[(y+1)*p.W+x]) - float64(p.Pix[(y-1)*p.W+x])) / 2
}

// bilinear samples p at fractional coordinates (x, y), returning
// ok=false if the 2x2 neighbourhood falls outside p.
func bilinear(p vision.Plane, x, y float64) (float64, bool) {
	x0, y0 := math.Floor(x), math.Floor(y)
	x1, y1 := x0+1, y0+1
	if x0 < 0 || y0 < 0 || int(x1) >= p.W || int(y1) >= p.H {
		return 0, false
	}
	fx, fy := x-x0, y-y0
	ix0, iy0 := int(x0), int(y0)
	v00 := float64(p.Pix[iy0*p.W+ix0])
	v01 := float64(p.Pix[iy0*p.W+ix0+1])
	v10 := float64(p.Pix[(iy0+1)*p.W+ix0])
	v11 := float64(p.Pix[(iy0+1)*p.W+ix0+1])
	top := v00*(1-fx) + v01*fx
	bot := v10*(1-fx) + v11*fx
	return top*(1-fy) + bot*fy, true
}
