/*
DESCRIPTION
  testimage.go builds synthetic RGBA fixtures for the end-to-end
  scenario tests: a high-contrast checkerboard reference pattern, and
  translated/rotated/scaled renderings of it used to exercise the
  detector and tracker without a camera.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package testimage builds synthetic RGBA test fixtures, for use from
// _test.go files only.
package testimage

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Checkerboard renders a w x h RGBA checkerboard with the given cell
// size, alternating black and white, onto a mid-gray background margin
// so corner/edge features exist away from the image border.
func Checkerboard(w, h, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gray := color.RGBA{128, 128, 128, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{gray}, image.Point{}, draw.Src)

	margin := cell
	for y := margin; y < h-margin; y++ {
		for x := margin; x < w-margin; x++ {
			cx, cy := (x-margin)/cell, (y-margin)/cell
			var c color.RGBA
			if (cx+cy)%2 == 0 {
				c = color.RGBA{0, 0, 0, 255}
			} else {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// Translate renders src shifted by (dx, dy) pixels into a w x h frame,
// filling the uncovered border with mid-gray.
func Translate(src *image.RGBA, w, h int, dx, dy float64) *image.RGBA {
	return affine(src, w, h, f64.Aff3{
		1, 0, dx,
		0, 1, dy,
	})
}

// RotateScale renders src rotated by angleDeg degrees about its center
// and scaled by factor, into a w x h frame centered at (cx, cy), filling
// the uncovered border with mid-gray.
func RotateScale(src *image.RGBA, w, h int, angleDeg, factor, cx, cy float64) *image.RGBA {
	theta := angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	sx0, sy0 := float64(src.Bounds().Dx())/2, float64(src.Bounds().Dy())/2

	// Maps source (x, y) to destination coordinates, as xdraw's
	// Transform expects: move the source center to the origin, scale and
	// rotate, then translate to (cx, cy).
	a := factor * cos
	b := -factor * sin
	c := factor * sin
	d := factor * cos
	tx := cx - a*sx0 - b*sy0
	ty := cy - c*sx0 - d*sy0

	return affine(src, w, h, f64.Aff3{
		a, b, tx,
		c, d, ty,
	})
}

func affine(src *image.RGBA, w, h int, m f64.Aff3) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	gray := color.RGBA{128, 128, 128, 255}
	draw.Draw(dst, dst.Bounds(), &image.Uniform{gray}, image.Point{}, draw.Src)
	xdraw.BiLinear.Transform(dst, m, src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// RGBA returns img's raw RGBA byte buffer, width and height, in the
// layout the pipeline's Frame type expects.
func RGBA(img *image.RGBA) (pix []byte, w, h int) {
	return img.Pix, img.Bounds().Dx(), img.Bounds().Dy()
}
