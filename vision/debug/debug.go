//go:build debug && withcv
// +build debug,withcv

/*
DESCRIPTION
  Displays debug visualization of the tracked quad and inlier points
  over the live frame.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package debug provides an optional gocv-backed live view of the
// tracked quad and inlier points, built only with the debug,withcv
// build tags.
package debug

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ausocean/artrack/vision"
)

// Windows displays the live frame with the tracked quad and inlier
// points drawn over it.
type Windows struct {
	window *gocv.Window
}

// New creates a debugging window titled name.
func New(name string) Windows {
	return Windows{window: gocv.NewWindow(name + ": Tracking")}
}

// Close frees the resources used by gocv.
func (w *Windows) Close() error {
	return w.window.Close()
}

// Show draws the current state of tracking onto rgba (width x height x
// 4 bytes) and displays it. quad is nil when the overlay is hidden
// (persistence window expired, or pipeline re-entered Detecting).
// points are the inlier points tracked this tick, in frame coordinates.
func (w *Windows) Show(rgba []byte, width, height int, quad *vision.Quad, points []vision.Point, mode string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, rgba)
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return
	}
	defer mat.Close()

	var green = color.RGBA{0, 191, 0, 0}
	var yellow = color.RGBA{191, 191, 0, 0}

	if quad != nil {
		for i := 0; i < 4; i++ {
			a := quad[i]
			b := quad[(i+1)%4]
			gocv.Line(&mat, image.Pt(int(a.X), int(a.Y)), image.Pt(int(b.X), int(b.Y)), green, 2)
		}
	}
	for _, p := range points {
		gocv.Circle(&mat, image.Pt(int(p.X), int(p.Y)), 2, yellow, -1)
	}
	gocv.PutText(&mat, mode, image.Pt(16, 24), gocv.FontHersheyPlain, 1.5, green, 2)

	w.window.IMShow(mat)
	w.window.WaitKey(1)
}
