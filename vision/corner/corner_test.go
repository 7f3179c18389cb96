/*
DESCRIPTION
  corner_test.go tests the detector's border exclusion, sort-and-
  truncate ordering (the total-order comparator), and flat-image
  rejection.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package corner

import (
	"testing"

	"github.com/ausocean/artrack/vision"
)

func checkerboard(w, h int) vision.Plane {
	p := vision.NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				p.Pix[y*w+x] = 255
			}
		}
	}
	return p
}

func TestDetectFlatImageHasNoCorners(t *testing.T) {
	img := vision.NewPlane(64, 64)
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	kps := Detect(img, DefaultParams())
	if len(kps) != 0 {
		t.Fatalf("flat image should have no corners, got %d", len(kps))
	}
}

func TestDetectRespectsBorder(t *testing.T) {
	img := checkerboard(64, 64)
	p := DefaultParams()
	p.Border = 20
	kps := Detect(img, p)
	for _, kp := range kps {
		x, y := int(kp.X), int(kp.Y)
		if x < p.Border || x >= img.W-p.Border || y < p.Border || y >= img.H-p.Border {
			t.Fatalf("keypoint (%d,%d) violates border %d", x, y, p.Border)
		}
	}
}

func TestDetectTruncatesToMaxN(t *testing.T) {
	img := checkerboard(64, 64)
	p := DefaultParams()
	p.MaxN = 5
	kps := Detect(img, p)
	if len(kps) > 5 {
		t.Fatalf("expected at most 5 keypoints, got %d", len(kps))
	}
}

func TestSortKeypointsTotalOrder(t *testing.T) {
	kps := []vision.Keypoint{
		{X: 0, Y: 0, Score: 5},
		{X: 1, Y: 0, Score: 10},
		{X: 2, Y: 0, Score: 5},
		{X: 3, Y: 0, Score: 10},
	}
	sortKeypoints(kps)

	want := []vision.Keypoint{
		{X: 1, Y: 0, Score: 10},
		{X: 3, Y: 0, Score: 10},
		{X: 0, Y: 0, Score: 5},
		{X: 2, Y: 0, Score: 5},
	}
	for i := range want {
		if kps[i] != want[i] {
			t.Fatalf("sort order mismatch at %d: got %+v, want %+v", i, kps[i], want[i])
		}
	}
}

func TestBorderForShrinksOnSmallLevels(t *testing.T) {
	if got := BorderFor(40, 40); got >= vision.DefaultBorder {
		t.Errorf("expected reduced border on a small level, got %d", got)
	}
	if got := BorderFor(2000, 2000); got != vision.DefaultBorder {
		t.Errorf("expected default border on a large level, got %d", got)
	}
}
