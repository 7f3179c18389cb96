/*
DESCRIPTION
  descriptor_test.go tests intensity-centroid orientation (a uniform
  patch gives a zero angle, a half-bright patch points toward the bright
  side) and the rotated-BRIEF descriptor (determinism, and distinct
  descriptors for dissimilar patches).

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
	"testing"

	"github.com/ausocean/artrack/vision"
)

func TestOrientSymmetricPatchIsZero(t *testing.T) {
	img := vision.NewPlane(64, 64)
	for i := range img.Pix {
		img.Pix[i] = 100
	}
	angle := Orient(img, 32, 32)
	if math.Abs(float64(angle)) > 1e-6 {
		t.Errorf("expected zero orientation on a uniform patch, got %v", angle)
	}
}

func TestOrientPointsTowardBrighterSide(t *testing.T) {
	img := vision.NewPlane(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x >= 32 {
				img.Pix[y*64+x] = 255
			}
		}
	}
	angle := Orient(img, 32, 32)
	if math.Cos(float64(angle)) <= 0 {
		t.Errorf("expected orientation to point toward the brighter (right) side, got %v rad", angle)
	}
}

func TestDescribeIsDeterministic(t *testing.T) {
	img := vision.NewPlane(64, 64)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	a := Describe(img, 32, 32, 0)
	b := Describe(img, 32, 32, 0)
	if a != b {
		t.Errorf("Describe is not deterministic: %v != %v", a, b)
	}
}

func TestDescribeDiffersAcrossKeypoints(t *testing.T) {
	img := vision.NewPlane(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Pix[y*64+x] = uint8((x * 37) ^ (y * 59))
		}
	}
	a := Describe(img, 20, 20, 0)
	b := Describe(img, 40, 40, 0)
	if a == b {
		t.Errorf("expected different descriptors at distinct, dissimilar patches")
	}
}
