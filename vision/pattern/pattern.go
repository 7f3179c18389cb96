/*
DESCRIPTION
  pattern.go trains a PatternModel from a reference image: a
  scale-space pyramid of YAPE06 corners and rotated-BRIEF descriptors,
  plus a half-size preview plane. Degenerate patterns (near-zero
  contrast, or a level yielding zero keypoints) fall back to a
  synthesized grid of features rather than aborting.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pattern trains a vision.PatternModel from a decoded
// reference image.
package pattern

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/corner"
	"github.com/ausocean/artrack/vision/descriptor"
	"github.com/ausocean/artrack/vision/imgproc"
)

// minContrastRange is the max-min intensity range below which a
// pattern is considered near-zero contrast.
const minContrastRange = 5

// TrainParams configures Train, mirroring the tunable fields of
// track/config.Config that govern pattern training.
type TrainParams struct {
	NumTrainLevels uint
	MaxPatternSize uint
	BlurSize       uint
	LapThreshold   float64
	EigenThreshold float64
	MaxPerLevel    uint
	GridDistance   uint
}

// DefaultTrainParams returns the package-default training parameters.
func DefaultTrainParams() TrainParams {
	return TrainParams{
		NumTrainLevels: vision.NumTrainLevels,
		MaxPatternSize: vision.MaxPatternSize,
		BlurSize:       vision.BlurSize,
		LapThreshold:   vision.LapThreshold,
		EigenThreshold: vision.EigenThreshold,
		MaxPerLevel:    vision.MaxPerLevel,
		GridDistance:   vision.GridDistance,
	}
}

// Train builds a PatternModel from an RGBA reference image of the
// given dimensions. It never fails on a degenerate (low-contrast or
// featureless) pattern — it falls back to synthesized features
// instead — but does fail fast on invalid input.
func Train(rgba []byte, w, h int, tp TrainParams) (vision.PatternModel, error) {
	if w <= 0 || h <= 0 || len(rgba) < w*h*4 {
		return vision.PatternModel{}, errors.Errorf("pattern: invalid input image %dx%d", w, h)
	}

	var gray vision.Plane
	imgproc.Grayscale(&gray, rgba, w, h)

	// Scale the longer side to MaxPatternSize.
	longer := w
	if h > longer {
		longer = h
	}
	scale := float64(tp.MaxPatternSize) / float64(longer)
	lev0W := int(math.Round(float64(w) * scale))
	lev0H := int(math.Round(float64(h) * scale))
	if lev0W < 1 {
		lev0W = 1
	}
	if lev0H < 1 {
		lev0H = 1
	}

	var lev0 vision.Plane
	imgproc.Resample(&lev0, gray, lev0W, lev0H)

	var preview vision.Plane
	imgproc.PyramidDown(&preview, lev0)

	degenerate := isLowContrast(lev0)

	numLevels := int(tp.NumTrainLevels)
	model := vision.PatternModel{
		Levels:  make([]vision.PatternLevel, numLevels),
		Preview: preview,
	}

	for k := 0; k < numLevels; k++ {
		sk := math.Pow(math.Sqrt2, -float64(k))
		lw := maxInt(1, int(math.Round(float64(lev0W)*sk)))
		lh := maxInt(1, int(math.Round(float64(lev0H)*sk)))

		var resampled, blurred vision.Plane
		imgproc.Resample(&resampled, lev0, lw, lh)
		imgproc.GaussianBlur(&blurred, resampled, int(tp.BlurSize))

		p := corner.Params{
			Border:   corner.BorderFor(lw, lh),
			LapThr:   float32(tp.LapThreshold),
			EigenThr: float32(tp.EigenThreshold),
			MaxN:     int(tp.MaxPerLevel),
			Level:    k,
		}
		kps := corner.Detect(blurred, p)
		level := buildLevel(blurred, kps, sk)

		if len(level.Keypoints) == 0 && (degenerate || hasContent(gray)) {
			level = syntheticLevel(lw, lh, sk, k, tp.GridDistance)
			model.Fallback = true
		}

		model.Levels[k] = level
	}

	if degenerate {
		model.Fallback = true
	}

	return model, nil
}

// buildLevel computes orientation and descriptors for kps (detected in
// level-local pixel coordinates over img) and rescales their
// coordinates back to lev0 units by dividing by sk.
func buildLevel(img vision.Plane, kps []vision.Keypoint, sk float64) vision.PatternLevel {
	out := vision.PatternLevel{
		Keypoints:   make([]vision.Keypoint, len(kps)),
		Descriptors: vision.DescriptorBank{Rows: make([]vision.Descriptor, len(kps))},
	}
	for i, kp := range kps {
		angle := descriptor.Orient(img, int(kp.X), int(kp.Y))
		desc := descriptor.Describe(img, int(kp.X), int(kp.Y), angle)

		out.Keypoints[i] = vision.Keypoint{
			X:     float32(float64(kp.X) / sk),
			Y:     float32(float64(kp.Y) / sk),
			Score: kp.Score,
			Level: kp.Level,
			Angle: angle,
		}
		out.Descriptors.Rows[i] = desc
	}
	return out
}

// syntheticLevel synthesizes fallback features for a degenerate
// pattern: five canonical keypoints (center + quarter positions) plus a
// regular grid of keypoints spaced by gridDistance (level-local pixel
// units), all with synthetic descriptors, rescaled into lev0 units
// like any other level. This fallback changes matching behavior and is
// intentionally observable via PatternModel.Fallback.
func syntheticLevel(lw, lh int, sk float64, level int, gridDistance uint) vision.PatternLevel {
	positions := [][2]float64{
		{float64(lw) / 2, float64(lh) / 2},
		{float64(lw) / 4, float64(lh) / 4},
		{3 * float64(lw) / 4, float64(lh) / 4},
		{float64(lw) / 4, 3 * float64(lh) / 4},
		{3 * float64(lw) / 4, 3 * float64(lh) / 4},
	}

	step := int(gridDistance)
	if step < 1 {
		step = 1
	}
	for y := step; y < lh; y += step {
		for x := step; x < lw; x += step {
			positions = append(positions, [2]float64{float64(x), float64(y)})
		}
	}

	out := vision.PatternLevel{
		Keypoints:   make([]vision.Keypoint, len(positions)),
		Descriptors: vision.DescriptorBank{Rows: make([]vision.Descriptor, len(positions))},
	}
	for i, pos := range positions {
		out.Keypoints[i] = vision.Keypoint{
			X:     float32(pos[0] / sk),
			Y:     float32(pos[1] / sk),
			Score: 0,
			Level: level,
		}
		// A fixed grid-pattern descriptor (alternating bit words). It
		// depends only on the parity of i, so there are two distinct
		// fallback descriptors and consecutive features differ.
		var d vision.Descriptor
		for w := 0; w < 8; w++ {
			if (w+i)%2 == 0 {
				d[w] = 0xAAAAAAAA
			} else {
				d[w] = 0x55555555
			}
		}
		out.Descriptors.Rows[i] = d
	}
	return out
}

// isLowContrast reports whether img's intensity range (max-min) is
// below minContrastRange.
func isLowContrast(img vision.Plane) bool {
	if len(img.Pix) == 0 {
		return true
	}
	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return int(hi)-int(lo) < minContrastRange
}

// hasContent reports whether img has any non-zero pixel.
func hasContent(img vision.Plane) bool {
	for _, v := range img.Pix {
		if v != 0 {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
