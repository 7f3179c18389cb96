/*
DESCRIPTION
  detect.go runs the per-frame detection path: corner detection over
  the full frame, orientation + descriptor extraction, brute-force
  matching against every level of the trained pattern, and RANSAC
  homography estimation.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package track

import (
	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/corner"
	"github.com/ausocean/artrack/vision/descriptor"
	"github.com/ausocean/artrack/vision/homography"
	"github.com/ausocean/artrack/vision/imgproc"
	"github.com/ausocean/artrack/vision/match"
)

// detectResult holds the outcome of a single detection attempt.
type detectResult struct {
	Found        bool
	H            vision.Homography
	PatternPts   []vision.Point // inlier points in pattern lev0 coordinates.
	FramePts     []vision.Point // corresponding inlier points in frame coordinates.
	GoodCount    int
}

// detector holds the reused scratch buffers and tunable parameters for
// the detection path.
type detector struct {
	blurred vision.Plane

	blurSize       uint
	corner         corner.Params
	matchThreshold int
}

// detect runs corner detection, descriptor matching and homography
// estimation against gray (the current frame's grayscale plane) and
// the trained pattern, returning found=false if fewer than
// goodThreshold inliers are recovered.
func (d *detector) detect(gray vision.Plane, pattern *vision.PatternModel, goodThreshold int) detectResult {
	blurSize := int(d.blurSize)
	if blurSize == 0 {
		blurSize = vision.BlurSize
	}
	imgproc.GaussianBlur(&d.blurred, gray, blurSize)

	cp := d.corner
	if cp.MaxN == 0 {
		cp = corner.DefaultParams()
	}
	kps := corner.Detect(d.blurred, cp)

	queries := make([]vision.Descriptor, len(kps))
	for i, kp := range kps {
		angle := descriptor.Orient(d.blurred, int(kp.X), int(kp.Y))
		queries[i] = descriptor.Describe(d.blurred, int(kp.X), int(kp.Y), angle)
		kps[i].Angle = angle
	}

	matchThreshold := d.matchThreshold
	if matchThreshold == 0 {
		matchThreshold = match.DefaultThreshold
	}

	banks := make([]vision.DescriptorBank, len(pattern.Levels))
	for i, lvl := range pattern.Levels {
		banks[i] = lvl.Descriptors
	}
	matches := match.Match(queries, banks, matchThreshold)

	if len(matches) < 4 {
		return detectResult{Found: false}
	}

	patternPts := make([]vision.Point, len(matches))
	framePts := make([]vision.Point, len(matches))
	for i, m := range matches {
		pk := pattern.Levels[m.PatternLevel].Keypoints[m.PatternIdx]
		patternPts[i] = vision.Point{X: float64(pk.X), Y: float64(pk.Y)} // already lev0 units.
		sk := kps[m.ScreenIdx]
		framePts[i] = vision.Point{X: float64(sk.X), Y: float64(sk.Y)}
	}

	h, mask, good := homography.RANSAC(patternPts, framePts, homography.DefaultParams())
	if good < goodThreshold {
		return detectResult{Found: false}
	}

	var inP, inF []vision.Point
	for i, ok := range mask {
		if ok {
			inP = append(inP, patternPts[i])
			inF = append(inF, framePts[i])
		}
	}

	return detectResult{
		Found:      true,
		H:          h,
		PatternPts: inP,
		FramePts:   inF,
		GoodCount:  good,
	}
}
