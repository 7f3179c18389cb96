/*
DESCRIPTION
  match.go implements brute-force Hamming matching of query
  descriptors against every level of a trained pattern's descriptor
  banks, gated by an absolute distance threshold.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package match implements brute-force Hamming-distance matching of
// query descriptors against a trained vision.PatternModel.
package match

import (
	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/imgproc"
)

// DefaultThreshold is the absolute Hamming-distance gate below which a
// query descriptor is accepted, used when a caller has no override.
const DefaultThreshold = vision.MatchThreshold

// Hamming returns the Hamming distance between two 256-bit
// descriptors via eight popcount32 XORs.
func Hamming(a, b vision.Descriptor) int {
	d := 0
	for i := 0; i < 8; i++ {
		d += imgproc.PopCount32(a[i] ^ b[i])
	}
	return d
}

// Match walks every level of pattern, computing the Hamming distance
// from each query descriptor to every pattern descriptor (inspection
// order: level ascending, then row ascending — ties broken by
// first-seen), and emits a vision.Match for queries whose best
// distance is below threshold.
func Match(queries []vision.Descriptor, pattern []vision.DescriptorBank, threshold int) []vision.Match {
	var out []vision.Match
	for qi, q := range queries {
		best := 1 << 30
		bestLevel, bestIdx := -1, -1
		second := 1 << 30

		for lvl, bank := range pattern {
			for ri, row := range bank.Rows {
				d := Hamming(q, row)
				if d < best {
					second = best
					best = d
					bestLevel, bestIdx = lvl, ri
				} else if d < second {
					second = d
				}
			}
		}

		if bestIdx < 0 || best >= threshold {
			continue
		}
		out = append(out, vision.Match{
			ScreenIdx:    qi,
			PatternLevel: bestLevel,
			PatternIdx:   bestIdx,
			Distance:     best,
		})
	}
	return out
}
