/*
DESCRIPTION
  homography.go implements the 4-point planar homography DLT kernel
  and a RANSAC wrapper that fits a robust homography between two
  equally-sized point arrays, returning an inlier mask and the
  refit-on-inliers result.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package homography fits planar homographies from point
// correspondences using a direct linear transform kernel, robustified
// with RANSAC.
package homography

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/artrack/vision"
)

// Params configures RANSAC.
type Params struct {
	SampleSize    int
	ReprojThresh  float64
	OutlierRatio  float64
	Confidence    float64
	MaxIterations int
}

// DefaultParams returns the tunable RANSAC defaults.
func DefaultParams() Params {
	return Params{
		SampleSize:    4,
		ReprojThresh:  3,
		OutlierRatio:  0.5,
		Confidence:    0.99,
		MaxIterations: 1000,
	}
}

// FitDLT solves the 3x3 homography mapping src[i] -> dst[i] for n >= 4
// correspondences via the direct linear transform, using an SVD of the
// 2n x 9 homogeneous coefficient matrix (the right-singular vector of
// the smallest singular value gives the solution up to scale). ok is
// false if fewer than 4 points are given, the SVD fails to converge, or
// the points are degenerate.
func FitDLT(src, dst []vision.Point) (h vision.Homography, ok bool) {
	if len(src) < 4 || len(dst) < len(src) {
		return h, false
	}
	n := len(src)
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return h, false
	}
	var vMat mat.Dense
	svd.VTo(&vMat)

	// The solution is the right-singular vector for the smallest
	// singular value, i.e. the last column of V (gonum orders
	// singular values descending).
	_, cols := vMat.Dims()
	col := cols - 1
	var hv [9]float64
	for i := 0; i < 9; i++ {
		hv[i] = vMat.At(i, col)
	}
	if hv[8] > -1e-12 && hv[8] < 1e-12 {
		// Normalize by the largest-magnitude element instead when h33
		// is too close to zero to divide by.
		maxAbs := 0.0
		for _, v := range hv {
			if math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
			}
		}
		if maxAbs < 1e-15 {
			return h, false
		}
		for i := range hv {
			hv[i] /= maxAbs
		}
		return vision.Homography(hv), true
	}
	for i := range hv {
		hv[i] /= hv[8]
	}
	return vision.Homography(hv), true
}

// reprojError applies h to p and returns the Euclidean reprojection
// distance to target, or math.Inf(1) if h is singular at p.
func reprojError(h vision.Homography, p, target vision.Point) float64 {
	ox, oy, ok := h.Apply(p.X, p.Y)
	if !ok {
		return math.Inf(1)
	}
	dx, dy := ox-target.X, oy-target.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RANSAC fits a robust homography mapping src -> dst, returning H, an
// inlier mask of len(src), and the inlier count. If RANSAC fails to
// find any valid sample, H is the identity and the inlier count is 0.
// On success the returned H is refit on all inliers and inliers are
// reported in original order (not compacted — callers that need
// compaction, e.g. the optical-flow tracker, do so themselves).
func RANSAC(src, dst []vision.Point, p Params) (vision.Homography, []bool, int) {
	return ransac(src, dst, p, rand.New(rand.NewSource(1)))
}

// ransac is RANSAC with an injectable random source, so tests can
// assert deterministic behavior without reseeding the package-global
// generator.
func ransac(src, dst []vision.Point, p Params, rng *rand.Rand) (vision.Homography, []bool, int) {
	n := len(src)
	mask := make([]bool, n)
	if n < p.SampleSize {
		return vision.Identity(), mask, 0
	}

	bestCount := 0
	var bestH vision.Homography
	haveBest := false

	// Seed the iteration bound from the assumed outlier ratio; once a
	// sample succeeds, the bound is tightened from the observed
	// inlier ratio instead (see the adaptive early-exit below).
	maxIters := adaptiveIterations(1-p.OutlierRatio, p)
	if maxIters > p.MaxIterations {
		maxIters = p.MaxIterations
	}
	idx := make([]int, p.SampleSize)
	sampleSrc := make([]vision.Point, p.SampleSize)
	sampleDst := make([]vision.Point, p.SampleSize)

	for iter := 0; iter < maxIters; iter++ {
		if !sampleIndices(n, p.SampleSize, rng, idx) {
			continue
		}
		for i, s := range idx {
			sampleSrc[i] = src[s]
			sampleDst[i] = dst[s]
		}
		h, ok := FitDLT(sampleSrc, sampleDst)
		if !ok {
			continue
		}

		count := 0
		for i := 0; i < n; i++ {
			if reprojError(h, src[i], dst[i]) <= p.ReprojThresh {
				count++
			}
		}

		if count > bestCount {
			bestCount = count
			bestH = h
			haveBest = true

			// Adaptive early-exit, standard RANSAC stopping rule.
			inlierRatio := float64(count) / float64(n)
			if inlierRatio > 0 {
				needed := adaptiveIterations(inlierRatio, p)
				if needed < maxIters {
					maxIters = needed
				}
			}
		}
	}

	if !haveBest || bestCount == 0 {
		return vision.Identity(), mask, 0
	}

	for i := 0; i < n; i++ {
		mask[i] = reprojError(bestH, src[i], dst[i]) <= p.ReprojThresh
	}

	// Refit on all inliers.
	var inSrc, inDst []vision.Point
	for i, ok := range mask {
		if ok {
			inSrc = append(inSrc, src[i])
			inDst = append(inDst, dst[i])
		}
	}
	if len(inSrc) >= 4 {
		if h, ok := fitMany(inSrc, inDst); ok {
			bestH = h
		}
	}

	return bestH, mask, len(inSrc)
}

// fitMany solves the homography least-squares over more than 4
// correspondences via the same SVD-null-space kernel (the coefficient
// matrix is simply taller).
func fitMany(src, dst []vision.Point) (vision.Homography, bool) {
	return FitDLT(src, dst)
}

// adaptiveIterations computes the standard RANSAC iteration bound for
// the given observed inlier ratio, sample size and target confidence.
func adaptiveIterations(inlierRatio float64, p Params) int {
	if inlierRatio >= 1 {
		return 1
	}
	denom := math.Log(1 - math.Pow(inlierRatio, float64(p.SampleSize)))
	if denom >= 0 {
		return p.MaxIterations
	}
	n := math.Log(1-p.Confidence) / denom
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 1 {
		return 1
	}
	return int(math.Ceil(n))
}

// sampleIndices draws k distinct indices in [0, n) into out, returning
// false if it cannot (n < k).
func sampleIndices(n, k int, rng *rand.Rand, out []int) bool {
	if n < k {
		return false
	}
	seen := make(map[int]bool, k)
	for i := 0; i < k; {
		v := rng.Intn(n)
		if seen[v] {
			continue
		}
		seen[v] = true
		out[i] = v
		i++
	}
	return true
}
