/*
DESCRIPTION
  vision.go provides the core data types shared by the pattern trainer,
  detector, matcher, homography estimator and optical-flow tracker: the
  grayscale plane, scale-space pyramid, keypoint, descriptor bank,
  match, homography and quad types described by the data model.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vision provides the data types and fixed-size homography used
// by the planar-pattern tracking pipeline: grayscale planes, pyramids,
// keypoints, binary descriptors, matches, homographies and quads.
package vision

// Tunable parameters. Treated as compile-time defaults;
// track/config.Config carries the live (possibly overridden) values.
const (
	MaxCorners        = 300
	NumTrainLevels    = 8
	MaxPatternSize    = 512
	MatchThreshold    = 48
	PointThreshold    = 20
	GoodMatchThresh   = 20
	PruneThreshold    = 20.0
	BlurSize          = 5
	LapThreshold      = 30
	EigenThreshold    = 25
	MaxPerLevel       = 300
	PyramidLevels     = 5
	DensityThreshold  = 25.0
	GridDistance      = 30
	MaxQuadAngle      = 120
	MaxPersistFrames  = 6
	DefaultBorder     = 17
)

// Plane is a dense 8-bit grayscale image plane, row-major with stride
// equal to W. It is the sole image representation on the hot path —
// no polymorphic pixel objects, per the "dynamic per-pixel typing"
// design note.
type Plane struct {
	W, H int
	Pix  []uint8
}

// NewPlane allocates a zeroed plane of the given size.
func NewPlane(w, h int) Plane {
	return Plane{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the pixel value at (x, y). Callers on the hot path should
// index Pix directly (y*W+x); At exists for geometry/test code where
// clarity matters more than avoiding a function call.
func (p Plane) At(x, y int) uint8 {
	return p.Pix[y*p.W+x]
}

// Set writes the pixel value at (x, y).
func (p Plane) Set(x, y int, v uint8) {
	p.Pix[y*p.W+x] = v
}

// Resize grows p's backing slice in place to the requested dimensions
// if it is currently too small, leaving existing contents undefined;
// it never shrinks the backing array. This matches the "reallocate
// scratch buffers lazily" contract, applied at the one point growth is
// legitimate: a frame source that changes resolution.
func (p *Plane) Resize(w, h int) {
	p.W, p.H = w, h
	n := w * h
	if cap(p.Pix) < n {
		p.Pix = make([]uint8, n)
		return
	}
	p.Pix = p.Pix[:n]
}

// Pyramid is an ordered sequence of grayscale planes, coarsest-scale
// last.
type Pyramid struct {
	Levels []Plane
}

// Keypoint is a salient image location with a detector score, the
// pyramid level it was detected at, and an intensity-centroid
// orientation in radians.
type Keypoint struct {
	X, Y  float32
	Score float32
	Level int
	Angle float32
}

// Descriptor is a 256-bit rotated-BRIEF binary signature, packed as
// eight little-endian 32-bit words so Hamming distance can be computed
// with eight XOR+popcount operations.
type Descriptor [8]uint32

// DescriptorBank holds one descriptor row per keypoint at a single
// pyramid level. len(Rows) must equal the number of stored keypoints
// at that level.
type DescriptorBank struct {
	Rows []Descriptor
}

// PatternLevel is one level of a trained PatternModel: the keypoints
// and descriptors extracted from that level's resampled, blurred
// plane, with keypoint coordinates already rescaled into lev0 pixel
// units.
type PatternLevel struct {
	Keypoints   []Keypoint
	Descriptors DescriptorBank
}

// PatternModel is the immutable, multi-level trained representation of
// a reference pattern image, built once by vision/pattern.Train and
// shared by reference across pipeline ticks.
type PatternModel struct {
	Levels  []PatternLevel
	Preview Plane // half-size base plane; lev0 quad dims are Preview.W*2, Preview.H*2.

	// Fallback records whether the synthetic-feature fallback fired
	// during training, for diagnostics.
	Fallback bool
}

// Match records a query (screen) descriptor's nearest pattern
// descriptor across all pyramid levels.
type Match struct {
	ScreenIdx    int
	PatternLevel int
	PatternIdx   int
	Distance     int
}

// Quad is the ordered 4-tuple (TL, TR, BR, BL) of image points
// delimiting the pattern's projection in frame coordinates.
type Quad [4]Point

// Point is a 2D point in image-plane pixel coordinates.
type Point struct {
	X, Y float64
}
