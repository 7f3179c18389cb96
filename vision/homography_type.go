/*
DESCRIPTION
  homography_type.go provides the fixed-size 3x3 homography value type
  used throughout the pipeline, per the "matrix math" design note: a
  value type, not a dynamic-shape matrix.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

// Homography is a row-major 3x3 projective transform mapping
// pattern-plane coordinates to frame coordinates.
type Homography [9]float64

// Identity returns the 3x3 identity homography.
func Identity() Homography {
	return Homography{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Apply transforms (x, y) by H in homogeneous form, dividing through by
// the w component. ok is false if w is numerically too close to zero
// to divide by safely (denominator-clamp guard).
func (h Homography) Apply(x, y float64) (ox, oy float64, ok bool) {
	w := h[6]*x + h[7]*y + h[8]
	if w > -1e-12 && w < 1e-12 {
		return 0, 0, false
	}
	ox = (h[0]*x + h[1]*y + h[2]) / w
	oy = (h[3]*x + h[4]*y + h[5]) / w
	return ox, oy, true
}

// Mul returns h composed with g, i.e. the homography that applies g
// first then h: (h.Mul(g)).Apply(p) == h.Apply(g.Apply(p)).
func (h Homography) Mul(g Homography) Homography {
	var r Homography
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += h[row*3+k] * g[k*3+col]
			}
			r[row*3+col] = sum
		}
	}
	return r
}

// Inverse returns the matrix inverse of h via cofactor expansion, and
// ok=false if h is numerically singular.
func (h Homography) Inverse() (inv Homography, ok bool) {
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, i, j := h[6], h[7], h[8]

	det := a*(e*j-f*i) - b*(d*j-f*g) + c*(d*i-e*g)
	if det > -1e-15 && det < 1e-15 {
		return Homography{}, false
	}
	invDet := 1 / det

	inv = Homography{
		(e*j - f*i) * invDet, (c*i - b*j) * invDet, (b*f - c*e) * invDet,
		(f*g - d*j) * invDet, (a*j - c*g) * invDet, (c*d - a*f) * invDet,
		(d*i - e*g) * invDet, (b*g - a*i) * invDet, (a*e - b*d) * invDet,
	}
	return inv, true
}
