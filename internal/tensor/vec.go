// Package tensor provides the small fixed-size vector and tensor types used
// on every particle and node.
//
// Symmetric tensors are stored in Voigt order xx, yy, zz, xy, yz, zx with
// tensor (not engineering) shear components.
package tensor

import "math"

// Vec is a 3-component vector. Two-dimensional runs leave Z at zero.
type Vec [3]float64

func (v Vec) Add(o Vec) Vec { return Vec{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec) Sub(o Vec) Vec { return Vec{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec) Scale(f float64) Vec {
	return Vec{v[0] * f, v[1] * f, v[2] * f}
}
func (v Vec) Dot(o Vec) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec) Norm() float64     { return math.Sqrt(v.Dot(v)) }

// AddScaled returns v + o*f.
func (v Vec) AddScaled(o Vec, f float64) Vec {
	return Vec{v[0] + o[0]*f, v[1] + o[1]*f, v[2] + o[2]*f}
}

// Unit returns v normalized, or the zero vector when |v| is below tiny.
func (v Vec) Unit(tiny float64) (Vec, bool) {
	n := v.Norm()
	if n <= tiny {
		return Vec{}, false
	}
	return v.Scale(1 / n), true
}

// IsFinite reports whether every component is neither NaN nor Inf.
func (v Vec) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
