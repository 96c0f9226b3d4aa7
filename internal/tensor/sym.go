package tensor

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Voigt component indices.
const (
	XX = iota
	YY
	ZZ
	XY
	YZ
	ZX
)

// Sym is a symmetric second-order tensor in Voigt order.
type Sym [6]float64

// Identity is the second-order identity tensor.
var Identity = Sym{1, 1, 1, 0, 0, 0}

func (s Sym) Add(o Sym) Sym {
	var r Sym
	for i := range s {
		r[i] = s[i] + o[i]
	}
	return r
}

func (s Sym) Sub(o Sym) Sym {
	var r Sym
	for i := range s {
		r[i] = s[i] - o[i]
	}
	return r
}

func (s Sym) Scale(f float64) Sym {
	var r Sym
	for i := range s {
		r[i] = s[i] * f
	}
	return r
}

// Trace returns xx + yy + zz.
func (s Sym) Trace() float64 { return s[XX] + s[YY] + s[ZZ] }

// Mean returns the mean normal component, trace/3.
func (s Sym) Mean() float64 { return s.Trace() / 3 }

// Dev returns the deviatoric part.
func (s Sym) Dev() Sym {
	m := s.Mean()
	return Sym{s[XX] - m, s[YY] - m, s[ZZ] - m, s[XY], s[YZ], s[ZX]}
}

// DoubleDot returns s:o, counting each shear component twice.
func (s Sym) DoubleDot(o Sym) float64 {
	return s[XX]*o[XX] + s[YY]*o[YY] + s[ZZ]*o[ZZ] +
		2*(s[XY]*o[XY]+s[YZ]*o[YZ]+s[ZX]*o[ZX])
}

// Norm returns sqrt(s:s).
func (s Sym) Norm() float64 { return math.Sqrt(s.DoubleDot(s)) }

// VonMises returns the equivalent stress q = sqrt(3/2 dev:dev).
func (s Sym) VonMises() float64 {
	d := s.Dev()
	return math.Sqrt(1.5 * d.DoubleDot(d))
}

// Pressure returns -trace/3, positive in compression.
func (s Sym) Pressure() float64 { return -s.Mean() }

// IsFinite reports whether every component is neither NaN nor Inf.
func (s Sym) IsFinite() bool {
	for _, c := range s {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Full expands s into a 3x3 matrix.
func (s Sym) Full() Mat3 {
	return Mat3{
		{s[XX], s[XY], s[ZX]},
		{s[XY], s[YY], s[YZ]},
		{s[ZX], s[YZ], s[ZZ]},
	}
}

// MulVec returns s·v.
func (s Sym) MulVec(v Vec) Vec {
	return Vec{
		s[XX]*v[0] + s[XY]*v[1] + s[ZX]*v[2],
		s[XY]*v[0] + s[YY]*v[1] + s[YZ]*v[2],
		s[ZX]*v[0] + s[YZ]*v[1] + s[ZZ]*v[2],
	}
}

// Principal returns the eigenvalues of s in ascending order.
func (s Sym) Principal() [3]float64 {
	m := mat.NewSymDense(3, []float64{
		s[XX], s[XY], s[ZX],
		s[XY], s[YY], s[YZ],
		s[ZX], s[YZ], s[ZZ],
	})
	var es mat.EigenSym
	if !es.Factorize(m, false) {
		// Fall back to the diagonal; only reachable for non-finite input.
		return [3]float64{s[XX], s[YY], s[ZZ]}
	}
	var out [3]float64
	copy(out[:], es.Values(nil))
	return out
}

// MaxPrincipal returns the largest eigenvalue of s.
func (s Sym) MaxPrincipal() float64 {
	p := s.Principal()
	return p[2]
}
