package tensor

// Mat3 is a general 3x3 tensor, used for velocity gradients and spins.
type Mat3 [3][3]float64

// AddOuter accumulates f * (a ⊗ b) into m.
func (m *Mat3) AddOuter(a, b Vec, f float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] += f * a[i] * b[j]
		}
	}
}

// Sym returns the symmetric part (m + mᵀ)/2.
func (m Mat3) Sym() Sym {
	return Sym{
		m[0][0], m[1][1], m[2][2],
		0.5 * (m[0][1] + m[1][0]),
		0.5 * (m[1][2] + m[2][1]),
		0.5 * (m[2][0] + m[0][2]),
	}
}

// Skew returns the antisymmetric part (m - mᵀ)/2.
func (m Mat3) Skew() Mat3 {
	var w Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			w[i][j] = 0.5 * (m[i][j] - m[j][i])
		}
	}
	return w
}

// Mul returns m·o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// JaumannRate returns W·σ - σ·W, the spin correction for an objective
// stress update.
func JaumannRate(w Mat3, s Sym) Sym {
	sf := s.Full()
	ws := w.Mul(sf)
	sw := sf.Mul(w)
	var d Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d[i][j] = ws[i][j] - sw[i][j]
		}
	}
	return d.Sym()
}
