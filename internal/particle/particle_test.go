package particle

import (
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

func twoParticles() Geometry {
	return Geometry{
		Position: []tensor.Vec{{0.5, 0.5, 0}, {1.5, 0.5, 0}},
		Velocity: []tensor.Vec{{1, 0, 0}, {-2, 0, 0}},
		Mass:     []float64{2, 1},
		Volume:   []float64{0.25, 0.25},
		Material: []int{0, 0},
		Body:     []int{3, 1},
	}
}

func TestNewSet(t *testing.T) {
	s, err := NewSet(twoParticles(), 1, 1, logr.Discard())
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 0.25, s.Points[0].HalfWidth)
	assert.Equal(t, []int{1, 3}, s.Bodies())
	assert.Equal(t, 3.0, s.TotalMass())
	assert.Equal(t, tensor.Vec{0, 0, 0}, s.TotalMomentum())
	assert.InDelta(t, 0.5*2*1+0.5*1*4, s.KineticEnergy(), 1e-12)
	assert.Equal(t, 2, s.BC.Len())
	assert.InDelta(t, 8, s.Points[0].Density(), 1e-12)
}

func TestNewSetValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Geometry)
		want   error
	}{
		"short mass":     {func(g *Geometry) { g.Mass = g.Mass[:1] }, core.ErrLengthMismatch},
		"short velocity": {func(g *Geometry) { g.Velocity = g.Velocity[:1] }, core.ErrLengthMismatch},
		"zero mass":      {func(g *Geometry) { g.Mass[1] = 0 }, core.ErrInvalidConfig},
		"zero volume":    {func(g *Geometry) { g.Volume[0] = 0 }, core.ErrInvalidConfig},
		"wide particle":  {func(g *Geometry) { g.HalfWidth = []float64{0.6, 0.2} }, core.ErrInvalidConfig},
		"bad material":   {func(g *Geometry) { g.Material[0] = 4 }, core.ErrInvalidConfig},
		"nan position":   {func(g *Geometry) { g.Position[0][1] = nan() }, core.ErrNonFinite},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			g := twoParticles()
			tc.mutate(&g)
			_, err := NewSet(g, 1, 1, logr.Discard())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFillBox(t *testing.T) {
	var g Geometry
	n, err := Fill(&g, Region{Lo: tensor.Vec{0, 0, 0}, Hi: tensor.Vec{1, 0.5, 0}, Density: 1000, PerCell: 2}, 0.25, 2)
	require.NoError(t, err)
	assert.Equal(t, 8*4, n)
	assert.Equal(t, tensor.Vec{0.0625, 0.0625, 0}, g.Position[0])

	s, err := NewSet(g, 0.25, 1, logr.Discard())
	require.NoError(t, err)
	assert.InDelta(t, 1000*0.5, s.TotalMass(), 1e-9)
	assert.Equal(t, 0.0625, s.Points[0].HalfWidth)

	lo, hi := s.Bounds()
	assert.Equal(t, tensor.Vec{0.0625, 0.0625, 0}, lo)
	assert.Equal(t, tensor.Vec{0.9375, 0.4375, 0}, hi)
	assert.Len(t, s.Select(tensor.Vec{0, 0, 0}, tensor.Vec{1, 0.1, 0}), 8)
}

func TestFillSphereWithStress(t *testing.T) {
	var g Geometry
	_, err := Fill(&g, Region{Lo: tensor.Vec{0, 0, 0}, Hi: tensor.Vec{1, 1, 0}, Density: 1, Body: 0}, 0.5, 2)
	require.NoError(t, err)
	pre := tensor.Identity.Scale(-5)
	n, err := Fill(&g, Region{Shape: ShapeSphere, Center: tensor.Vec{2, 2, 0}, Radius: 0.5, Density: 1, Body: 1, Stress: pre}, 0.25, 2)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	require.Len(t, g.Stress, g.Len())
	assert.Equal(t, tensor.Sym{}, g.Stress[0])
	assert.Equal(t, pre, g.Stress[g.Len()-1])

	for _, x := range g.Position[16:] {
		assert.LessOrEqual(t, x.Sub(tensor.Vec{2, 2, 0}).Norm(), 0.5)
		assert.Equal(t, 0.0, x[2])
	}

	s, err := NewSet(g, 0.5, 1, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, pre, s.Points[g.Len()-1].Undamaged)
	assert.Equal(t, []int{0, 1}, s.Bodies())
}

func TestFillSphereKeepsPlane(t *testing.T) {
	var g Geometry
	n, err := Fill(&g, Region{Shape: ShapeSphere, Center: tensor.Vec{1, 1, 0.3}, Radius: 0.4, Density: 1}, 0.2, 2)
	require.NoError(t, err)
	require.Greater(t, n, 0)
	lo, hi := g.Position[0], g.Position[0]
	for _, x := range g.Position {
		assert.Equal(t, 0.3, x[2])
		for a := 0; a < 2; a++ {
			lo[a], hi[a] = math.Min(lo[a], x[a]), math.Max(hi[a], x[a])
		}
	}
	assert.Greater(t, lo[0], 0.6)
	assert.Less(t, hi[1], 1.4)

	g = Geometry{}
	n, err = Fill(&g, Region{Shape: ShapeSphere, Center: tensor.Vec{1, 1, 1}, Radius: 0.4, Density: 1}, 0.2, 3)
	require.NoError(t, err)
	require.Greater(t, n, 0)
	for _, x := range g.Position {
		assert.LessOrEqual(t, x.Sub(tensor.Vec{1, 1, 1}).Norm(), 0.4)
	}
}

func TestFillRejectsBadRegion(t *testing.T) {
	var g Geometry
	_, err := Fill(&g, Region{Hi: tensor.Vec{1, 1, 1}}, 0.5, 3)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, err = Fill(&g, Region{Shape: "cone", Hi: tensor.Vec{1, 1, 1}, Density: 1}, 0.5, 3)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
