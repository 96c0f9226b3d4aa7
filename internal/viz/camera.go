package viz

import (
	"math"
	"sort"

	"github.com/san-kum/mpmsim/internal/tensor"
)

// Camera projects 3-D scenes onto a canvas with a simple perspective.
type Camera struct {
	Center           tensor.Vec
	Extent           float64
	Distance         float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

// NewCamera frames the box [lo, hi].
func NewCamera(lo, hi tensor.Vec) *Camera {
	ext := hi.Sub(lo).Norm()
	if ext == 0 {
		ext = 1
	}
	return &Camera{
		Center:   lo.Add(hi).Scale(0.5),
		Extent:   ext,
		Distance: 3,
		RotX:     -0.4,
		RotY:     0.6,
		Zoom:     1,
	}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// rotate maps a world point into normalised camera space.
func (c *Camera) rotate(p tensor.Vec) tensor.Vec {
	p = p.Sub(c.Center).Scale(1 / c.Extent)
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p[1], p[2] = p[1]*cx-p[2]*sx, p[1]*sx+p[2]*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p[0], p[2] = p[0]*cy+p[2]*sy, -p[0]*sy+p[2]*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p[0], p[1] = p[0]*cz-p[1]*sz, p[0]*sz+p[1]*cz
	return p
}

// Project returns dot coordinates, depth and visibility of p.
func (c *Camera) Project(p tensor.Vec, sw, sh int) (int, int, float64, bool) {
	r := c.rotate(p).Scale(c.Zoom)
	if r[2] >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	persp := c.Distance / (c.Distance - r[2])
	size := float64(min(sw, sh)) * 0.9
	sx := int(r[0]*persp*size) + sw/2
	sy := int(-r[1]*persp*size) + sh/2
	return sx, sy, r[2], sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type edge struct{ a, b tensor.Vec }

// Scene is a list of segments and points drawn back to front.
type Scene struct{ edges []edge }

func (s *Scene) AddEdge(a, b tensor.Vec) { s.edges = append(s.edges, edge{a, b}) }
func (s *Scene) AddPoint(p tensor.Vec)   { s.edges = append(s.edges, edge{p, p}) }
func (s *Scene) Clear()                  { s.edges = s.edges[:0] }

// AddBox adds the twelve edges of [lo, hi].
func (s *Scene) AddBox(lo, hi tensor.Vec) {
	corner := func(i int) tensor.Vec {
		v := lo
		for a := 0; a < 3; a++ {
			if i&(1<<a) != 0 {
				v[a] = hi[a]
			}
		}
		return v
	}
	for i := 0; i < 8; i++ {
		for a := 0; a < 3; a++ {
			if j := i | 1<<a; j != i {
				s.AddEdge(corner(i), corner(j))
			}
		}
	}
}

// Render draws the scene on canvas.
func (s *Scene) Render(c *Canvas, cam *Camera) {
	cw, ch := c.Dots()
	type projected struct {
		x1, y1, x2, y2 int
		depth          float64
	}
	proj := make([]projected, 0, len(s.edges))
	for _, e := range s.edges {
		x1, y1, d1, v1 := cam.Project(e.a, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.b, cw, ch)
		if v1 || v2 {
			proj = append(proj, projected{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}
