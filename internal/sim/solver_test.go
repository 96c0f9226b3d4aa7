package sim

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

var _ = Describe("Solver", func() {
	var params Parameters

	BeforeEach(func() {
		params = DefaultParameters()
		params.Workers = 3
	})

	build := func(g *grid.Grid, parts *particle.Set) *Solver {
		s, err := New(Setup{Grid: g, Particles: parts, Materials: newMaterials(softElastic), Params: params, Log: GinkgoLogr})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	single := func(x, v tensor.Vec) *particle.Set {
		return newParticles(particle.Geometry{
			Position:  []tensor.Vec{x},
			Velocity:  []tensor.Vec{v},
			Mass:      []float64{1},
			Volume:    []float64{1},
			HalfWidth: []float64{0.25},
			Material:  []int{0},
		}, 1, GinkgoLogr)
	}

	Describe("single particle under gravity", func() {
		It("gains -g*steps*dt of vertical velocity", func() {
			params.Gravity = tensor.Vec{0, -10, 0}
			params.Dt = 1e-4
			params.MaxSteps = 100
			params.TMax = 0
			params.Damping = 0

			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2.1, 2.3, 0}, tensor.Vec{}))
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(100))
			Expect(res.Time).To(BeNumerically("~", 0.01, 1e-12))

			p := s.Particles().Points[0]
			Expect(p.Velocity[1]).To(BeNumerically("~", -10*100*1e-4, 1e-9))
			Expect(p.Velocity[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(p.Position[0]).To(BeNumerically("~", 2.1, 1e-12))
			Expect(p.Position[1]).To(BeNumerically("<", 2.3))
		})

		It("behaves identically under pure PIC", func() {
			params.Gravity = tensor.Vec{0, -10, 0}
			params.Dt = 1e-4
			params.MaxSteps = 100
			params.Flip = 0

			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2.1, 2.3, 0}, tensor.Vec{}))
			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Particles().Points[0].Velocity[1]).To(BeNumerically("~", -0.1, 1e-9))
		})
	})

	Describe("conservation", func() {
		var s *Solver

		BeforeEach(func() {
			params.Gravity = tensor.Vec{}
			params.MaxSteps = 120
			params.TMax = 0
			params.Contact = true

			var geom particle.Geometry
			fillBlock(&geom, tensor.Vec{1, 1.5, 0}, tensor.Vec{2, 2.5, 0}, tensor.Vec{1, 0.2, 0}, 0, 0.25)
			fillBlock(&geom, tensor.Vec{2.25, 1.5, 0}, tensor.Vec{3.25, 2.5, 0}, tensor.Vec{-1, 0, 0}, 1, 0.25)
			s = build(newGrid2D(4, 0.25, grid.Auto, GinkgoLogr), newParticles(geom, 0.25, GinkgoLogr))
		})

		It("keeps particle and grid mass", func() {
			before := s.Particles().TotalMass()
			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Particles().TotalMass()).To(Equal(before))
			Expect(s.Grid().TotalMass()).To(BeNumerically("~", before, 1e-9*before))
		})

		It("keeps linear momentum in a closed system with contact", func() {
			p0 := s.Particles().TotalMomentum()
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Contacts).To(BeNumerically(">", 0))

			p1 := s.Particles().TotalMomentum()
			for a := 0; a < 3; a++ {
				Expect(p1[a]).To(BeNumerically("~", p0[a], 1e-6))
			}
		})

		It("matches a single-worker run", func() {
			params.Workers = 1
			var geom particle.Geometry
			fillBlock(&geom, tensor.Vec{1, 1.5, 0}, tensor.Vec{2, 2.5, 0}, tensor.Vec{1, 0.2, 0}, 0, 0.25)
			fillBlock(&geom, tensor.Vec{2.25, 1.5, 0}, tensor.Vec{3.25, 2.5, 0}, tensor.Vec{-1, 0, 0}, 1, 0.25)
			serial := build(newGrid2D(4, 0.25, grid.Auto, GinkgoLogr), newParticles(geom, 0.25, GinkgoLogr))

			for i := 0; i < 20; i++ {
				Expect(s.Step(s.Time(), s.StepCount(), s.Params())).To(Succeed())
				Expect(serial.Step(serial.Time(), serial.StepCount(), serial.Params())).To(Succeed())
			}
			for i := range s.Particles().Points {
				a, b := s.Particles().Points[i], serial.Particles().Points[i]
				for k := 0; k < 3; k++ {
					Expect(a.Position[k]).To(BeNumerically("~", b.Position[k], 1e-9))
					Expect(a.Velocity[k]).To(BeNumerically("~", b.Velocity[k], 1e-9))
				}
			}
		})
	})

	Describe("head-on contact", func() {
		It("leaves both bodies with the same normal velocity at the shared node", func() {
			params.Gravity = tensor.Vec{}
			params.Dt = 1e-3
			params.MaxSteps = 1
			params.Contact = true
			params.Friction = contact.Stick

			parts := newParticles(particle.Geometry{
				Position:  []tensor.Vec{{0.75, 2.5, 0}, {1.25, 2.5, 0}},
				Velocity:  []tensor.Vec{{1, 0, 0}, {-1, 0, 0}},
				Mass:      []float64{1, 1},
				Volume:    []float64{1, 1},
				HalfWidth: []float64{0.2, 0.2},
				Material:  []int{0, 0},
				Body:      []int{0, 1},
			}, 1, GinkgoLogr)
			g := newGrid2D(4, 1, grid.Clipped, GinkgoLogr)
			s := build(g, parts)

			Expect(s.Step(0, 0, params)).To(Succeed())
			Expect(s.Contacts()).To(BeNumerically(">=", 1))

			f := s.ContactFields()
			shared := g.Index(1, 2, 0)
			a, b := f.At(0, shared), f.At(1, shared)
			Expect(f.Mass[a]).To(BeNumerically(">", 0))
			Expect(f.Mass[b]).To(BeNumerically(">", 0))
			Expect(f.Velocity[a][0]).To(BeNumerically("~", f.Velocity[b][0], 1e-12))
			Expect(f.Velocity[a][0]).To(BeNumerically("~", 0, 1e-12))

			// the particles slow down but keep their direction
			Expect(parts.Points[0].Velocity[0]).To(BeNumerically("<", 1))
			Expect(parts.Points[0].Velocity[0]).To(BeNumerically(">", 0))
			Expect(parts.Points[1].Velocity[0]).To(BeNumerically("~", -parts.Points[0].Velocity[0], 1e-12))
		})
	})

	Describe("boundary conditions", func() {
		It("holds a block on a fixed floor", func() {
			params.Gravity = tensor.Vec{0, -10, 0}
			params.MaxSteps = 200
			params.TMax = 0
			params.Damping = 0.05

			g := newGrid2D(4, 0.25, grid.Auto, GinkgoLogr)
			floor := g.NodesIn(tensor.Vec{0, 0, 0}, tensor.Vec{4, 0, 0})
			for _, id := range floor {
				Expect(g.BC.Set(id, bc.Fixed())).To(Succeed())
			}

			var geom particle.Geometry
			fillBlock(&geom, tensor.Vec{1, 0, 0}, tensor.Vec{2, 1, 0}, tensor.Vec{}, 0, 0.25)
			s := build(g, newParticles(geom, 0.25, GinkgoLogr))
			Expect(g.Boundary(1)).To(Equal(grid.Clipped))

			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			for _, id := range floor {
				Expect(g.Nodes[id].Velocity).To(Equal(tensor.Vec{}))
			}
			lo, _ := s.Particles().Bounds()
			Expect(lo[1]).To(BeNumerically(">", 0))
		})

		It("drives prescribed particle velocities", func() {
			params.Dt = 1e-3
			params.MaxSteps = 10
			parts := single(tensor.Vec{2, 2, 0}, tensor.Vec{})
			Expect(parts.BC.Set(0, bc.NewVelocity([3]bool{true, false, false}, tensor.Vec{0.5, 0, 0}))).To(Succeed())

			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), parts)
			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(parts.Points[0].Velocity[0]).To(Equal(0.5))
			Expect(parts.Points[0].Position[0]).To(BeNumerically("~", 2.005, 1e-12))
		})

		It("overwrites constrained node force axes and integrates the free ones", func() {
			params.Gravity = tensor.Vec{0, -10, 0}
			params.Dt = 1e-3
			params.MaxSteps = 1
			params.Damping = 0

			g := newGrid2D(4, 1, grid.Auto, GinkgoLogr)
			id := g.Index(2, 2, 0)
			Expect(g.BC.Set(id, bc.NewForce([3]bool{true, false, false}, tensor.Vec{3, 0, 0}))).To(Succeed())
			s := build(g, single(tensor.Vec{2.1, 2.3, 0}, tensor.Vec{}))

			Expect(s.Step(0, 0, params)).To(Succeed())
			node := g.Nodes[id]
			Expect(node.Active).To(BeTrue())
			Expect(node.Force[0]).To(Equal(3.0))
			Expect(node.Force[1]).To(BeNumerically("~", -10*node.Mass, 1e-12))
			Expect(node.Velocity[0]).To(BeNumerically("~", 3*1e-3/node.Mass, 1e-12))
			Expect(node.Velocity[1]).To(BeNumerically("~", -10*1e-3, 1e-12))
		})

		It("adds prescribed particle forces to the node totals", func() {
			params.Gravity = tensor.Vec{}
			params.Dt = 1e-3
			params.MaxSteps = 1
			params.Damping = 0

			parts := single(tensor.Vec{2.1, 2.3, 0}, tensor.Vec{})
			Expect(parts.BC.Set(0, bc.NewForce([3]bool{false, true, false}, tensor.Vec{0, -4, 0}))).To(Succeed())
			g := newGrid2D(4, 1, grid.Auto, GinkgoLogr)
			s := build(g, parts)

			Expect(s.Step(0, 0, params)).To(Succeed())
			var total tensor.Vec
			for i := range g.Nodes {
				total = total.Add(g.Nodes[i].Force)
			}
			Expect(total[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(total[1]).To(BeNumerically("~", -4, 1e-12))
			Expect(parts.Points[0].Velocity[1]).To(BeNumerically("~", -4*1e-3, 1e-12))
		})

		It("writes prescribed particle stress before the scatter", func() {
			params.Gravity = tensor.Vec{}
			params.Dt = 1e-3
			params.MaxSteps = 1
			params.Damping = 0

			parts := single(tensor.Vec{2.1, 2.3, 0}, tensor.Vec{})
			Expect(parts.BC.Set(0, bc.NewStress([6]bool{tensor.XX: true}, tensor.Sym{tensor.XX: -5}))).To(Succeed())
			g := newGrid2D(4, 1, grid.Auto, GinkgoLogr)
			s := build(g, parts)

			Expect(s.Step(0, 0, params)).To(Succeed())
			nodes, _, grad := s.Stencils().Entries(0)
			Expect(nodes).NotTo(BeEmpty())
			pushed := false
			for k, id := range nodes {
				// f = -V σ·∇N with V = 1 and σ = diag(-5, 0, 0)
				Expect(g.Nodes[id].Force[0]).To(BeNumerically("~", 5*grad[k][0], 1e-12))
				Expect(g.Nodes[id].Force[1]).To(BeNumerically("~", 0, 1e-12))
				if grad[k][0] != 0 {
					pushed = true
				}
			}
			Expect(pushed).To(BeTrue())
		})

		It("rejects stress conditions on nodes", func() {
			g := newGrid2D(4, 1, grid.Auto, GinkgoLogr)
			err := g.BC.Set(0, bc.NewStress([6]bool{true}, tensor.Sym{1}))
			Expect(errors.Is(err, core.ErrNodeStressBC)).To(BeTrue())
		})
	})

	Describe("failures", func() {
		It("reports a CFL violation for a fixed timestep", func() {
			params.Dt = 1
			params.MaxSteps = 5
			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2, 2, 0}, tensor.Vec{}))

			res, err := s.Run(context.Background())
			Expect(errors.Is(err, core.ErrCFL)).To(BeTrue())
			var se *core.StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Step).To(Equal(0))
			Expect(se.Quantity).To(Equal("dt"))
			Expect(res.Steps).To(Equal(0))
		})

		It("stops on non-finite stress", func() {
			params.MaxSteps = 5
			parts := single(tensor.Vec{2, 2, 0}, tensor.Vec{})
			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), parts)
			parts.Points[0].Stress[tensor.XX] = math.Inf(1)

			_, err := s.Run(context.Background())
			Expect(errors.Is(err, core.ErrNonFinite)).To(BeTrue())
			var se *core.StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Index).To(Equal(0))
		})

		It("finishes the gather for the rest of a chunk after a failure", func() {
			params.Workers = 1
			params.Gravity = tensor.Vec{0, -10, 0}
			params.Dt = 1e-3
			params.MaxSteps = 1
			params.Damping = 0

			parts := newParticles(particle.Geometry{
				Position:  []tensor.Vec{{2, 2, 0}, {6, 6, 0}},
				Velocity:  []tensor.Vec{{}, {}},
				Mass:      []float64{1, 1},
				Volume:    []float64{1, 1},
				HalfWidth: []float64{0.25, 0.25},
				Material:  []int{0, 0},
			}, 1, GinkgoLogr)
			s := build(newGrid2D(8, 1, grid.Auto, GinkgoLogr), parts)
			parts.Points[0].Stress[tensor.XX] = math.Inf(1)

			err := s.Step(0, 0, params)
			Expect(errors.Is(err, core.ErrNonFinite)).To(BeTrue())
			var se *core.StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Index).To(Equal(0))
			Expect(s.StepCount()).To(Equal(0))

			healthy := parts.Points[1]
			Expect(healthy.Velocity[1]).To(BeNumerically("~", -10*1e-3, 1e-12))
			Expect(healthy.Position[1]).To(BeNumerically("<", 6))
		})

		It("refuses bad parameters before stepping", func() {
			params.Flip = 2
			_, err := New(Setup{
				Grid:      newGrid2D(4, 1, grid.Auto, GinkgoLogr),
				Particles: single(tensor.Vec{2, 2, 0}, tensor.Vec{}),
				Materials: newMaterials(softElastic),
				Params:    params,
			})
			Expect(errors.Is(err, core.ErrInvalidConfig)).To(BeTrue())
		})

		It("returns the context error when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2, 2, 0}, tensor.Vec{}))
			res, err := s.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Steps).To(Equal(0))
		})
	})

	Describe("Run", func() {
		It("feeds metrics every output_every steps and at the end", func() {
			params.MaxSteps = 25
			params.TMax = 0
			params.OutputEvery = 10
			m := &countingMetric{}
			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2, 2, 0}, tensor.Vec{}))
			s.AddMetric(m)
			frames := 0
			s.AddObserver(ObserverFunc(func(*Frame) { frames++ }))

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.steps).To(Equal([]int{0, 10, 20, 25}))
			Expect(frames).To(Equal(4))
			Expect(res.Times).To(HaveLen(4))
			Expect(res.History["count"]).To(Equal([]float64{1, 2, 3, 4}))
			Expect(res.Metrics["count"]).To(Equal(4.0))
			Expect(res.DtMin).To(BeNumerically(">", 0))
			Expect(res.DtMin).To(BeNumerically("<=", res.DtMax))
		})

		It("derives dt from the CFL fraction", func() {
			params.MaxSteps = 1
			params.CFL = 0.4
			s := build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2, 2, 0}, tensor.Vec{}))
			limit := s.StableDt()
			Expect(s.Step(0, 0, params)).To(Succeed())
			Expect(s.Dt()).To(BeNumerically("~", 0.4*limit, 1e-15))
		})

		It("runs an ensemble concurrently", func() {
			params.MaxSteps = 5
			e := NewEnsemble()
			for i := 0; i < 3; i++ {
				e.Add(build(newGrid2D(4, 1, grid.Auto, GinkgoLogr), single(tensor.Vec{2, 2, 0}, tensor.Vec{float64(i), 0, 0})))
			}
			e.MaxParallel = 2
			results, errs := e.Run(context.Background())
			Expect(FirstError(errs)).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Steps).To(Equal(5))
			}
		})
	})
})

var _ = DescribeTable("Parameters.Validate",
	func(mutate func(*Parameters), ok bool) {
		p := DefaultParameters()
		mutate(&p)
		err := p.Validate()
		if ok {
			Expect(err).NotTo(HaveOccurred())
		} else {
			Expect(errors.Is(err, core.ErrInvalidConfig)).To(BeTrue())
		}
	},
	Entry("defaults", func(*Parameters) {}, true),
	Entry("negative dt", func(p *Parameters) { p.Dt = -1 }, false),
	Entry("cfl above one", func(p *Parameters) { p.CFL = 1.5 }, false),
	Entry("cfl ignored with fixed dt", func(p *Parameters) { p.CFL = 0; p.Dt = 1e-3 }, true),
	Entry("damping of one", func(p *Parameters) { p.Damping = 1 }, false),
	Entry("no stopping rule", func(p *Parameters) { p.TMax = 0; p.MaxSteps = 0 }, false),
	Entry("flip below zero", func(p *Parameters) { p.Flip = -0.1 }, false),
	Entry("negative friction", func(p *Parameters) { p.Mu = -1 }, false),
	Entry("nan gravity", func(p *Parameters) { p.Gravity[1] = math.NaN() }, false),
)
