package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 200
	energyCapacity  = 600
	damagedLevel    = 0.5
)

// Snapshot is one recorded frame for replay.
type Snapshot struct {
	Step      int
	Time      float64
	Kinetic   float64
	Positions []tensor.Vec
	Damage    []float64
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// tunable is a solver parameter adjustable while the view runs.
type tunable struct {
	name string
	get  func(p *sim.Parameters) float64
	set  func(p *sim.Parameters, v float64)
	lo   float64
	hi   float64
	step float64
}

var tunables = []tunable{
	{"flip", func(p *sim.Parameters) float64 { return p.Flip }, func(p *sim.Parameters, v float64) { p.Flip = v }, 0, 1, 0.05},
	{"damping", func(p *sim.Parameters) float64 { return p.Damping }, func(p *sim.Parameters, v float64) { p.Damping = v }, 0, 0.95, 0.01},
	{"mu", func(p *sim.Parameters) float64 { return p.Mu }, func(p *sim.Parameters, v float64) { p.Mu = v }, 0, 2, 0.05},
	{"gravity", func(p *sim.Parameters) float64 { return p.Gravity.Norm() }, scaleGravity, 0, 100, 0.5},
}

func scaleGravity(p *sim.Parameters, v float64) {
	if n := p.Gravity.Norm(); n > 0 {
		p.Gravity = p.Gravity.Scale(v / n)
		return
	}
	p.Gravity = tensor.Vec{0, -v, 0}
}

// Model steps a solver on every tick and renders its particles.
type Model struct {
	solver        *sim.Solver
	name          string
	params        sim.Parameters
	stepsPerFrame int
	canvas        *Canvas
	camera        *Camera
	scene         *Scene
	running       bool
	done          bool
	err           error
	status        string
	selected      int
	showDamage    bool
	showHelp      bool
	energyHistory []float64
	history       []Snapshot
	playHead      int
	recording     bool
	frames        []*image.Paletted
	frame         int
}

// NewModel wraps solver; stepsPerFrame solver steps run per tick.
func NewModel(solver *sim.Solver, name string, stepsPerFrame int) Model {
	if stepsPerFrame <= 0 {
		stepsPerFrame = 1
	}
	m := Model{
		solver:        solver,
		name:          name,
		params:        solver.Params(),
		stepsPerFrame: stepsPerFrame,
		canvas:        NewCanvas(width, height),
		running:       true,
		energyHistory: make([]float64, 0, energyCapacity),
		history:       make([]Snapshot, 0, historyCapacity),
		playHead:      -1,
	}
	if g := solver.Grid(); g.Dim == 3 {
		lo := tensor.Vec{g.Lo(0), g.Lo(1), g.Lo(2)}
		hi := tensor.Vec{g.Hi(0), g.Hi(1), g.Hi(2)}
		m.camera = NewCamera(lo, hi)
		m.scene = &Scene{}
	}
	m.record()
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the solver.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			m.selected = (m.selected + 1) % len(tunables)
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		case "+", "=":
			m.stepsPerFrame = min(m.stepsPerFrame*2, 1024)
		case "-", "_":
			m.stepsPerFrame = max(m.stepsPerFrame/2, 1)
		case "d":
			m.showDamage = !m.showDamage
		case "t":
			NextTheme()
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		case "x", "X", "y", "Y", "z", "Z":
			m.rotate(msg.String())
		}
	case TickMsg:
		m.frame++
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) adjust(dir float64) {
	t := tunables[m.selected]
	v := t.get(&m.params) + dir*t.step
	t.set(&m.params, max(t.lo, min(t.hi, v)))
}

func (m *Model) rotate(key string) {
	if m.camera == nil {
		return
	}
	a := 0.1
	if strings.ToUpper(key) == key {
		a = -a
	}
	switch strings.ToLower(key) {
	case "x":
		m.camera.RotateX(a)
	case "y":
		m.camera.RotateY(a)
	case "z":
		m.camera.RotateZ(a)
	}
}

func (m *Model) finished() bool {
	p := m.params
	s := m.solver
	return (p.MaxSteps > 0 && s.StepCount() >= p.MaxSteps) ||
		(p.TMax > 0 && s.Time() >= p.TMax*(1-1e-12))
}

// step advances the solver by stepsPerFrame steps with the tuned parameters.
func (m *Model) step() {
	if m.done || m.err != nil {
		return
	}
	for i := 0; i < m.stepsPerFrame; i++ {
		if m.finished() {
			m.done, m.running = true, false
			break
		}
		if err := m.solver.Step(m.solver.Time(), m.solver.StepCount(), m.params); err != nil {
			m.err, m.running = err, false
			break
		}
	}
	m.record()
}

func (m *Model) record() {
	parts := m.solver.Particles()
	ke := parts.KineticEnergy()
	m.energyHistory = append(m.energyHistory, ke)
	if len(m.energyHistory) > energyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}

	snap := Snapshot{
		Step:      m.solver.StepCount(),
		Time:      m.solver.Time(),
		Kinetic:   ke,
		Positions: make([]tensor.Vec, parts.Len()),
		Damage:    make([]float64, parts.Len()),
	}
	for i := range parts.Points {
		snap.Positions[i] = parts.Points[i].Position
		snap.Damage[i] = parts.Points[i].Damage
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead = max(0, m.playHead+dir)
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// current returns the frame on screen: the replay position or the latest.
func (m *Model) current() *Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return &m.history[m.playHead]
	}
	if len(m.history) == 0 {
		return nil
	}
	return &m.history[len(m.history)-1]
}

func (m *Model) visible(snap *Snapshot, i int) bool {
	return !m.showDamage || snap.Damage[i] >= damagedLevel
}

func (m *Model) draw() {
	m.canvas.Clear()
	snap := m.current()
	if snap == nil {
		return
	}
	g := m.solver.Grid()

	if m.camera != nil {
		m.scene.Clear()
		m.scene.AddBox(tensor.Vec{g.Lo(0), g.Lo(1), g.Lo(2)}, tensor.Vec{g.Hi(0), g.Hi(1), g.Hi(2)})
		for i, x := range snap.Positions {
			if m.visible(snap, i) {
				m.scene.AddPoint(x)
			}
		}
		m.scene.Render(m.canvas, m.camera)
		return
	}

	vp := NewViewport(m.canvas, g.Lo(0), g.Lo(1), g.Hi(0)-g.Lo(0), g.Hi(1)-g.Lo(1))
	x0, y0 := vp.Map(g.Lo(0), g.Lo(1))
	x1, y1 := vp.Map(g.Hi(0), g.Hi(1))
	m.canvas.DrawRect(x0, y0, x1, y1)
	for i, x := range snap.Positions {
		if m.visible(snap, i) {
			px, py := vp.Map(x[0], x[1])
			m.canvas.Set(px, py)
		}
	}
}

func (m Model) statusLine(s Styles) string {
	switch {
	case m.err != nil:
		return s.Bad.Render("FAILED")
	case m.done:
		return s.Good.Render("DONE")
	case m.playHead != -1:
		snap := m.history[m.playHead]
		return s.Warn.Render(fmt.Sprintf("REPLAY step %d", snap.Step))
	case !m.running:
		return s.Warn.Render("PAUSED")
	}
	return s.Good.Render(AnimatedSpinner(m.frame) + " RUNNING")
}

// View renders the canvas and the stats panel.
func (m Model) View() string {
	s := Current()
	m.draw()
	snap := m.current()
	parts := m.solver.Particles()

	var b strings.Builder
	b.WriteString(s.Header.Render(strings.ToUpper(m.name)) + "\n")
	b.WriteString(m.statusLine(s) + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		b.WriteString(s.Graph.Render(chart) + "\n")
	}

	t, step := m.solver.Time(), m.solver.StepCount()
	if snap != nil {
		t, step = snap.Time, snap.Step
	}
	b.WriteString(s.Row("Time", FormatSI(t, "s")))
	b.WriteString(s.Row("Step", fmt.Sprintf("%d (×%d/frame)", step, m.stepsPerFrame)))
	b.WriteString(s.Row("dt", FormatSI(m.solver.Dt(), "s")))
	b.WriteString(s.Row("Particles", fmt.Sprintf("%d in %d bodies", parts.Len(), len(parts.Bodies()))))
	if snap != nil {
		b.WriteString(s.Row("Kinetic", fmt.Sprintf("%.4g", snap.Kinetic)))
	}
	b.WriteString(s.Row("Max damage", fmt.Sprintf("%.3f", parts.MaxDamage())))
	b.WriteString(s.Row("Max σ_vm", FormatSI(parts.MaxVonMises(), "Pa")))
	b.WriteString(s.Row("Contacts", fmt.Sprintf("%d nodes", m.solver.Contacts())))
	if m.showDamage {
		b.WriteString(s.Muted.Render(fmt.Sprintf("showing particles with D ≥ %.1f", damagedLevel)) + "\n")
	}

	b.WriteString("\nPARAMETERS\n")
	for i, tn := range tunables {
		line := fmt.Sprintf("%-8s %.3g", tn.name, tn.get(&m.params))
		if i == m.selected {
			b.WriteString(s.Active.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + s.Muted.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + s.Bad.Render(wrap(m.err.Error(), 40)) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + s.Muted.Render(m.status) + "\n")
	}
	b.WriteString(s.KeyHint.Render("\nSP:Pause Q:Quit ?:Help\n[ ]:Replay ↑↓:Tune +/-:Speed"))

	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, s.Stats.Render(b.String()))
	if m.showHelp {
		return s.Panel.Render(helpText) + "\n\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS
  Space    pause / resume
  Q        quit
  Tab      cycle parameters
  Up/K     increase parameter
  Down/J   decrease parameter
  + / -    more / fewer steps per frame
  [ / ]    replay backward / forward
  D        show damaged particles only
  X Y Z    rotate (3-D, shift reverses)
  G        toggle GIF recording
  T        cycle themes
  ?        toggle this help`

func wrap(s string, n int) string {
	var b strings.Builder
	for len(s) > n {
		b.WriteString(s[:n] + "\n")
		s = s[n:]
	}
	b.WriteString(s)
	return b.String()
}

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = m.frames[:0]
		m.status = "recording"
		return
	}
	m.recording = false
	path := m.name + ".gif"
	if err := m.saveGIF(path); err != nil {
		m.status = "gif: " + err.Error()
	} else {
		m.status = "saved " + path
	}
	m.frames = nil
}

// captureFrame rasterises the braille canvas into a paletted image.
func (m *Model) captureFrame() {
	const dot = 4
	cw, ch := m.canvas.Dots()
	img := image.NewPaletted(image.Rect(0, 0, cw*dot, ch*dot), color.Palette{color.Black, color.White})
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF(path string) error {
	if len(m.frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 3)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
