package bc

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/san-kum/mpmsim/internal/core"
)

// Target identifies what a table's slots belong to.
type Target uint8

const (
	Nodes Target = iota
	Particles
)

func (t Target) String() string {
	if t == Nodes {
		return "node"
	}
	return "particle"
}

// Table stores one condition slot per entity.
type Table struct {
	target    Target
	conds     []Condition
	active    []int
	built     bool
	dirty     bool
	conflicts int
	log       logr.Logger
}

// NewTable allocates n free slots.
func NewTable(target Target, n int, log logr.Logger) *Table {
	return &Table{
		target: target,
		conds:  make([]Condition, n),
		log:    log,
	}
}

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.conds) }

// Set assigns c to entity i, replacing whatever was there.
func (t *Table) Set(i int, c Condition) error {
	if i < 0 || i >= len(t.conds) {
		return fmt.Errorf("%s index %d out of range [0,%d): %w", t.target, i, len(t.conds), core.ErrInvalidConfig)
	}
	if c.Kind == Stress && t.target == Nodes {
		return fmt.Errorf("node %d: %w", i, core.ErrNodeStressBC)
	}

	old := t.conds[i]
	if old.Kind != Free && old.Kind != c.Kind {
		t.conflicts++
		t.log.Info("warning: boundary condition overwritten",
			"target", t.target.String(), "index", i, "old", old.Kind.String(), "new", c.Kind.String())
	}
	t.conds[i] = c
	t.dirty = true
	return nil
}

// Clear frees slot i.
func (t *Table) Clear(i int) {
	if i < 0 || i >= len(t.conds) {
		return
	}
	t.conds[i] = Condition{}
	t.dirty = true
}

// At returns the condition of entity i.
func (t *Table) At(i int) Condition {
	return t.conds[i]
}

// Conflicts returns how many assignments replaced a different kind.
func (t *Table) Conflicts() int { return t.conflicts }

// Active returns the sorted indices of entities with a non-free condition.
func (t *Table) Active() []int {
	if t.built && !t.dirty {
		return t.active
	}
	t.active = t.active[:0]
	for i, c := range t.conds {
		if c.Kind != Free {
			t.active = append(t.active, i)
		}
	}
	sort.Ints(t.active)
	t.built, t.dirty = true, false
	return t.active
}

// HasKind reports whether any slot holds kind k.
func (t *Table) HasKind(k Kind) bool {
	for _, i := range t.Active() {
		if t.conds[i].Kind == k {
			return true
		}
	}
	return false
}
