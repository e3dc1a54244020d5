package reactive

import (
	"sort"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
)

// Kind distinguishes a Variable, written directly by transactions, from a
// Definition, recomputed from its inputs by batch discovery.
type Kind int

const (
	KindVariable Kind = iota
	KindDefinition
)

// Config describes what a Cell computes. Variables ignore Expr.
type Config struct {
	Kind Kind
	Expr eval.Expr
}

// RootsLookup returns the cached root set of a reactive, keyed by its own
// ReactiveRef. The service actor owns the root-set cache; a Cell only
// consults it during batch discovery.
type RootsLookup func(basis.ReactiveRef) map[basis.ReactiveRef]struct{}

// Cell is the per-name reactive state held by a service actor. A Cell never
// invents its own Iteration numbers: the owning service computes the next
// Iteration (including the transitive bump of dependent definitions at
// PrepareCommit time) and passes it into Write/NextValue so that every
// reactive's own entry in its output basis reflects one authoritative
// per-name counter, whether or not the reactive happens to be a basis root.
type Cell struct {
	Service string
	Name    string

	config  Config
	version basis.Version

	value  *basis.StampedValue
	readBy basis.Stamp // Variable only: completed reads since the last write

	inputOrder  []basis.ReactiveRef
	queues      map[basis.ReactiveRef][]basis.StampedValue
	inputValues map[basis.ReactiveRef]*basis.StampedValue
}

// New constructs a Cell in the given configuration. It has no value until
// the first Write (Variable) or the first successful NextValue (Definition).
func New(service, name string, config Config, version basis.Version) *Cell {
	c := &Cell{Service: service, Name: name}
	c.Reconfigure(config, version)
	return c
}

// Reconfigure replaces the cell's configuration and bumps its Version. A
// reconfigured cell starts with no value and, for a Definition, empty input
// state: the new expression has no relationship to whatever was queued
// under the old one.
func (c *Cell) Reconfigure(config Config, version basis.Version) {
	c.config = config
	c.version = version
	c.value = nil
	c.readBy = basis.Empty

	if config.Kind != KindDefinition {
		c.inputOrder = nil
		c.queues = nil
		c.inputValues = nil
		return
	}

	refs := eval.EvalReads(config.Expr, c.Service)
	order := make([]basis.ReactiveRef, 0, len(refs))
	for r := range refs {
		order = append(order, r)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })

	c.inputOrder = order
	c.queues = make(map[basis.ReactiveRef][]basis.StampedValue, len(order))
	c.inputValues = make(map[basis.ReactiveRef]*basis.StampedValue, len(order))
}

func (c *Cell) Kind() Kind             { return c.config.Kind }
func (c *Cell) Version() basis.Version { return c.version }
func (c *Cell) Expr() eval.Expr        { return c.config.Expr }
func (c *Cell) Ref() basis.ReactiveRef { return basis.ReactiveRef{Service: c.Service, Name: c.Name} }

// Inputs returns the reactives a Definition reads, in a stable order. It is
// nil for a Variable.
func (c *Cell) Inputs() []basis.ReactiveRef {
	return c.inputOrder
}

// Value returns the cell's current StampedValue, or false if it has none
// yet.
func (c *Cell) Value() (basis.StampedValue, bool) {
	if c.value == nil {
		return basis.StampedValue{}, false
	}
	return *c.value, true
}

// FinishedRead folds a completed read's basis into readBy, so that the next
// Write observes every read that happened since the previous one.
// Precondition: Kind() == KindVariable.
func (c *Cell) FinishedRead(b basis.Stamp) {
	c.readBy = c.readBy.MergeFrom(b)
}

// Write assigns a Variable's new value. sv.Basis must already be the
// transaction's commit basis; Write additionally merges in every read
// completed since the last write and folds in the reactive's own new
// iteration, then clears readBy. Precondition: Kind() == KindVariable.
func (c *Cell) Write(sv basis.StampedValue, iteration basis.Iteration) basis.StampedValue {
	merged := sv
	merged.Basis = merged.Basis.MergeFrom(c.readBy).Add(c.Ref(), iteration)
	c.value = &merged
	c.readBy = basis.Empty
	return merged
}

// AddUpdate queues an incoming update from one input of a Definition. The
// service actor calls this once per write or propagation addressed to
// sender. Precondition: Kind() == KindDefinition and sender is in Inputs().
func (c *Cell) AddUpdate(sender basis.ReactiveRef, sv basis.StampedValue) {
	c.queues[sender] = append(c.queues[sender], sv)
}
