package reactive

import (
	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
)

// NextValue searches for the next causally-coherent batch of queued updates
// to consume and, on success, recomputes the definition's expression and
// returns the resulting StampedValue.
//
// It first checks completeness: every input must have either a stored value
// from a previous batch or at least one queued update, otherwise the
// definition can never resolve a read of that input and NextValue returns
// false regardless of what the other inputs have queued.
//
// It then tries each input in turn as a search seed: pop the seed's head
// update, then for every input whose current basis (its last popped update,
// or its stored value if nothing has been popped) does not dominate the
// running batch basis restricted to that input's own root set, pop its next
// queued update. Repeat until a full pass pops nothing, at which point the
// batch is closed. If any input's queue runs out before it catches up, this
// seed fails and the next one is tried. An input with no stored value is
// always force-popped once, since an unpopped, never-read input has no
// basis to compare against.
func (c *Cell) NextValue(roots RootsLookup, iteration basis.Iteration) (basis.StampedValue, bool) {
	if len(c.inputOrder) == 0 {
		// A definition with no inputs is a constant: it has exactly one
		// value to produce, computed once.
		if c.value != nil {
			return basis.StampedValue{}, false
		}
		return c.consume(nil, iteration)
	}

	for _, ref := range c.inputOrder {
		if c.inputValues[ref] == nil && len(c.queues[ref]) == 0 {
			return basis.StampedValue{}, false
		}
	}

	for _, seed := range c.inputOrder {
		if len(c.queues[seed]) == 0 {
			continue
		}
		if cursor, ok := c.tryBatch(seed, roots); ok {
			return c.consume(cursor, iteration)
		}
	}
	return basis.StampedValue{}, false
}

// tryBatch runs the closure search for one seed candidate. cursor[ref] is
// the number of queued updates for ref tentatively popped in this attempt;
// it is committed by consume only once the whole search succeeds.
func (c *Cell) tryBatch(seed basis.ReactiveRef, roots RootsLookup) (map[basis.ReactiveRef]int, bool) {
	cursor := map[basis.ReactiveRef]int{seed: 1}

	basisOf := func(ref basis.ReactiveRef) basis.Stamp {
		if n := cursor[ref]; n > 0 {
			return c.queues[ref][n-1].Basis
		}
		if v := c.inputValues[ref]; v != nil {
			return v.Basis
		}
		return basis.Empty
	}
	joined := func() basis.Stamp {
		b := basis.Empty
		for _, ref := range c.inputOrder {
			b = b.MergeFrom(basisOf(ref))
		}
		return b
	}

	for {
		changed := false
		bstar := joined()
		for _, ref := range c.inputOrder {
			needsInitial := cursor[ref] == 0 && c.inputValues[ref] == nil
			for needsInitial || !bstar.PrecEqRestrictedTo(basisOf(ref), roots(ref)) {
				n := cursor[ref]
				if n >= len(c.queues[ref]) {
					return nil, false
				}
				cursor[ref] = n + 1
				changed = true
				needsInitial = false
				bstar = joined()
			}
		}
		if !changed {
			return cursor, true
		}
	}
}

// consume commits a successful tryBatch: advances each input's queue past
// what was popped, records the last popped value as that input's new
// current value, and recomputes the definition's expression.
func (c *Cell) consume(cursor map[basis.ReactiveRef]int, iteration basis.Iteration) (basis.StampedValue, bool) {
	for ref, n := range cursor {
		if n == 0 {
			continue
		}
		v := c.queues[ref][n-1]
		c.inputValues[ref] = &v
		c.queues[ref] = append([]basis.StampedValue(nil), c.queues[ref][n:]...)
	}

	read := func(name string) (eval.Expr, bool) {
		v, ok := c.inputValues[basis.ReactiveRef{Service: c.Service, Name: name}]
		if !ok || v == nil {
			return nil, false
		}
		e, ok := v.Value.(eval.Expr)
		return e, ok
	}

	result, err := eval.Eval(c.config.Expr, read)
	if err != nil {
		return basis.StampedValue{}, false
	}

	b := basis.Empty
	for _, ref := range c.inputOrder {
		b = b.MergeFrom(c.inputValues[ref].Basis)
	}
	sv := basis.StampedValue{Value: result, Basis: b.Add(c.Ref(), iteration)}
	c.value = &sv
	return sv, true
}
