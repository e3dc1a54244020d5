package service

import (
	"fmt"
	"sort"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/reactive"
)

// handlePrepareCommit folds every completed read into the transaction's
// working basis, computes a prepared Iteration for every reactive touched by
// a staged write or reactive delta (and transitively, any Definition that
// reads one of them), and replies with the basis the coordinator must echo
// back in Commit. Nothing becomes visible yet.
func (s *Service) handlePrepareCommit(m message.PrepareCommit) {
	st := s.txStateFor(m.Tx)
	b := st.completeBasis()

	if s.held.kind != heldExclusive || s.held.exclusiveTx != m.Tx {
		s.sendTo(m.Tx, message.CommitPrepared{Tx: m.Tx, Basis: b})
		return
	}

	touched := s.touchedNames(st)
	for _, name := range s.topoOrder {
		if touched[name] {
			continue
		}
		cell, ok := s.cells[name]
		if !ok || cell.Kind() != reactive.KindDefinition {
			continue
		}
		for _, in := range cell.Inputs() {
			if touched[in.Name] {
				touched[name] = true
				break
			}
		}
	}
	// Reactives created by this transaction's delta are not yet in
	// topoOrder; they still need a first prepared iteration.
	for _, d := range st.reactivesDelta {
		if !d.Remove {
			touched[d.Name] = true
		}
	}

	prepared := make(map[string]basis.Iteration, len(touched))
	for name := range touched {
		prepared[name] = s.nextIteration(name)
	}
	st.preparedIterations = prepared

	for name, iteration := range prepared {
		if s.willExport(name, st.exportsDelta) {
			b = b.Add(basis.ReactiveRef{Service: s.ID, Name: name}, iteration)
		}
	}

	s.sendTo(m.Tx, message.CommitPrepared{Tx: m.Tx, Basis: b})
}

// touchedNames returns the set of local reactive names directly written, or
// reconfigured without removal, by st.
func (s *Service) touchedNames(st *txState) map[string]bool {
	touched := make(map[string]bool, len(st.writes)+len(st.reactivesDelta))
	for name := range st.writes {
		touched[name] = true
	}
	for _, d := range st.reactivesDelta {
		if !d.Remove {
			touched[d.Name] = true
		}
	}
	return touched
}

// willExport reports whether name will have at least one remote importer
// after delta is applied on top of the current exportedBy registry.
func (s *Service) willExport(name string, delta []message.ExportDelta) bool {
	count := len(s.exportedBy[name])
	for _, d := range delta {
		if d.Name != name {
			continue
		}
		if d.Remove {
			count--
		} else {
			count++
		}
	}
	return count > 0
}

// handleCommit makes every staged read, write and configuration delta for
// tx visible, installs prepared iterations, propagates the result, and
// releases the lock. A transaction that never reached PrepareCommit (pure
// reader) has no writes or deltas to apply.
func (s *Service) handleCommit(m message.Commit) {
	st := s.releaseLock(m.Tx)
	if st == nil {
		return
	}

	for ref, slot := range st.reads {
		if !slot.hasComplete || ref.Service != s.ID {
			continue
		}
		if cell, ok := s.cells[ref.Name]; ok && cell.Kind() == reactive.KindVariable {
			cell.FinishedRead(m.Basis)
		}
	}

	// Configuration goes first so that a write to a reactive created in the
	// same transaction (a Configurator's variables) finds its cell.
	s.applyConfigureDelta(st)

	// Every write in this transaction must be entangled with every sibling
	// write's own ref before any of them reaches a Cell: two simultaneous
	// writes to disjoint-root inputs of a shared Definition (x and y feeding
	// z = x + y) only force one coalesced recompute if z's batch search sees
	// both updates as part of the same basis. Folding every write's own
	// (ReactiveRef, iteration) into a shared accumulator up front, before any
	// cell.Write call, makes that entanglement independent of which write
	// Go's map iteration happens to visit first.
	writeBasis := m.Basis
	for name := range st.writes {
		writeBasis = writeBasis.Add(basis.ReactiveRef{Service: s.ID, Name: name}, st.preparedIterations[name])
	}

	touched := make(map[string]bool, len(st.writes))
	for name, value := range st.writes {
		cell := s.localCell(name)
		iteration := st.preparedIterations[name]
		cell.Write(basis.StampedValue{Value: value, Basis: writeBasis}, iteration)
		s.iterations[name] = iteration
		touched[name] = true
	}

	for name, iteration := range st.preparedIterations {
		if _, already := touched[name]; already {
			continue
		}
		// A Definition takes its new iteration from propagate below when it
		// recomputes; installing the prepared one here as well would advance
		// it twice for one commit.
		if cell, ok := s.cells[name]; ok && cell.Kind() == reactive.KindDefinition {
			continue
		}
		s.iterations[name] = iteration
	}

	s.propagate(touched)
}

// applyConfigureDelta installs a committed Configure's import, reactive and
// export deltas, then rebuilds the topological order and
// root-set cache if anything changed shape.
func (s *Service) applyConfigureDelta(st *txState) {
	changed := false

	for _, d := range st.importsDelta {
		changed = true
		if d.Remove {
			entry, ok := s.imports[d.Name]
			if ok && len(entry.importers) > 0 {
				panic(fmt.Sprintf("protocol error: cannot remove import %q on service %s with active importers", d.Name, s.ID))
			}
			s.removeFromSenderIndex(d.Name)
			delete(s.imports, d.Name)
			continue
		}
		entry := &importEntry{ref: d.Ref, importers: make(map[string]struct{})}
		if old, ok := s.imports[d.Name]; ok {
			entry.importers = old.importers
			s.removeFromSenderIndex(d.Name)
		}
		s.imports[d.Name] = entry
		s.importsBySender[d.Ref] = append(s.importsBySender[d.Ref], d.Name)
	}

	for _, d := range st.reactivesDelta {
		changed = true
		if d.Remove {
			delete(s.cells, d.Name)
			delete(s.subscriptions, d.Name)
			delete(s.iterations, d.Name)
			continue
		}
		var oldInputs []basis.ReactiveRef
		existing, had := s.cells[d.Name]
		if had {
			oldInputs = existing.Inputs()
			existing.Reconfigure(d.Config, existing.Version()+1)
		} else {
			s.cells[d.Name] = reactive.New(s.ID, d.Name, d.Config, 1)
		}
		newInputs := s.cells[d.Name].Inputs()
		s.updateSubscriptionsAndImports(d.Name, oldInputs, newInputs)
	}

	for _, d := range st.exportsDelta {
		changed = true
		if d.Remove {
			if fan, ok := s.exports[d.Name]; ok {
				_ = fan.Unsubscribe(d.Mailbox)
			}
			if importers, ok := s.exportedBy[d.Name]; ok {
				delete(importers, d.Importer)
				if len(importers) == 0 {
					delete(s.exportedBy, d.Name)
					delete(s.exports, d.Name)
				}
			}
			continue
		}
		fan, ok := s.exports[d.Name]
		if !ok {
			fan = message.NewFanout()
			s.exports[d.Name] = fan
		}
		fan.Subscribe(d.Mailbox)
		if s.exportedBy[d.Name] == nil {
			s.exportedBy[d.Name] = make(map[string]message.Mailbox)
		}
		s.exportedBy[d.Name][d.Importer] = d.Mailbox
	}

	if changed {
		s.rebuildTopoAndRoots()
	}
}

func (s *Service) removeFromSenderIndex(localName string) {
	entry, ok := s.imports[localName]
	if !ok {
		return
	}
	names := s.importsBySender[entry.ref]
	out := names[:0]
	for _, n := range names {
		if n != localName {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		delete(s.importsBySender, entry.ref)
	} else {
		s.importsBySender[entry.ref] = out
	}
}

// updateSubscriptionsAndImports diffs a reconfigured reactive's old and new
// input sets by name (inputs are always locally-shaped) and updates the
// reverse subscription / import-consumer indexes accordingly.
func (s *Service) updateSubscriptionsAndImports(name string, oldInputs, newInputs []basis.ReactiveRef) {
	old := make(map[string]struct{}, len(oldInputs))
	for _, r := range oldInputs {
		old[r.Name] = struct{}{}
	}
	next := make(map[string]struct{}, len(newInputs))
	for _, r := range newInputs {
		next[r.Name] = struct{}{}
	}

	for in := range old {
		if _, keep := next[in]; keep {
			continue
		}
		s.disconnect(in, name)
	}
	for in := range next {
		if _, had := old[in]; had {
			continue
		}
		s.connect(in, name)
	}
}

func (s *Service) connect(inputName, consumer string) {
	if entry, ok := s.imports[inputName]; ok {
		entry.importers[consumer] = struct{}{}
		return
	}
	if s.subscriptions[inputName] == nil {
		s.subscriptions[inputName] = make(map[string]struct{})
	}
	s.subscriptions[inputName][consumer] = struct{}{}
}

func (s *Service) disconnect(inputName, consumer string) {
	if entry, ok := s.imports[inputName]; ok {
		delete(entry.importers, consumer)
		return
	}
	if subs, ok := s.subscriptions[inputName]; ok {
		delete(subs, consumer)
	}
}

// rebuildTopoAndRoots recomputes the topological order over local cells and
// the per-name cached root set: a reactive with no inputs roots itself; an
// import's contribution is its entry's remote ref; a definition's root set
// is the union of its inputs' root sets.
func (s *Service) rebuildTopoAndRoots() {
	order, err := topoSort(s.cells)
	if err != nil {
		panic(fmt.Sprintf("protocol error: service %s: %v", s.ID, err))
	}
	s.topoOrder = order

	roots := make(map[string]map[basis.ReactiveRef]struct{}, len(order)+len(s.imports))
	// Every import alias is itself a root from this service's perspective:
	// its root set is the actual remote ref it cites. rootsLookup is called
	// with whatever Cell.Inputs() yields, which includes import aliases, so
	// they need an entry here too, not just local cells.
	for name, entry := range s.imports {
		roots[name] = map[basis.ReactiveRef]struct{}{entry.ref: {}}
	}
	for _, name := range order {
		cell := s.cells[name]
		inputs := cell.Inputs()
		if len(inputs) == 0 {
			roots[name] = map[basis.ReactiveRef]struct{}{
				{Service: s.ID, Name: name}: {},
			}
			continue
		}
		set := make(map[basis.ReactiveRef]struct{})
		for _, in := range inputs {
			if entry, ok := s.imports[in.Name]; ok {
				set[entry.ref] = struct{}{}
				continue
			}
			for r := range roots[in.Name] {
				set[r] = struct{}{}
			}
		}
		roots[name] = set
	}
	s.rootSets = roots
}

// topoSort orders cells so that every Definition follows all of its local
// inputs. Imports have no local cell and are not part of the order.
func topoSort(cells map[string]*reactive.Cell) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(cells))
	order := make([]string, 0, len(cells))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cycle detected at %q", name)
		}
		state[name] = visiting
		cell, ok := cells[name]
		if ok {
			for _, in := range cell.Inputs() {
				if _, isLocal := cells[in.Name]; !isLocal {
					continue
				}
				if err := visit(in.Name); err != nil {
					return err
				}
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
