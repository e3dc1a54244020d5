package service

import (
	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/reactive"
	"github.com/cuemby/meerkat/pkg/txid"
)

// propagate sweeps forward from the earliest modified reactive in
// topological order, distributing each Variable's committed value once and
// draining every Definition's batch-discovery queue until it stalls, then
// grants any read that the new values satisfy.
func (s *Service) propagate(modified map[string]bool) {
	if len(modified) == 0 {
		return
	}

	start := -1
	for i, name := range s.topoOrder {
		if modified[name] {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}

	for i := start; i < len(s.topoOrder); i++ {
		name := s.topoOrder[i]
		cell, ok := s.cells[name]
		if !ok {
			continue
		}
		switch cell.Kind() {
		case reactive.KindVariable:
			if !modified[name] {
				continue
			}
			if sv, ok := cell.Value(); ok {
				s.distribute(name, sv)
			}
		case reactive.KindDefinition:
			for {
				sv, ok := cell.NextValue(s.rootsLookup, s.nextIteration(name))
				if !ok {
					break
				}
				s.iterations[name] = sv.Basis.Latest(cell.Ref())
				modified[name] = true
				s.distribute(name, sv)
			}
		}
	}

	s.grantReads()
}

// distribute hands name's new value to every local subscriber and, if
// name is exported, to every remote importer via its Fanout.
func (s *Service) distribute(name string, sv basis.StampedValue) {
	ref := basis.ReactiveRef{Service: s.ID, Name: name}
	for consumer := range s.subscriptions[name] {
		if cell, ok := s.cells[consumer]; ok {
			cell.AddUpdate(ref, sv)
		}
	}
	if fan, ok := s.exports[name]; ok {
		_ = fan.Send(message.Propagate{Sender: ref, Value: s.filterForExport(sv)})
	}
}

// filterForExport drops basis entries that name local, unexported
// reactives: an importer cannot restrict against a root it has never heard
// of, so those entries would only ever make PrecEqRestrictedTo checks on
// the far side either vacuously true or impossible to satisfy.
func (s *Service) filterForExport(sv basis.StampedValue) basis.StampedValue {
	out := basis.Empty
	for ref, iteration := range sv.Basis.Entries() {
		if ref.Service == s.ID && len(s.exportedBy[ref.Name]) == 0 {
			continue
		}
		out = out.Add(ref, iteration)
	}
	return basis.StampedValue{Value: sv.Value, Basis: out}
}

// handlePropagate applies an inbound remote value to every local import
// alias bound to its sender, queues it against each alias's local
// consumers, and resumes the propagation sweep from there.
func (s *Service) handlePropagate(m message.Propagate) {
	names, ok := s.importsBySender[m.Sender]
	if !ok {
		return
	}

	modified := make(map[string]bool)
	for _, importName := range names {
		entry, ok := s.imports[importName]
		if !ok || entry.ref != m.Sender {
			continue
		}
		localRef := basis.ReactiveRef{Service: s.ID, Name: importName}
		for consumer := range entry.importers {
			if cell, ok := s.cells[consumer]; ok {
				cell.AddUpdate(localRef, m.Value)
				modified[consumer] = true
			}
		}
	}
	s.propagate(modified)
}

// grantReads re-checks every pending read across the Shared cohort and the
// Exclusive holder against current cell values, promoting and replying to
// any that are now satisfied.
func (s *Service) grantReads() {
	switch s.held.kind {
	case heldExclusive:
		s.grantReadsFor(s.held.exclusiveTx, s.held.exclusive)
	case heldShared:
		for _, key := range s.held.shared.Keys() {
			tx := key.(txid.TxId)
			st, _ := s.held.shared.Get(tx)
			s.grantReadsFor(tx, st.(*txState))
		}
	}
}

// grantReadsFor promotes every pending-but-not-yet-complete read in st that
// the reactive's current value now satisfies, recording that value's basis
// as the read's complete basis.
func (s *Service) grantReadsFor(tx txid.TxId, st *txState) {
	for ref, slot := range st.reads {
		if !slot.hasPending || slot.hasComplete || ref.Service != s.ID {
			continue
		}
		cell, ok := s.cells[ref.Name]
		if !ok {
			continue
		}
		val, ok := cell.Value()
		if !ok {
			continue
		}
		roots := s.rootSets[ref.Name]
		if !slot.pending.PrecEqRestrictedTo(val.Basis, roots) {
			continue
		}
		slot.hasComplete = true
		slot.complete = val.Basis
		slot.hasPending = false
		s.sendTo(tx, message.ReturnedValue{Tx: tx, ServiceID: s.ID, Reactive: ref, Value: val})
	}
}
