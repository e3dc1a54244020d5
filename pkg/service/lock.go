package service

import (
	"fmt"
	"sort"

	orderedmap "github.com/elliotchance/orderedmap"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/txid"
)

type heldKind int

const (
	heldNone heldKind = iota
	heldShared
	heldExclusive
)

// heldState is the variant {None; Shared(OrderedMap<TxId,SharedData>);
// Exclusive(TxId, SharedData, ExclusiveData)}, collapsed
// into one struct since Go has no tagged unions: only the field matching
// kind is meaningful.
type heldState struct {
	kind        heldKind
	shared      *orderedmap.OrderedMap // TxId -> *txState, insertion-ordered (grant order)
	exclusiveTx txid.TxId
	exclusive   *txState
}

type queuedLock struct {
	tx   txid.TxId
	kind txid.Lock
}

// handleLock enqueues a lock request and attempts to grant it. A duplicate
// Lock for a tx already queued or held is a protocol error: it means the
// same coordinator sent Lock twice, which never happens in a correct
// client.
func (s *Service) handleLock(m message.Lock) {
	if _, already := s.coordinators[m.Tx]; already {
		panic(fmt.Sprintf("protocol error: duplicate Lock for tx %s", m.Tx))
	}
	s.coordinators[m.Tx] = m.ReplyTo
	s.queued = append(s.queued, queuedLock{tx: m.Tx, kind: m.Kind})
	sort.Slice(s.queued, func(i, j int) bool { return txid.Less(s.queued[i].tx, s.queued[j].tx) })
	s.grantLocks()
}

// grantLocks implements wait-die scheduling: walk the queue in TxId order
// (oldest first), granting every request compatible with the currently
// held state, and stop at the first request that must instead preempt the
// holder or simply wait.
func (s *Service) grantLocks() {
	for len(s.queued) > 0 {
		req := s.queued[0]
		switch s.held.kind {
		case heldNone:
			s.grant(req)
			s.queued = s.queued[1:]
		case heldShared:
			if req.kind == txid.Shared {
				s.grant(req)
				s.queued = s.queued[1:]
				continue
			}
			for _, key := range s.held.shared.Keys() {
				tx := key.(txid.TxId)
				if !txid.Less(tx, req.tx) { // tx is not older than req: must release
					s.sendPreempt(tx)
				}
			}
			return
		case heldExclusive:
			if txid.Less(req.tx, s.held.exclusiveTx) {
				s.sendPreempt(s.held.exclusiveTx)
			}
			return
		}
	}
}

func (s *Service) grant(req queuedLock) {
	st := newTxState()
	switch req.kind {
	case txid.Shared:
		if s.held.kind != heldShared {
			s.held.kind = heldShared
			s.held.shared = orderedmap.NewOrderedMap()
		}
		s.held.shared.Set(req.tx, st)
	case txid.Exclusive:
		s.held.kind = heldExclusive
		s.held.exclusiveTx = req.tx
		s.held.exclusive = st
	}
	s.sendLockGranted(req.tx)
}

func (s *Service) sendPreempt(tx txid.TxId) {
	if _, already := s.preempted[tx]; already {
		return
	}
	s.preempted[tx] = struct{}{}
	s.sendTo(tx, message.Preempt{Tx: tx})
}

func (s *Service) sendLockGranted(tx txid.TxId) {
	versions := make(map[string]basis.Version, len(s.cells))
	for name, cell := range s.cells {
		versions[name] = cell.Version()
	}
	s.sendTo(tx, message.LockGranted{Tx: tx, ServiceID: s.ID, Reactives: versions})
}

// txStateFor returns the staged state for tx, wherever it is held (Shared
// cohort or the sole Exclusive holder). It panics if tx holds no lock here:
// any message referencing a lock that was never granted is a protocol
// error.
func (s *Service) txStateFor(tx txid.TxId) *txState {
	switch s.held.kind {
	case heldExclusive:
		if s.held.exclusiveTx == tx {
			return s.held.exclusive
		}
	case heldShared:
		if v, ok := s.held.shared.Get(tx); ok {
			return v.(*txState)
		}
	}
	panic(fmt.Sprintf("protocol error: tx %s has no lock on service %s", tx, s.ID))
}

// exclusiveTxState is txStateFor restricted to the Exclusive holder; used
// by Write and Configure, which require an exclusive lock.
func (s *Service) exclusiveTxState(tx txid.TxId) *txState {
	if s.held.kind != heldExclusive || s.held.exclusiveTx != tx {
		panic(fmt.Sprintf("protocol error: tx %s attempted a write without an exclusive lock", tx))
	}
	return s.held.exclusive
}

// releaseLock removes tx from whichever held slot it occupies and reruns
// grantLocks. It returns the released txState.
func (s *Service) releaseLock(tx txid.TxId) *txState {
	delete(s.coordinators, tx)
	delete(s.preempted, tx)

	var st *txState
	switch s.held.kind {
	case heldExclusive:
		if s.held.exclusiveTx == tx {
			st = s.held.exclusive
			s.held.kind = heldNone
			s.held.exclusive = nil
		}
	case heldShared:
		if v, ok := s.held.shared.Get(tx); ok {
			st = v.(*txState)
			s.held.shared.Delete(tx)
			if s.held.shared.Len() == 0 {
				s.held.kind = heldNone
				s.held.shared = nil
			}
		}
	}
	s.grantLocks()
	return st
}
