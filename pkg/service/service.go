package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/log"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/metrics"
	"github.com/cuemby/meerkat/pkg/reactive"
	"github.com/cuemby/meerkat/pkg/txid"
)

// importEntry is one cross-service citation this service consumes: the
// remote root it points at, and which local reactives (by name) currently
// read it.
type importEntry struct {
	ref       basis.ReactiveRef
	importers map[string]struct{}
}

// Service is the per-service actor.
type Service struct {
	ID      string
	Mailbox message.Mailbox

	cells      map[string]*reactive.Cell
	iterations map[string]basis.Iteration

	subscriptions   map[string]map[string]struct{}        // producer name -> local consumer names
	imports         map[string]*importEntry               // local import name -> entry
	importsBySender map[basis.ReactiveRef][]string         // remote ref -> local import names bound to it
	exports         map[string]*message.Fanout             // local reactive name -> remote importer mailboxes
	exportedBy      map[string]map[string]message.Mailbox  // local reactive name -> importer service id -> mailbox

	topoOrder []string
	rootSets  map[string]map[basis.ReactiveRef]struct{}

	queued       []queuedLock
	held         heldState
	coordinators map[txid.TxId]message.Mailbox
	preempted    map[txid.TxId]struct{}

	log zerolog.Logger
}

// New constructs an empty Service: no reactives, no imports or exports.
// Configure messages populate it.
func New(id string, mailboxSize int) *Service {
	metrics.ServicesTotal.Inc()
	return &Service{
		ID:              id,
		Mailbox:         message.NewMailbox(mailboxSize),
		cells:           make(map[string]*reactive.Cell),
		iterations:      make(map[string]basis.Iteration),
		subscriptions:   make(map[string]map[string]struct{}),
		imports:         make(map[string]*importEntry),
		importsBySender: make(map[basis.ReactiveRef][]string),
		exports:         make(map[string]*message.Fanout),
		exportedBy:      make(map[string]map[string]message.Mailbox),
		rootSets:        make(map[string]map[basis.ReactiveRef]struct{}),
		coordinators:    make(map[txid.TxId]message.Mailbox),
		preempted:       make(map[txid.TxId]struct{}),
		log:             log.WithService(id),
	}
}

// Run processes messages from Mailbox until ctx is cancelled or a protocol
// error panics the actor. A recovered panic is logged and returned as an
// error so a supervising errgroup can end the program: protocol errors are
// engine or coordinator bugs, not conditions the actor can recover from.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("service actor died")
			err = fmt.Errorf("service %s: %v", s.ID, r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-s.Mailbox:
			s.handle(m)
		}
	}
}

func (s *Service) handle(m message.Message) {
	switch msg := m.(type) {
	case message.Lock:
		s.handleLock(msg)
	case message.Abort:
		s.handleAbort(msg)
	case message.ReadValue:
		s.handleReadValue(msg)
	case message.Write:
		s.handleWrite(msg)
	case message.Configure:
		s.handleConfigure(msg)
	case message.PrepareCommit:
		s.handlePrepareCommit(msg)
	case message.Commit:
		s.handleCommit(msg)
	case message.Propagate:
		s.handlePropagate(msg)
	case message.ReadConfiguration:
		s.handleReadConfiguration(msg)
	default:
		panic(fmt.Sprintf("protocol error: service %s received unexpected message %T", s.ID, m))
	}
}

// sendTo delivers msg to whatever mailbox is registered for tx.
func (s *Service) sendTo(tx txid.TxId, msg message.Message) {
	to, ok := s.coordinators[tx]
	if !ok {
		return
	}
	// The send uses a background context, so a full coordinator mailbox
	// blocks the actor loop until it drains; mailboxes are sized generously
	// and a full one indicates a real bug upstream.
	_ = to.Send(context.Background(), msg)
}

func (s *Service) localCell(name string) *reactive.Cell {
	cell, ok := s.cells[name]
	if !ok {
		panic(fmt.Sprintf("protocol error: service %s has no reactive %q", s.ID, name))
	}
	return cell
}

// rootsLookup answers a reactive.RootsLookup query. Every ref passed in
// comes from Cell.Inputs(), which is always locally-shaped (Service == s.ID)
// even for an import alias, so there is no cross-service case to handle
// here: the import's actual remote root lives in s.rootSets too, installed
// by rebuildTopoAndRoots.
func (s *Service) rootsLookup(ref basis.ReactiveRef) map[basis.ReactiveRef]struct{} {
	return s.rootSets[ref.Name]
}

func (s *Service) nextIteration(name string) basis.Iteration {
	return s.iterations[name] + 1
}

func (s *Service) handleReadValue(m message.ReadValue) {
	st := s.txStateFor(m.Tx)
	if slot, exists := st.reads[m.Reactive]; exists && slot.hasPending && !slot.hasComplete {
		panic(fmt.Sprintf("protocol error: tx %s issued ReadValue for %s while one is still pending", m.Tx, m.Reactive))
	}

	cell := s.localCell(m.Reactive.Name)
	val, ok := cell.Value()
	roots := s.rootSets[m.Reactive.Name]
	if ok && m.Basis.PrecEqRestrictedTo(val.Basis, roots) {
		prior := st.reads[m.Reactive]
		complete := val.Basis
		if prior != nil {
			complete = complete.MergeFrom(prior.complete)
		}
		st.reads[m.Reactive] = &readSlot{complete: complete, hasComplete: true}
		s.sendTo(m.Tx, message.ReturnedValue{Tx: m.Tx, ServiceID: s.ID, Reactive: m.Reactive, Value: val})
		return
	}
	st.reads[m.Reactive] = &readSlot{pending: m.Basis, hasPending: true}
}

func (s *Service) handleWrite(m message.Write) {
	st := s.exclusiveTxState(m.Tx)
	if st.writes == nil {
		st.writes = make(map[string]basis.Value)
	}
	st.writes[m.Reactive.Name] = m.Value
}

func (s *Service) handleConfigure(m message.Configure) {
	st := s.exclusiveTxState(m.Tx)
	st.importsDelta = append(st.importsDelta, m.Imports...)
	st.reactivesDelta = append(st.reactivesDelta, m.Reactives...)
	st.exportsDelta = append(st.exportsDelta, m.Exports...)
}

func (s *Service) handleReadConfiguration(m message.ReadConfiguration) {
	imports := make(map[string]basis.ReactiveRef, len(s.imports))
	for name, entry := range s.imports {
		imports[name] = entry.ref
	}
	reactives := make(map[string]reactive.Config, len(s.cells))
	for name, cell := range s.cells {
		reactives[name] = reactive.Config{Kind: cell.Kind(), Expr: cell.Expr()}
	}
	exports := make(map[string][]string, len(s.exportedBy))
	for name, importers := range s.exportedBy {
		list := make([]string, 0, len(importers))
		for id := range importers {
			list = append(list, id)
		}
		exports[name] = list
	}
	s.sendTo(m.Tx, message.ReturnedConfiguration{Tx: m.Tx, Imports: imports, Reactives: reactives, Exports: exports})
}

func (s *Service) handleAbort(m message.Abort) {
	s.releaseLock(m.Tx)
}
