package service

import (
	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/message"
)

// readSlot tracks one (tx, reactive) read. pending is set while waiting for
// the reactive to become new enough; complete is set once a value has been
// returned. Both cannot be pending at once: a second ReadValue while
// pending && !complete is a protocol error.
type readSlot struct {
	pending     basis.Stamp
	hasPending  bool
	complete    basis.Stamp
	hasComplete bool
}

// txState is the staged, not-yet-visible state a transaction accumulates
// under its lock: completed/pending reads (legal under Shared or Exclusive),
// and, for an Exclusive holder, staged writes and configuration deltas.
type txState struct {
	reads map[basis.ReactiveRef]*readSlot

	writes             map[string]basis.Value
	importsDelta       []message.ImportDelta
	reactivesDelta     []message.ReactiveDelta
	exportsDelta       []message.ExportDelta
	preparedIterations map[string]basis.Iteration
}

func newTxState() *txState {
	return &txState{reads: make(map[basis.ReactiveRef]*readSlot)}
}

func (t *txState) completeBasis() basis.Stamp {
	b := basis.Empty
	for _, slot := range t.reads {
		if slot.hasComplete {
			b = b.MergeFrom(slot.complete)
		}
	}
	return b
}
