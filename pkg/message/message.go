package message

import (
	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/reactive"
	"github.com/cuemby/meerkat/pkg/txid"
)

// Message is the closed set of payloads carried on a Mailbox. Every message
// type in this package implements it; nothing outside the package should.
type Message interface {
	isMessage()
}

// Lock requests a lock of the given kind on behalf of tx. A duplicate
// request for the same tx against the same service is a protocol error.
// ReplyTo is registered by the service for the lifetime of tx: every later
// reply (LockGranted, Preempt, ReturnedValue, CommitPrepared, ...) for this
// tx is sent there, so later messages from the coordinator do not need to
// repeat it.
type Lock struct {
	Tx      txid.TxId
	Kind    txid.Lock
	ReplyTo Mailbox
}

// LockGranted confirms a lock and snapshots every reactive's current
// Version, letting the coordinator detect configuration drift.
type LockGranted struct {
	Tx        txid.TxId
	ServiceID string
	Reactives map[string]basis.Version
}

// Preempt asks the coordinator holding tx to release its lock. It is
// advisory: no state changes until the coordinator replies with Abort (or
// finishes and releases normally).
type Preempt struct {
	Tx txid.TxId
}

// Abort discards every staged read, write and configuration delta for tx
// and releases its lock.
type Abort struct {
	Tx txid.TxId
}

// ReadValue asks for reactive's value, no older than basis restricted to
// its root set. A second ReadValue for the same (tx, reactive) while the
// first is still pending is a protocol error.
type ReadValue struct {
	Tx       txid.TxId
	Reactive basis.ReactiveRef
	Basis    basis.Stamp
}

// ReturnedValue answers a ReadValue.
type ReturnedValue struct {
	Tx        txid.TxId
	ServiceID string
	Reactive  basis.ReactiveRef
	Value     basis.StampedValue
}

// Write stages a value for reactive under tx's exclusive lock. Not visible
// until Commit.
type Write struct {
	Tx       txid.TxId
	Reactive basis.ReactiveRef
	Value    basis.Value
}

// ReadConfiguration asks the service to describe its current imports,
// per-reactive input sets and exports, keyed by reactive name.
type ReadConfiguration struct {
	Tx txid.TxId
}

// ReturnedConfiguration answers a ReadConfiguration.
type ReturnedConfiguration struct {
	Tx        txid.TxId
	Imports   map[string]basis.ReactiveRef
	Reactives map[string]reactive.Config
	Exports   map[string][]string
}

// ImportDelta adds, replaces or removes one import entry (a cross-service
// reactive this service's reactives read from).
type ImportDelta struct {
	Name   string
	Ref    basis.ReactiveRef
	Remove bool
}

// ReactiveDelta creates, reconfigures or removes a local reactive.
type ReactiveDelta struct {
	Name   string
	Config reactive.Config
	Remove bool
}

// ExportDelta adds or removes one remote importer of a local reactive.
// Mailbox is the importing service's own mailbox, resolved by the driver
// at program-load time; the service only needs it to subscribe/unsubscribe
// its per-reactive Fanout.
type ExportDelta struct {
	Name     string
	Importer string
	Mailbox  Mailbox
	Remove   bool
}

// Configure stages a configuration delta under tx's exclusive lock.
type Configure struct {
	Tx        txid.TxId
	Imports   []ImportDelta
	Reactives []ReactiveDelta
	Exports   []ExportDelta
}

// PrepareCommit asks the service to fold its completed reads into a working
// basis, compute prepared iterations for every touched reactive, and reply
// with CommitPrepared.
type PrepareCommit struct {
	Tx txid.TxId
}

// CommitPrepared answers PrepareCommit with the folded basis the
// coordinator must echo back in Commit.
type CommitPrepared struct {
	Tx    txid.TxId
	Basis basis.Stamp
}

// Commit makes every staged read, write and configuration delta for tx
// visible, installs prepared iterations, propagates, and releases the
// lock.
type Commit struct {
	Tx    txid.TxId
	Basis basis.Stamp
}

// Propagate carries one reactive's new value from the service that owns it
// to a service that imports it.
type Propagate struct {
	Sender basis.ReactiveRef
	Value  basis.StampedValue
}

// Unreachable wraps a message that could not be delivered to its
// destination actor.
type Unreachable struct {
	Wrapped Message
}

func (Lock) isMessage()                  {}
func (LockGranted) isMessage()            {}
func (Preempt) isMessage()               {}
func (Abort) isMessage()                 {}
func (ReadValue) isMessage()             {}
func (ReturnedValue) isMessage()         {}
func (Write) isMessage()                 {}
func (ReadConfiguration) isMessage()     {}
func (ReturnedConfiguration) isMessage() {}
func (Configure) isMessage()             {}
func (PrepareCommit) isMessage()         {}
func (CommitPrepared) isMessage()        {}
func (Commit) isMessage()                {}
func (Propagate) isMessage()             {}
func (Unreachable) isMessage()           {}
