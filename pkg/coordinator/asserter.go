package coordinator

import (
	"context"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/txid"
)

// Asserter runs one `assert` command's boolean expression.
// It takes an Exclusive lock even though it never writes. A Shared lock
// would also suffice, but Exclusive keeps the coordinator skeleton
// identical across all three kinds.
type Asserter struct {
	Tx          txid.TxId
	Service     message.Mailbox
	Mailbox     message.Mailbox
	ServiceName string

	Expr        eval.Expr
	CallerBasis basis.Stamp
}

// Run drives the Asserter to completion. A failed assertion (the
// expression evaluates to false) still completes the transaction lifecycle
// normally — it is a read-only tx, so there is nothing to roll back — and
// is reported to the caller as ErrAssertionFailed alongside the commit
// basis.
func (a *Asserter) Run(ctx context.Context) (basis.Stamp, error) {
	if err := a.Service.Send(ctx, message.Lock{Tx: a.Tx, Kind: txid.Exclusive, ReplyTo: a.Mailbox}); err != nil {
		return basis.Empty, err
	}
	if _, err := awaitLockGranted(ctx, a.Mailbox); err != nil {
		return basis.Empty, err
	}

	needed := make(map[string]struct{})
	for ref := range eval.EvalReads(a.Expr, a.ServiceName) {
		needed[ref.Name] = struct{}{}
	}
	snapshot := make(map[string]eval.Expr, len(needed))
	for name := range needed {
		ref := basis.ReactiveRef{Service: a.ServiceName, Name: name}
		if err := a.Service.Send(ctx, message.ReadValue{Tx: a.Tx, Reactive: ref, Basis: a.CallerBasis}); err != nil {
			return basis.Empty, err
		}
	}
	if len(needed) > 0 {
		if err := awaitReturnedValues(ctx, a.Service, a.Mailbox, a.Tx, needed, snapshot); err != nil {
			return basis.Empty, err
		}
	}

	result, err := eval.Eval(a.Expr, snapshotReadFunc(snapshot))
	if err != nil {
		return basis.Empty, err
	}
	b, ok := result.(*eval.Bool)
	if !ok {
		panic("protocol error: assert expression did not evaluate to a boolean")
	}
	var assertErr error
	if !b.Value {
		assertErr = ErrAssertionFailed
	}

	if err := a.Service.Send(ctx, message.PrepareCommit{Tx: a.Tx}); err != nil {
		return basis.Empty, err
	}
	prepared, err := awaitCommitPrepared(ctx, a.Service, a.Mailbox, a.Tx)
	if err != nil {
		return basis.Empty, err
	}
	if err := a.Service.Send(ctx, message.Commit{Tx: a.Tx, Basis: prepared.Basis}); err != nil {
		return basis.Empty, err
	}
	return prepared.Basis, assertErr
}
