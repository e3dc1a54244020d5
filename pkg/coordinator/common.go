package coordinator

import (
	"context"
	"fmt"

	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/txid"
)

// ErrPreempted is returned by a coordinator's Run when the service asked it
// to release its lock. The caller (typically the driver) decides whether
// to retry under a fresh TxId.
var ErrPreempted = fmt.Errorf("coordinator: lock preempted")

// ErrAssertionFailed is returned by Asserter.Run when the asserted
// expression evaluates to false rather than true.
var ErrAssertionFailed = fmt.Errorf("assertion failed")

func recv(ctx context.Context, mb message.Mailbox) (message.Message, error) {
	select {
	case m := <-mb:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// awaitLockGranted blocks for the service's reply to an already-sent Lock.
// A service only ever preempts a lock it currently holds, never a queued
// request, so anything other than LockGranted here is a protocol error.
func awaitLockGranted(ctx context.Context, mb message.Mailbox) (message.LockGranted, error) {
	m, err := recv(ctx, mb)
	if err != nil {
		return message.LockGranted{}, err
	}
	granted, ok := m.(message.LockGranted)
	if !ok {
		panic(fmt.Sprintf("protocol error: coordinator expected LockGranted, got %T", m))
	}
	return granted, nil
}

// abort sends Abort for tx and reports the preemption to the caller.
func abort(ctx context.Context, svc message.Mailbox, tx txid.TxId) error {
	_ = svc.Send(ctx, message.Abort{Tx: tx})
	return ErrPreempted
}

// awaitReturnedValues collects exactly one ReturnedValue per name in names,
// merging each into values keyed by reactive name. A Preempt received while
// waiting aborts the transaction.
func awaitReturnedValues(ctx context.Context, svc, mb message.Mailbox, tx txid.TxId, names map[string]struct{}, values map[string]eval.Expr) error {
	remaining := len(names)
	for remaining > 0 {
		m, err := recv(ctx, mb)
		if err != nil {
			return err
		}
		switch v := m.(type) {
		case message.ReturnedValue:
			e, ok := v.Value.Value.(eval.Expr)
			if !ok {
				panic(fmt.Sprintf("protocol error: reactive %s returned a non-expression value", v.Reactive))
			}
			values[v.Reactive.Name] = e
			remaining--
		case message.Preempt:
			return abort(ctx, svc, tx)
		default:
			panic(fmt.Sprintf("protocol error: coordinator expected ReturnedValue, got %T", m))
		}
	}
	return nil
}

// awaitCommitPrepared blocks for the service's reply to an already-sent
// PrepareCommit, handling a Preempt that arrives before it.
func awaitCommitPrepared(ctx context.Context, svc, mb message.Mailbox, tx txid.TxId) (message.CommitPrepared, error) {
	for {
		m, err := recv(ctx, mb)
		if err != nil {
			return message.CommitPrepared{}, err
		}
		switch v := m.(type) {
		case message.CommitPrepared:
			return v, nil
		case message.Preempt:
			return message.CommitPrepared{}, abort(ctx, svc, tx)
		default:
			panic(fmt.Sprintf("protocol error: coordinator expected CommitPrepared, got %T", m))
		}
	}
}

// snapshotReadFunc turns a name->Expr snapshot into an eval.ReadFunc.
func snapshotReadFunc(snapshot map[string]eval.Expr) eval.ReadFunc {
	return func(name string) (eval.Expr, bool) {
		e, ok := snapshot[name]
		return e, ok
	}
}
