package coordinator

import (
	"context"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/txid"
)

// Doer runs one `do` command's action expression.
type Doer struct {
	Tx          txid.TxId
	Service     message.Mailbox
	Mailbox     message.Mailbox
	ServiceName string

	Action      eval.Expr
	CallerBasis basis.Stamp
}

// Run drives the Doer to completion: lock, partial-evaluate the action
// (suspending on unknown reactives as many times as needed), write every
// assignment, and two-phase commit. The returned basis is the caller's new
// commit basis, to be threaded into the next command as its caller basis.
func (d *Doer) Run(ctx context.Context) (basis.Stamp, error) {
	if err := d.Service.Send(ctx, message.Lock{Tx: d.Tx, Kind: txid.Exclusive, ReplyTo: d.Mailbox}); err != nil {
		return basis.Empty, err
	}
	if _, err := awaitLockGranted(ctx, d.Mailbox); err != nil {
		return basis.Empty, err
	}

	snapshot := make(map[string]eval.Expr)
	expr := d.Action
	for {
		result, err := executeExpr(expr, snapshot)
		if err != nil {
			return basis.Empty, err
		}
		if result.Done {
			act, ok := result.Value.(*eval.Action)
			if !ok {
				panic("protocol error: do command did not evaluate to an action")
			}
			return d.finish(ctx, act, snapshot)
		}
		if err := d.requestNeeded(ctx, result.Needed, snapshot); err != nil {
			return basis.Empty, err
		}
		expr = result.Residual
	}
}

// requestNeeded issues one ReadValue per name not already in snapshot and
// blocks until every one of them has replied.
func (d *Doer) requestNeeded(ctx context.Context, needed map[string]struct{}, snapshot map[string]eval.Expr) error {
	pending := make(map[string]struct{}, len(needed))
	for name := range needed {
		if _, have := snapshot[name]; have {
			continue
		}
		pending[name] = struct{}{}
		ref := basis.ReactiveRef{Service: d.ServiceName, Name: name}
		if err := d.Service.Send(ctx, message.ReadValue{Tx: d.Tx, Reactive: ref, Basis: d.CallerBasis}); err != nil {
			return err
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return awaitReturnedValues(ctx, d.Service, d.Mailbox, d.Tx, pending, snapshot)
}

func (d *Doer) finish(ctx context.Context, act *eval.Action, snapshot map[string]eval.Expr) (basis.Stamp, error) {
	for _, a := range act.Assignments {
		value, err := eval.Eval(a.Value, snapshotReadFunc(snapshot))
		if err != nil {
			return basis.Empty, err
		}
		ref := basis.ReactiveRef{Service: d.ServiceName, Name: a.Dest}
		if err := d.Service.Send(ctx, message.Write{Tx: d.Tx, Reactive: ref, Value: value}); err != nil {
			return basis.Empty, err
		}
	}

	if err := d.Service.Send(ctx, message.PrepareCommit{Tx: d.Tx}); err != nil {
		return basis.Empty, err
	}
	prepared, err := awaitCommitPrepared(ctx, d.Service, d.Mailbox, d.Tx)
	if err != nil {
		return basis.Empty, err
	}
	if err := d.Service.Send(ctx, message.Commit{Tx: d.Tx, Basis: prepared.Basis}); err != nil {
		return basis.Empty, err
	}
	return prepared.Basis, nil
}

// executeExpr runs a Doer step: if expr is already an
// Action value, partial-evaluate each assignment's right-hand side
// independently (so one assignment's suspension doesn't block evaluating
// the others); otherwise partial-evaluate the whole expression (it must
// reduce to an Action before any assignment can run).
func executeExpr(expr eval.Expr, snapshot map[string]eval.Expr) (eval.PartialResult, error) {
	read := snapshotReadFunc(snapshot)
	act, ok := expr.(*eval.Action)
	if !ok {
		return eval.PartialEval(expr, nil, read)
	}

	residual := make([]eval.Assignment, len(act.Assignments))
	needed := make(map[string]struct{})
	allDone := true
	for i, a := range act.Assignments {
		r, err := eval.PartialEval(a.Value, act.Env, read)
		if err != nil {
			return eval.PartialResult{}, err
		}
		if r.Done {
			residual[i] = eval.Assignment{Dest: a.Dest, Value: r.Value}
			continue
		}
		allDone = false
		residual[i] = eval.Assignment{Dest: a.Dest, Value: r.Residual}
		for name := range r.Needed {
			needed[name] = struct{}{}
		}
	}
	next := &eval.Action{Assignments: residual, Env: act.Env}
	if allDone {
		return eval.PartialResult{Done: true, Value: next}, nil
	}
	return eval.PartialResult{Done: false, Residual: next, Needed: needed}, nil
}
