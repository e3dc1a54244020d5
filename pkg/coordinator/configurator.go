package coordinator

import (
	"context"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/reactive"
	"github.com/cuemby/meerkat/pkg/txid"
)

// VariableInit pairs a variable's name with the expression that computes
// its initial value. The expression is evaluated once, against a snapshot
// read under the transaction's lock, and never stored on the Cell itself
// (reactive.Config.Expr is meaningless for a Variable; Cell.Write carries
// the evaluated value instead).
type VariableInit struct {
	Name string
	Init eval.Expr
}

// Configurator loads or updates a service's reactive set. It is used both
// for a program's initial load and for any later Configure a driver issues
// (e.g. a code update, not exercised by the YAML program format but kept
// general since a service's Configure handler supports it either way).
type Configurator struct {
	Tx          txid.TxId
	Service     message.Mailbox
	Mailbox     message.Mailbox
	ServiceName string

	// Variables and Defs describe the reactive set to install. Imports and
	// exports are not carried here: resolving an ExportDelta's destination
	// mailbox is a driver-level concern (it must know every service's
	// mailbox), so the driver issues a second, import/export-only Configure
	// directly once every service in the program is running.
	Variables []VariableInit
	Defs      map[string]eval.Expr // name -> definition expression

	CallerBasis basis.Stamp
}

// Run drives the Configurator to completion: lock, snapshot-read every
// variable initializer's free identifiers, evaluate them, install the
// reactive set, and two-phase commit.
func (c *Configurator) Run(ctx context.Context) (basis.Stamp, error) {
	if err := c.Service.Send(ctx, message.Lock{Tx: c.Tx, Kind: txid.Exclusive, ReplyTo: c.Mailbox}); err != nil {
		return basis.Empty, err
	}
	if _, err := awaitLockGranted(ctx, c.Mailbox); err != nil {
		return basis.Empty, err
	}

	needed := make(map[string]struct{})
	for _, v := range c.Variables {
		for ref := range eval.EvalReads(v.Init, c.ServiceName) {
			needed[ref.Name] = struct{}{}
		}
	}
	snapshot := make(map[string]eval.Expr, len(needed))
	if len(needed) > 0 {
		for name := range needed {
			ref := basis.ReactiveRef{Service: c.ServiceName, Name: name}
			if err := c.Service.Send(ctx, message.ReadValue{Tx: c.Tx, Reactive: ref, Basis: c.CallerBasis}); err != nil {
				return basis.Empty, err
			}
		}
		if err := awaitReturnedValues(ctx, c.Service, c.Mailbox, c.Tx, needed, snapshot); err != nil {
			return basis.Empty, err
		}
	}

	read := snapshotReadFunc(snapshot)
	initialValues := make(map[string]eval.Expr, len(c.Variables))
	for _, v := range c.Variables {
		value, err := eval.Eval(v.Init, read)
		if err != nil {
			return basis.Empty, err
		}
		initialValues[v.Name] = value
	}

	deltas := make([]message.ReactiveDelta, 0, len(c.Variables)+len(c.Defs))
	for _, v := range c.Variables {
		deltas = append(deltas, message.ReactiveDelta{Name: v.Name, Config: reactive.Config{Kind: reactive.KindVariable}})
	}
	for name, expr := range c.Defs {
		deltas = append(deltas, message.ReactiveDelta{Name: name, Config: reactive.Config{Kind: reactive.KindDefinition, Expr: expr}})
	}
	if err := c.Service.Send(ctx, message.Configure{Tx: c.Tx, Reactives: deltas}); err != nil {
		return basis.Empty, err
	}

	for _, v := range c.Variables {
		ref := basis.ReactiveRef{Service: c.ServiceName, Name: v.Name}
		if err := c.Service.Send(ctx, message.Write{Tx: c.Tx, Reactive: ref, Value: initialValues[v.Name]}); err != nil {
			return basis.Empty, err
		}
	}

	if err := c.Service.Send(ctx, message.PrepareCommit{Tx: c.Tx}); err != nil {
		return basis.Empty, err
	}
	prepared, err := awaitCommitPrepared(ctx, c.Service, c.Mailbox, c.Tx)
	if err != nil {
		return basis.Empty, err
	}

	if err := c.Service.Send(ctx, message.Commit{Tx: c.Tx, Basis: prepared.Basis}); err != nil {
		return basis.Empty, err
	}
	return prepared.Basis, nil
}
