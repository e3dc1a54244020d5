package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/coordinator"
	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/eval/exprparse"
	"github.com/cuemby/meerkat/pkg/log"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/service"
	"github.com/cuemby/meerkat/pkg/txid"
)

// Runtime is a loaded program: one running service.Service per declared
// service, supervised by an errgroup so a protocol panic in any actor ends
// the whole program.
type Runtime struct {
	Services map[string]*service.Service

	tests map[string][]testCommand

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	clock  *txid.Clock
}

// LoadProgram parses a YAML program document, spawns one service actor per
// declared service, and installs every service's variables, definitions,
// imports and exports. It returns once every service has acknowledged its
// configuration; actor goroutines keep running until the returned
// Runtime's Stop is called or ctx is cancelled.
func LoadProgram(ctx context.Context, doc []byte) (*Runtime, error) {
	var pf programFile
	if err := yaml.Unmarshal(doc, &pf); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)

	rt := &Runtime{
		Services: make(map[string]*service.Service, len(pf.Services)),
		tests:    pf.Tests,
		group:    group,
		ctx:      gctx,
		cancel:   cancel,
		clock:    txid.NewClock(),
	}

	for name := range pf.Services {
		svc := service.New(name, 64)
		rt.Services[name] = svc
		group.Go(func() error { return svc.Run(gctx) })
	}

	if err := rt.configureLocal(gctx, pf.Services); err != nil {
		cancel()
		return nil, err
	}
	if err := rt.configureImportsExports(gctx, pf.Services); err != nil {
		cancel()
		return nil, err
	}
	return rt, nil
}

// nextTx mints a fresh high-priority TxId for a driver-originated
// transaction (configuration load, do/assert commands). High priority
// keeps driver-issued transactions from starving behind a misbehaving
// low-priority client in a larger program.
func (rt *Runtime) nextTx() txid.TxId {
	return txid.TxId{Priority: txid.High, Timestamp: rt.clock.Now(), CoordinatorID: uuid.New().String()}
}

// configureLocal installs each service's variables and definitions via a
// Configurator, independently per service.
func (rt *Runtime) configureLocal(ctx context.Context, specs map[string]serviceSpec) error {
	for name, spec := range specs {
		svc := rt.Services[name]

		vars := make([]coordinator.VariableInit, 0, len(spec.Vars))
		for varName, src := range spec.Vars {
			e, err := exprparse.Parse(src)
			if err != nil {
				return fmt.Errorf("service %s: var %s: %w", name, varName, err)
			}
			vars = append(vars, coordinator.VariableInit{Name: varName, Init: e})
		}

		defs := make(map[string]eval.Expr, len(spec.Defs))
		for defName, src := range spec.Defs {
			e, err := exprparse.Parse(src)
			if err != nil {
				return fmt.Errorf("service %s: def %s: %w", name, defName, err)
			}
			defs[defName] = e
		}

		cfg := &coordinator.Configurator{
			Tx:          rt.nextTx(),
			Service:     svc.Mailbox,
			Mailbox:     message.NewMailbox(8),
			ServiceName: name,
			Variables:   vars,
			Defs:        defs,
			CallerBasis: basis.Empty,
		}
		if _, err := cfg.Run(ctx); err != nil {
			return fmt.Errorf("configure service %s: %w", name, err)
		}
		log.WithService(name).Info().Msg("service configured")
	}
	return nil
}

// configureImportsExports issues a second, import/export-only Configure per
// service once every service's mailbox is known: resolving an
// ExportDelta.Mailbox requires the driver's program-wide view, which a
// single-service Configurator does not have (see DESIGN.md).
func (rt *Runtime) configureImportsExports(ctx context.Context, specs map[string]serviceSpec) error {
	exportsByOwner := make(map[string][]message.ExportDelta)

	for name, spec := range specs {
		var imports []message.ImportDelta
		for alias, ref := range spec.Imports {
			_, ok := rt.Services[ref.Service]
			if !ok {
				return fmt.Errorf("service %s: import %s: unknown service %q", name, alias, ref.Service)
			}
			ownerSpec, ok := specs[ref.Service]
			if !ok || !contains(ownerSpec.Exports, ref.Name) {
				return fmt.Errorf("service %s: import %s: service %q does not export %q", name, alias, ref.Service, ref.Name)
			}
			imports = append(imports, message.ImportDelta{
				Name: alias,
				Ref:  basis.ReactiveRef{Service: ref.Service, Name: ref.Name},
			})
			exportsByOwner[ref.Service] = append(exportsByOwner[ref.Service], message.ExportDelta{
				Name:     ref.Name,
				Importer: name,
				Mailbox:  rt.Services[name].Mailbox,
			})
		}
		if len(imports) == 0 {
			continue
		}
		if err := rt.sendConfigure(ctx, name, message.Configure{Imports: imports}); err != nil {
			return err
		}
	}

	for owner, deltas := range exportsByOwner {
		if err := rt.sendConfigure(ctx, owner, message.Configure{Exports: deltas}); err != nil {
			return err
		}
	}
	return nil
}

// sendConfigure drives one bare Configure (no variable initializers) to
// completion against the named service: lock, stage the delta, prepare,
// commit. It is the import/export counterpart of Configurator.Run, kept
// separate because resolving mailboxes is a driver concern, not something
// a single-service Configurator can do on its own (see DESIGN.md).
func (rt *Runtime) sendConfigure(ctx context.Context, serviceName string, cfg message.Configure) error {
	svc := rt.Services[serviceName]
	tx := rt.nextTx()
	reply := message.NewMailbox(8)

	if err := svc.Mailbox.Send(ctx, message.Lock{Tx: tx, Kind: txid.Exclusive, ReplyTo: reply}); err != nil {
		return err
	}
	if m, err := recvOne(ctx, reply); err != nil {
		return err
	} else if _, ok := m.(message.LockGranted); !ok {
		return fmt.Errorf("configure %s: expected LockGranted, got %T", serviceName, m)
	}

	cfg.Tx = tx
	if err := svc.Mailbox.Send(ctx, cfg); err != nil {
		return err
	}
	if err := svc.Mailbox.Send(ctx, message.PrepareCommit{Tx: tx}); err != nil {
		return err
	}
	m, err := recvOne(ctx, reply)
	if err != nil {
		return err
	}
	prepared, ok := m.(message.CommitPrepared)
	if !ok {
		return fmt.Errorf("configure %s: expected CommitPrepared, got %T", serviceName, m)
	}
	return svc.Mailbox.Send(ctx, message.Commit{Tx: tx, Basis: prepared.Basis})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func recvOne(ctx context.Context, mb message.Mailbox) (message.Message, error) {
	select {
	case m := <-mb:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop cancels every service actor and waits for them to return.
func (rt *Runtime) Stop() error {
	rt.cancel()
	err := rt.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
