package driver

import (
	"context"
	"fmt"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/coordinator"
	"github.com/cuemby/meerkat/pkg/eval/exprparse"
	"github.com/cuemby/meerkat/pkg/message"
)

// RunTests drives every declared do/assert command, serially per service,
// in declaration order. A command's commit basis is threaded into the
// next command for the same service as its caller basis, so a later
// assertion observes everything an earlier do committed.
// RunTests stops at the first error, including a failed assertion.
func (rt *Runtime) RunTests(ctx context.Context) error {
	for serviceName, commands := range rt.tests {
		svc, ok := rt.Services[serviceName]
		if !ok {
			return fmt.Errorf("test commands reference unknown service %q", serviceName)
		}

		callerBasis := basis.Empty
		for i, cmd := range commands {
			var err error
			callerBasis, err = rt.runOne(ctx, serviceName, svc.Mailbox, callerBasis, cmd)
			if err != nil {
				return fmt.Errorf("service %s: command %d: %w", serviceName, i, err)
			}
		}
	}
	return nil
}

func (rt *Runtime) runOne(ctx context.Context, serviceName string, mb message.Mailbox, callerBasis basis.Stamp, cmd testCommand) (basis.Stamp, error) {
	switch {
	case cmd.Do != "":
		action, err := exprparse.Parse(cmd.Do)
		if err != nil {
			return basis.Empty, fmt.Errorf("parse do: %w", err)
		}
		doer := &coordinator.Doer{
			Tx:          rt.nextTx(),
			Service:     mb,
			Mailbox:     message.NewMailbox(8),
			ServiceName: serviceName,
			Action:      action,
			CallerBasis: callerBasis,
		}
		return doer.Run(ctx)
	case cmd.Assert != "":
		expr, err := exprparse.Parse(cmd.Assert)
		if err != nil {
			return basis.Empty, fmt.Errorf("parse assert: %w", err)
		}
		asserter := &coordinator.Asserter{
			Tx:          rt.nextTx(),
			Service:     mb,
			Mailbox:     message.NewMailbox(8),
			ServiceName: serviceName,
			Expr:        expr,
			CallerBasis: callerBasis,
		}
		return asserter.Run(ctx)
	default:
		return basis.Empty, fmt.Errorf("command has neither do nor assert")
	}
}
