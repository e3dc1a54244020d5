package driver

import (
	"context"
	"fmt"

	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/txid"
)

// Inspect asks a running service for its current configuration (imports,
// reactives and their defining expressions, exports) without writing
// anything: Lock Exclusive, ReadConfiguration, Abort. Used by `meerkat
// graph` to render a service's dependency shape.
func (rt *Runtime) Inspect(ctx context.Context, serviceName string) (message.ReturnedConfiguration, error) {
	svc, ok := rt.Services[serviceName]
	if !ok {
		return message.ReturnedConfiguration{}, fmt.Errorf("unknown service %q", serviceName)
	}

	tx := rt.nextTx()
	reply := message.NewMailbox(8)

	if err := svc.Mailbox.Send(ctx, message.Lock{Tx: tx, Kind: txid.Exclusive, ReplyTo: reply}); err != nil {
		return message.ReturnedConfiguration{}, err
	}
	if m, err := recvOne(ctx, reply); err != nil {
		return message.ReturnedConfiguration{}, err
	} else if _, ok := m.(message.LockGranted); !ok {
		return message.ReturnedConfiguration{}, fmt.Errorf("inspect %s: expected LockGranted, got %T", serviceName, m)
	}

	if err := svc.Mailbox.Send(ctx, message.ReadConfiguration{Tx: tx}); err != nil {
		return message.ReturnedConfiguration{}, err
	}
	m, err := recvOne(ctx, reply)
	if err != nil {
		return message.ReturnedConfiguration{}, err
	}
	cfg, ok := m.(message.ReturnedConfiguration)
	if !ok {
		return message.ReturnedConfiguration{}, fmt.Errorf("inspect %s: expected ReturnedConfiguration, got %T", serviceName, m)
	}

	if err := svc.Mailbox.Send(ctx, message.Abort{Tx: tx}); err != nil {
		return message.ReturnedConfiguration{}, err
	}
	return cfg, nil
}
