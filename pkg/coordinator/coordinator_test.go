package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/meerkat/pkg/basis"
	"github.com/cuemby/meerkat/pkg/eval"
	"github.com/cuemby/meerkat/pkg/eval/exprparse"
	"github.com/cuemby/meerkat/pkg/message"
	"github.com/cuemby/meerkat/pkg/service"
	"github.com/cuemby/meerkat/pkg/txid"
)

func startService(t *testing.T, id string) *service.Service {
	t.Helper()
	s := service.New(id, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("service did not stop")
		}
	})
	return s
}

func mustParseExpr(t *testing.T, src string) eval.Expr {
	t.Helper()
	e, err := exprparse.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return e
}

func TestConfiguratorDoerAsserterRoundTrip(t *testing.T) {
	svc := startService(t, "main")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &Configurator{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 1, CoordinatorID: "load"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Variables: []VariableInit{
			{Name: "x", Init: mustParseExpr(t, "2")},
			{Name: "y", Init: mustParseExpr(t, "3")},
		},
		Defs: map[string]eval.Expr{"z": mustParseExpr(t, "x + y")},
	}
	if _, err := cfg.Run(ctx); err != nil {
		t.Fatalf("Configurator.Run: %v", err)
	}

	doer := &Doer{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 2, CoordinatorID: "do1"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Action:      mustParseExpr(t, "{ x <- 10 }"),
	}
	commitBasis, err := doer.Run(ctx)
	if err != nil {
		t.Fatalf("Doer.Run: %v", err)
	}

	asserter := &Asserter{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 3, CoordinatorID: "assert1"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Expr:        mustParseExpr(t, "z == 13"),
		CallerBasis: commitBasis,
	}
	if _, err := asserter.Run(ctx); err != nil {
		t.Fatalf("Asserter.Run: %v", err)
	}
}

func TestAsserterReportsFailedAssertion(t *testing.T) {
	svc := startService(t, "main")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &Configurator{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 1, CoordinatorID: "load"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Variables:   []VariableInit{{Name: "x", Init: mustParseExpr(t, "1")}},
	}
	if _, err := cfg.Run(ctx); err != nil {
		t.Fatalf("Configurator.Run: %v", err)
	}

	asserter := &Asserter{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 2, CoordinatorID: "assert1"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Expr:        mustParseExpr(t, "x == 2"),
		CallerBasis: basis.Empty,
	}
	if _, err := asserter.Run(ctx); err != ErrAssertionFailed {
		t.Fatalf("Asserter.Run err = %v, want ErrAssertionFailed", err)
	}
}

func TestDoerSuspendsOnUnknownReactiveThenCompletes(t *testing.T) {
	svc := startService(t, "main")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &Configurator{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 1, CoordinatorID: "load"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Variables: []VariableInit{
			{Name: "a", Init: mustParseExpr(t, "5")},
			{Name: "b", Init: mustParseExpr(t, "0")},
		},
	}
	if _, err := cfg.Run(ctx); err != nil {
		t.Fatalf("Configurator.Run: %v", err)
	}

	doer := &Doer{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 2, CoordinatorID: "do1"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Action:      mustParseExpr(t, "{ b <- a + a }"),
	}
	commitBasis, err := doer.Run(ctx)
	if err != nil {
		t.Fatalf("Doer.Run: %v", err)
	}

	asserter := &Asserter{
		Tx:          txid.TxId{Priority: txid.High, Timestamp: 3, CoordinatorID: "assert1"},
		Service:     svc.Mailbox,
		Mailbox:     message.NewMailbox(8),
		ServiceName: "main",
		Expr:        mustParseExpr(t, "b == 10"),
		CallerBasis: commitBasis,
	}
	if _, err := asserter.Run(ctx); err != nil {
		t.Fatalf("Asserter.Run: %v", err)
	}
}
