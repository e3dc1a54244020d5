package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/meerkat/pkg/driver"
	"github.com/cuemby/meerkat/pkg/log"
	"github.com/cuemby/meerkat/pkg/metrics"
)

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <program.yaml>",
	Short: "Run a program's tests, then keep its services alive and export metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read program: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		metrics.SetVersion("0.1.0")
		metrics.RegisterComponent("driver", false, "loading program")

		rt, err := driver.LoadProgram(ctx, doc)
		if err != nil {
			metrics.RegisterComponent("driver", false, "load failed: "+err.Error())
			return fmt.Errorf("load program: %w", err)
		}
		defer rt.Stop()

		if err := rt.RunTests(ctx); err != nil {
			metrics.RegisterComponent("driver", false, "test run failed: "+err.Error())
			return fmt.Errorf("test run: %w", err)
		}
		metrics.RegisterComponent("driver", true, "tests passed")
		fmt.Println("all tests passed, serving metrics on", serveMetricsAddr)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		server := &http.Server{Addr: serveMetricsAddr, Handler: mux}

		go func() {
			<-ctx.Done()
			_ = server.Close()
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error().Err(err).Msg("metrics server failed")
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on")
}
