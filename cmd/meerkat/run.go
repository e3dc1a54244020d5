package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/meerkat/pkg/driver"
)

var runCmd = &cobra.Command{
	Use:   "run <program.yaml>",
	Short: "Load a program and run its declared do/assert tests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read program: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		rt, err := driver.LoadProgram(ctx, doc)
		if err != nil {
			return fmt.Errorf("load program: %w", err)
		}
		defer rt.Stop()

		if err := rt.RunTests(ctx); err != nil {
			return fmt.Errorf("test run: %w", err)
		}
		fmt.Println("all tests passed")
		return nil
	},
}
