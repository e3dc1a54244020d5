package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/meerkat/pkg/driver"
	"github.com/cuemby/meerkat/pkg/graph"
)

var graphServiceFlag string

var graphCmd = &cobra.Command{
	Use:   "graph <program.yaml>",
	Short: "Print a service's reactive dependency tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if graphServiceFlag == "" {
			return fmt.Errorf("--service is required")
		}

		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read program: %w", err)
		}

		ctx := context.Background()
		rt, err := driver.LoadProgram(ctx, doc)
		if err != nil {
			return fmt.Errorf("load program: %w", err)
		}
		defer rt.Stop()

		cfg, err := rt.Inspect(ctx, graphServiceFlag)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", graphServiceFlag, err)
		}

		fmt.Println(graph.Render(graphServiceFlag, cfg))
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphServiceFlag, "service", "", "service to render")
}
