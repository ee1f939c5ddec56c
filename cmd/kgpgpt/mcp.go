package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/kgpgpt/mcp"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask and health tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			srv, err := mcp.NewServer(a.orchestrator, newChain(root.cfg, nil), version)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
