package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/kgpgpt/conversation/store"
	"github.com/sweetpotato0/kgpgpt/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			history, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			a.closers.add(history.Close)

			srv, err := server.New(a.orchestrator, server.Options{
				RequestTimeout: cfg.Server.RequestTimeout,
				HealthCacheTTL: cfg.Server.HealthCacheTTL,
				Chain:          newChain(cfg, history),
				Store:          history,
				Summary:        cfg.Summary(),
				Metrics:        a.metrics,
			})
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}
