package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/kgpgpt/config"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
)

// version is overridden at link time.
var version = "dev"

type rootOptions struct {
	envFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "kgpgpt",
		Short:         "KGPGPT - retrieval-augmented assistant for IIT Kharagpur",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// stdout belongs to the command output; logs go to stderr.
			logging.SetLogger(logging.New(os.Stderr).With("service", "kgpgpt"))
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to the environment variables file")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newAskCmd(opts),
		newIngestCmd(opts),
	)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	return root
}
