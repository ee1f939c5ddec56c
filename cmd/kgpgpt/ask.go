package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

type askOutput struct {
	Response         string           `json:"response"`
	Confidence       float64          `json:"confidence"`
	Sources          []string         `json:"sources"`
	Intent           string           `json:"intent"`
	IsSimpleResponse bool             `json:"isSimpleResponse"`
	AgentTimeline    map[string]int64 `json:"agentTimeline"`
}

func newAskCmd(root *rootOptions) *cobra.Command {
	var noWeb bool
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer one query and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			req := &agentic.Request{
				Query:           strings.Join(args, " "),
				EnableWebSearch: !noWeb,
				IsFirstMessage:  true,
			}
			mctx := middleware.NewContext(ctx, req)
			mctx.ClientID = "cli"
			err = newChain(root.cfg, nil).Execute(mctx, func(mc *middleware.Context) error {
				res, err := a.orchestrator.Process(mc.Context(), *mc.Request)
				mc.Result = res
				return err
			})
			if err != nil {
				return err
			}

			res := mctx.Result
			out := askOutput{
				Response:         res.Response.Response,
				Confidence:       res.Response.Confidence,
				Sources:          res.Response.Sources,
				Intent:           string(res.QueryAnalysis.Intent),
				IsSimpleResponse: res.IsSimpleResponse,
				AgentTimeline:    res.AgentTimeline.Millis(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&noWeb, "no-web", false, "Disable the web-search fallback")
	return cmd
}
