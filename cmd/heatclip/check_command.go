package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"heatclip/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, binaries, Chrome and API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.AllStages())
			if online {
				results = append(results, preflight.CheckOpenAI(cmd.Context(), cfg.LLM.BaseURL, cfg.LLM.APIKey))
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
					if r.Optional {
						status = "warn"
					}
				}
				rows = append(rows, []string{r.Name, status, yesNo(!r.Optional), r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Required", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required checks failed", len(failed))
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also call the OpenAI API to verify the key")
	return cmd
}
