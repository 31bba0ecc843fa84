package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentops/internal/database"
	"contentops/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, database, secrets and backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var pinger preflight.Pinger
			db, openErr := database.Open(cfg)
			if openErr == nil {
				defer db.Close()
				pinger = db
			}
			results := preflight.RunAll(commandCtx(cmd), cfg, pinger)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Database", Detail: openErr.Error()})
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "ok"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				printTable(cmd.OutOrStdout(),
					[]column{{header: "Check"}, {header: "Result"}, {header: "Detail"}},
					rows, "No checks ran")
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
