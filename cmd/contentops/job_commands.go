package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"contentops/internal/daemonrun"
	"contentops/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage background jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var kinds, statuses []string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.Filter{Limit: limit}
			var problems []error
			for _, raw := range kinds {
				kind, ok := queue.ParseKind(raw)
				if !ok {
					problems = append(problems, fmt.Errorf("unknown job kind %q", raw))
					continue
				}
				filter.Kinds = append(filter.Kinds, kind)
			}
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					problems = append(problems, fmt.Errorf("unknown job status %q", raw))
					continue
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			if err := errors.Join(problems...); err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				jobs, err := rt.Queue.List(c, filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, jobs)
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					rows = append(rows, []string{j.ID, string(j.Kind), string(j.Status),
						fmt.Sprintf("%d/%d", j.Attempts, j.MaxAttempts), orDash(j.Payload.OutputID),
						formatTime(j.UpdatedAt), orDash(truncate(j.LastError, 40))})
				}
				printTable(cmd.OutOrStdout(),
					[]column{{header: "Job"}, {header: "Kind"}, {header: "Status"}, {header: "Attempts", align: alignRight},
						{header: "Output"}, {header: "Updated"}, {header: "Last error"}},
					rows, "No jobs")
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Filter by job kind (repeatable)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum rows")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Requeue dead jobs (all of them when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				if trimmed := strings.TrimSpace(arg); trimmed != "" {
					ids = append(ids, trimmed)
				}
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				n, err := rt.Queue.Retry(c, ids...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int64{"requeued": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", n)
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize outputs and jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				outputs, err := rt.Store.StatusCounts(c)
				if err != nil {
					return err
				}
				jobs, err := rt.Queue.Counts(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"outputs": outputs, "jobs": jobs})
				}
				rows := make([][]string, 0, len(outputs)+len(jobs))
				for status, n := range outputs {
					rows = append(rows, []string{"output", string(status), itoa(n)})
				}
				for status, n := range jobs {
					rows = append(rows, []string{"job", string(status), itoa(n)})
				}
				sort.Slice(rows, func(i, j int) bool {
					if rows[i][0] != rows[j][0] {
						return rows[i][0] > rows[j][0]
					}
					return rows[i][1] < rows[j][1]
				})
				printTable(cmd.OutOrStdout(),
					[]column{{header: "Type"}, {header: "Status"}, {header: "Count", align: alignRight}},
					rows, "Nothing recorded yet")
				return nil
			})
		},
	}
}
