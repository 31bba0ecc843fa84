package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentops/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var filter logs.Filter
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "contentopsd.log")
			entries, offset, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				printEntry(out, e)
			}
			if !follow {
				return nil
			}
			return logs.Follow(commandCtx(cmd), path, offset, 0, filter, func(e logs.Entry) {
				printEntry(out, e)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only this component")
	cmd.Flags().StringVar(&filter.OutputID, "output", "", "Only records about this output")
	cmd.Flags().StringVar(&filter.SubmissionID, "submission", "", "Only records about this submission")
	return cmd
}

func printEntry(out io.Writer, e logs.Entry) {
	if e.Level == "" && e.Time.IsZero() {
		fmt.Fprintln(out, e.Raw)
		return
	}
	var b strings.Builder
	b.WriteString(e.Time.Local().Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(e.Level))
	if e.Component != "" {
		b.WriteString(" " + e.Component)
	}
	if e.OutputID != "" {
		b.WriteString(" [" + e.OutputID + "]")
	}
	b.WriteString(": " + e.Message)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	fmt.Fprintln(out, b.String())
}
