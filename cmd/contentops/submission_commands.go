package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contentops/internal/daemonrun"
	"contentops/internal/language"
	"contentops/internal/orchestrator"
	"contentops/internal/store"
	"contentops/internal/submission"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var req orchestrator.CreateRequest
	var skip []string

	cmd := &cobra.Command{
		Use:   "submit <article-id>",
		Short: "Request derived media for an article in one or more languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := flagOptions(skip)
			if err != nil {
				return err
			}
			req.ArticleID = strings.TrimSpace(args[0])
			req.Flags = flags
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				subs, createErr := rt.Orchestrator.CreateSubmission(c, req)
				if len(subs) == 0 && createErr != nil {
					return createErr
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, subs); err != nil {
						return err
					}
				} else {
					printSubmissions(cmd, subs)
				}
				if createErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: some jobs were not queued and will be retried by the daemon: %v\n", createErr)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.OrganizationID, "org", "", "Organization id the article must belong to")
	cmd.Flags().StringSliceVarP(&req.Languages, "language", "l", nil, "Target language (repeatable; default ENGLISH)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Media types to skip (audio, podcast, video, quiz, interactive_podcast)")
	return cmd
}

func newSubmissionCommand(ctx *commandContext) *cobra.Command {
	submissionCmd := &cobra.Command{
		Use:   "submission",
		Short: "Inspect a submission",
	}
	submissionCmd.AddCommand(&cobra.Command{
		Use:   "show <submission-id>",
		Short: "Show a submission and its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				view, err := rt.Orchestrator.GetSubmission(c, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submission %s\n", view.ID)
				fmt.Fprintf(out, "  Article:  %s\n", view.ArticleID)
				fmt.Fprintf(out, "  Org:      %s\n", view.OrganizationID)
				fmt.Fprintf(out, "  Language: %s\n", view.Language)
				fmt.Fprintf(out, "  Status:   %s\n", view.Status)
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(view.Outputs))
				for _, o := range view.Outputs {
					names := make([]string, 0, len(o.Tags))
					for _, tag := range o.Tags {
						names = append(names, tag.Tag.Name)
					}
					rows = append(rows, []string{o.ID, string(o.Kind), string(o.Status), yesNo(o.IsApproved),
						itoa(o.Generation), orDash(strings.Join(names, ",")), orDash(truncate(o.Error, 40))})
				}
				printTable(out, outputColumns, rows, "No outputs")
				return nil
			})
		},
	})
	return submissionCmd
}

func newSubmissionsCommand(ctx *commandContext) *cobra.Command {
	var org, lang string
	var statuses []string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List recent submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.SubmissionFilter{OrganizationID: org, Limit: limit}
			var problems []error
			for _, raw := range statuses {
				status, ok := submission.ParseStatus(raw)
				if !ok {
					problems = append(problems, fmt.Errorf("unknown submission status %q", raw))
					continue
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			if strings.TrimSpace(lang) != "" {
				parsed, err := language.Parse(lang)
				if err != nil {
					problems = append(problems, err)
				}
				filter.Language = parsed
			}
			if err := errors.Join(problems...); err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				subs, err := rt.Store.ListSubmissions(c, filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, subs)
				}
				printSubmissions(cmd, subs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Language")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum rows")
	return cmd
}

var outputColumns = []column{
	{header: "Output"}, {header: "Kind"}, {header: "Status"}, {header: "Approved"},
	{header: "Gen", align: alignRight}, {header: "Tags"}, {header: "Error"},
}

func printSubmissions(cmd *cobra.Command, subs []*submission.Submission) {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{s.ID, s.ArticleID, string(s.Language), string(s.Status), formatTime(s.CreatedAt)})
	}
	printTable(cmd.OutOrStdout(),
		[]column{{header: "Submission"}, {header: "Article"}, {header: "Language"}, {header: "Status"}, {header: "Created"}},
		rows, "No submissions")
}
