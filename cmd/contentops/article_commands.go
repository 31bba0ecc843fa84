package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"contentops/internal/daemonrun"
	"contentops/internal/orchestrator"
)

func newArticleCommand(ctx *commandContext) *cobra.Command {
	articleCmd := &cobra.Command{
		Use:   "article",
		Short: "Manage source articles",
	}
	articleCmd.AddCommand(newArticleAddCommand(ctx))
	articleCmd.AddCommand(newArticleListCommand(ctx))
	return articleCmd
}

func newArticleAddCommand(ctx *commandContext) *cobra.Command {
	var req orchestrator.ArticleRequest
	var htmlArg, bodyArg string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store an article (body or HTML may be @file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Body, err = readTextArg(cmd, bodyArg); err != nil {
				return err
			}
			if req.HTML, err = readTextArg(cmd, htmlArg); err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				a, err := rt.Orchestrator.CreateArticle(c, req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, a)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Article %s stored (%q)\n", a.ID, a.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.OrganizationID, "org", "", "Owning organization id")
	cmd.Flags().StringVar(&req.Title, "title", "", "Article title")
	cmd.Flags().StringVar(&bodyArg, "body", "", "Plain-text body, or @path")
	cmd.Flags().StringVar(&htmlArg, "html", "", "HTML document to extract title and body from, or @path")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category")
	cmd.Flags().StringVar(&req.SourceURL, "source-url", "", "Canonical URL of the article")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newArticleListCommand(ctx *commandContext) *cobra.Command {
	var org string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent articles of an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				articles, err := rt.Store.ListArticles(c, org, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, articles)
				}
				rows := make([][]string, 0, len(articles))
				for _, a := range articles {
					rows = append(rows, []string{a.ID, truncate(a.Title, 48), orDash(a.Category), formatTime(a.CreatedAt)})
				}
				printTable(cmd.OutOrStdout(),
					[]column{{header: "ID"}, {header: "Title"}, {header: "Category"}, {header: "Created"}},
					rows, "No articles")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum rows")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
