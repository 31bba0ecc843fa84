package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"contentops/internal/catalog"
	"contentops/internal/daemonrun"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage per-organization customization assets",
	}
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert assets from a YAML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.ParseFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				assets, err := catalog.Import(c, rt.Store, f)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, assets)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d asset(s)\n", len(assets))
				return nil
			})
		},
	})
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				assets, err := rt.Store.ListAssets(c, org)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, assets)
				}
				rows := make([][]string, 0, len(assets))
				for _, a := range assets {
					rows = append(rows, []string{a.ID, string(a.Type), a.Name, orDash(a.ProviderRef)})
				}
				printTable(cmd.OutOrStdout(),
					[]column{{header: "Asset"}, {header: "Type"}, {header: "Name"}, {header: "Provider ref"}},
					rows, "No assets")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
