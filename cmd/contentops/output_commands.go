package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"contentops/internal/daemonrun"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/store"
)

func newOutputCommand(ctx *commandContext) *cobra.Command {
	outputCmd := &cobra.Command{
		Use:   "output",
		Short: "Review and drive individual outputs",
	}
	outputCmd.AddCommand(newOutputShowCommand(ctx))
	outputCmd.AddCommand(newOutputListCommand(ctx))
	outputCmd.AddCommand(newOutputGenerateCommand(ctx))
	outputCmd.AddCommand(newOutputRegenerateCommand(ctx))
	outputCmd.AddCommand(newOutputScriptCommand(ctx))
	outputCmd.AddCommand(newOutputApprovalCommand(ctx, "approve", "Mark an output approved", true))
	outputCmd.AddCommand(newOutputApprovalCommand(ctx, "unapprove", "Clear an output's approval", false))
	outputCmd.AddCommand(newOutputTagCommand(ctx))
	return outputCmd
}

func newOutputShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <output-id>",
		Short: "Show an output, including its script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				o, err := rt.Orchestrator.GetOutput(c, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				tags, err := rt.Store.ListOutputTags(c, o.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, orchestrator.OutputView{Output: o, Tags: tags})
				}
				printOutput(cmd, o, tags)
				return nil
			})
		},
	}
}

func newOutputListCommand(ctx *commandContext) *cobra.Command {
	var filter store.OutputFilter
	var kinds, statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently updated outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var problems []error
			for _, raw := range kinds {
				kind, ok := output.ParseKind(raw)
				if !ok {
					problems = append(problems, fmt.Errorf("unknown media type %q", raw))
					continue
				}
				filter.Kinds = append(filter.Kinds, kind)
			}
			for _, raw := range statuses {
				status, ok := output.ParseStatus(raw)
				if !ok {
					problems = append(problems, fmt.Errorf("unknown output status %q", raw))
					continue
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			if err := errors.Join(problems...); err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				outputs, err := rt.Store.ListOutputs(c, filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, outputs)
				}
				rows := make([][]string, 0, len(outputs))
				for _, o := range outputs {
					rows = append(rows, []string{o.ID, string(o.Kind), string(o.Status), yesNo(o.IsApproved),
						itoa(o.Generation), orDash(o.SubmissionID), orDash(truncate(o.Error, 40))})
				}
				printTable(cmd.OutOrStdout(),
					[]column{{header: "Output"}, {header: "Kind"}, {header: "Status"}, {header: "Approved"},
						{header: "Gen", align: alignRight}, {header: "Submission"}, {header: "Error"}},
					rows, "No outputs")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.OrganizationID, "org", "", "Organization id")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Filter by media type (repeatable)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&filter.Standalone, "standalone", false, "Only outputs created without a submission")
	cmd.Flags().Uint64Var(&filter.Limit, "limit", 50, "Maximum rows")
	return cmd
}

func newOutputGenerateCommand(ctx *commandContext) *cobra.Command {
	var custom output.Customization

	cmd := &cobra.Command{
		Use:   "generate <output-id>",
		Short: "Render media for a reviewed script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				o, err := rt.Orchestrator.TriggerMediaGeneration(c, strings.TrimSpace(args[0]), custom)
				if err != nil {
					return err
				}
				return reportOutput(cmd, ctx, o, "rendering")
			})
		},
	}
	bindCustomization(cmd.Flags(), &custom)
	return cmd
}

func newOutputRegenerateCommand(ctx *commandContext) *cobra.Command {
	var custom output.Customization

	cmd := &cobra.Command{
		Use:   "regenerate <output-id>",
		Short: "Restart a completed or failed output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override *output.Customization
			if customizationChanged(cmd.Flags()) {
				override = &custom
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				o, err := rt.Orchestrator.RegenerateMedia(c, strings.TrimSpace(args[0]), override)
				if err != nil {
					return err
				}
				return reportOutput(cmd, ctx, o, fmt.Sprintf("regenerating at generation %d", o.Generation))
			})
		},
	}
	bindCustomization(cmd.Flags(), &custom)
	return cmd
}

func newOutputScriptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "script <output-id> <text|@path>",
		Short: "Replace the script of an output awaiting review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readTextArg(cmd, args[1])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				o, err := rt.Orchestrator.EditScript(c, strings.TrimSpace(args[0]), script)
				if err != nil {
					return err
				}
				return reportOutput(cmd, ctx, o, "script updated")
			})
		},
	}
}

func newOutputApprovalCommand(ctx *commandContext, use, short string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <output-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				id := strings.TrimSpace(args[0])
				var (
					o   *output.Output
					err error
				)
				if approve {
					o, err = rt.Orchestrator.Approve(c, id)
				} else {
					o, err = rt.Orchestrator.Unapprove(c, id)
				}
				if err != nil {
					return err
				}
				return reportOutput(cmd, ctx, o, "approved: "+yesNo(o.IsApproved))
			})
		},
	}
}

func newOutputTagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <output-id> <name>",
		Short: "Attach a tag to an output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				tag, err := rt.Orchestrator.AttachTag(c, strings.TrimSpace(args[0]), args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tag)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s with %q (%s)\n", args[0], tag.Name, tag.ID)
				return nil
			})
		},
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var req orchestrator.StandaloneVideoRequest
	var scriptArg string

	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Standalone videos rendered from an operator script",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Render a video without an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readTextArg(cmd, scriptArg)
			if err != nil {
				return err
			}
			req.Script = script
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				o, err := rt.Orchestrator.CreateStandaloneVideo(c, req)
				if err != nil {
					return err
				}
				return reportOutput(cmd, ctx, o, "rendering")
			})
		},
	}
	create.Flags().StringVar(&req.OrganizationID, "org", "", "Organization id")
	create.Flags().StringVar(&req.Title, "title", "", "Video title")
	create.Flags().StringVar(&scriptArg, "script", "", "Narration script, or @path")
	bindCustomization(create.Flags(), &req.Customization)
	videoCmd.AddCommand(create)
	return videoCmd
}

var customizationFlags = []string{"character", "voice", "template", "caption-style", "music", "intro", "outro", "aspect-ratio", "captions", "broll"}

func bindCustomization(flags *pflag.FlagSet, c *output.Customization) {
	flags.StringVar(&c.CharacterID, "character", "", "Avatar character asset id")
	flags.StringVar(&c.VoiceID, "voice", "", "Voice asset id")
	flags.StringVar(&c.TemplateID, "template", "", "Template asset id")
	flags.StringVar(&c.CaptionStyleID, "caption-style", "", "Caption style asset id")
	flags.StringVar(&c.BackgroundMusicID, "music", "", "Background music asset id")
	flags.StringVar(&c.IntroBumperID, "intro", "", "Intro bumper asset id")
	flags.StringVar(&c.OutroBumperID, "outro", "", "Outro bumper asset id")
	flags.StringVar(&c.AspectRatio, "aspect-ratio", "", "16:9, 9:16 or 1:1")
	flags.BoolVar(&c.CaptionsEnabled, "captions", false, "Burn in captions")
	flags.BoolVar(&c.BrollEnabled, "broll", false, "Insert b-roll")
}

func customizationChanged(flags *pflag.FlagSet) bool {
	for _, name := range customizationFlags {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

func reportOutput(cmd *cobra.Command, ctx *commandContext, o *output.Output, summary string) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, o)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Output %s (%s) is %s: %s\n", o.ID, o.Kind, o.Status, summary)
	return nil
}

func printOutput(cmd *cobra.Command, o *output.Output, tags []store.OutputTag) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Output %s\n", o.ID)
	fmt.Fprintf(out, "  Kind:       %s\n", o.Kind)
	fmt.Fprintf(out, "  Status:     %s\n", o.Status)
	fmt.Fprintf(out, "  Generation: %d\n", o.Generation)
	fmt.Fprintf(out, "  Submission: %s\n", orDash(o.SubmissionID))
	fmt.Fprintf(out, "  Approved:   %s\n", yesNo(o.IsApproved))
	fmt.Fprintf(out, "  Provider:   %s\n", orDash(o.ProviderID))
	fmt.Fprintf(out, "  Asset:      %s\n", orDash(o.AssetURL))
	if o.DurationSeconds > 0 {
		fmt.Fprintf(out, "  Duration:   %ds\n", o.DurationSeconds)
	}
	if o.Error != "" {
		fmt.Fprintf(out, "  Error:      %s\n", o.Error)
	}
	for _, tag := range tags {
		origin := "direct"
		if tag.IsInherited {
			origin = "inherited from " + tag.SourceOutputID
		}
		fmt.Fprintf(out, "  Tag:        %s (%s)\n", tag.Tag.Name, origin)
	}
	if strings.TrimSpace(o.Script) != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, o.Script)
	}
}
