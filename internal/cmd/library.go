package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, export and delete generated images",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated images, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		entries, err := deps.Studio.ListHistory(ctx, resolveOwner(deps.Config))
		if err != nil {
			return err
		}
		summaries := make([]core.HistoryEntry, 0, len(entries))
		for _, entry := range entries {
			summaries = append(summaries, historySummary(entry))
		}
		return output.Write(cmd.OutOrStdout(), format, summaries, func() string {
			return output.HistoryTable(entries)
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id> [file]",
	Short: "Write a generated image to a file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		entry, err := findHistory(ctx, deps.Studio, resolveOwner(deps.Config), args[0])
		if err != nil {
			return err
		}
		path := entry.ID + imageExtension(entry.MimeType)
		if len(args) == 2 {
			path = args[1]
		}
		if err := writeImage(path, entry); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func findHistory(ctx context.Context, studio *engine.Studio, owner, id string) (core.HistoryEntry, error) {
	entries, err := studio.ListHistory(ctx, owner)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	for _, entry := range entries {
		if entry.ID == strings.TrimSpace(id) {
			return entry, nil
		}
	}
	return core.HistoryEntry{}, errdefs.NewNotFound("history entry", id)
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a generated image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()
		return deps.Studio.DeleteHistory(ctx, args[0], resolveOwner(deps.Config))
	},
}

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Manage saved styles",
}

var styleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved styles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		styles, err := deps.Studio.ListStyles(ctx, resolveOwner(deps.Config))
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, styles, func() string {
			return output.StylesTable(styles)
		})
	},
}

var styleSaveCmd = &cobra.Command{
	Use:   "save <name> [prompt]",
	Short: "Save a style from a prompt fragment or a document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		style := core.Style{
			Name:   args[0],
			Prompt: strings.Join(args[1:], " "),
		}
		if path := flagString(cmd, "document"); path != "" {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			style.Document = doc
		}
		entries, err := readOptions(flagString(cmd, "options"))
		if err != nil {
			return err
		}
		style.Options = entries

		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()
		style.OwnerID = resolveOwner(deps.Config)

		result, err := deps.Studio.SaveStyle(ctx, style)
		if err != nil {
			return err
		}
		if result.Warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", result.Warning)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Style.ID)
		return nil
	},
}

var styleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved style",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()
		return deps.Studio.DeleteStyle(ctx, args[0], resolveOwner(deps.Config))
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage saved templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		templates, err := deps.Studio.ListTemplates(ctx, resolveOwner(deps.Config))
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, templates, func() string {
			return output.TemplatesTable(templates)
		})
	},
}

var templateSaveCmd = &cobra.Command{
	Use:   "save <name> <document-file>",
	Short: "Save a document and its options as a template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := readDocument(args[1])
		if err != nil {
			return err
		}
		entries, err := readOptions(flagString(cmd, "options"))
		if err != nil {
			return err
		}

		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		result, err := deps.Studio.SaveTemplate(ctx, core.Template{
			OwnerID:  resolveOwner(deps.Config),
			Name:     args[0],
			Prompt:   flagString(cmd, "prompt"),
			Document: doc,
			Options:  entries,
		})
		if err != nil {
			return err
		}
		if result.Warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", result.Warning)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Template.ID)
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := buildStudio(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close()
		return deps.Studio.DeleteTemplate(ctx, args[0], resolveOwner(deps.Config))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, styleCmd, templateCmd)

	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyDeleteCmd)
	styleCmd.AddCommand(styleListCmd, styleSaveCmd, styleDeleteCmd)
	templateCmd.AddCommand(templateListCmd, templateSaveCmd, templateDeleteCmd)

	addOutputFlag(historyListCmd, "table")
	addOutputFlag(styleListCmd, "table")
	addOutputFlag(templateListCmd, "table")

	styleSaveCmd.Flags().StringP("document", "d", "", "JSON or YAML document the style renders from")
	styleSaveCmd.Flags().String("options", "", "YAML file of field path -> option list")
	templateSaveCmd.Flags().String("options", "", "YAML file of field path -> option list")
	templateSaveCmd.Flags().String("prompt", "", "prompt the template was built from")
}
