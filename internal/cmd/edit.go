package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit [document-file]",
	Short: "Edit a document field by field in the terminal",
	Long: `Open the field editor.

Keys:
  ↑/↓           move between fields
  →             choose from the field's options (enter applies)
  ←             edit the whole document as JSON (ctrl+s applies)
  shift+←       back to the field list
  a / o         ask the AI for options / edit options by hand
  p / y / g     toggle preview mode / copy prompt / generate an image

Start from a file, a saved template (--template) or a prompt to
decompose (--prompt). With --save the final document is written back.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().String("template", "", "load a saved template by id or name")
	editCmd.Flags().String("prompt", "", "decompose this prompt into the starting document")
	editCmd.Flags().String("options", "", "YAML file of field path -> option list")
	editCmd.Flags().String("save", "", "write the final document to this file")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	deps, err := buildStudio(ctx, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	owner := resolveOwner(deps.Config)
	entries, err := readOptions(flagString(cmd, "options"))
	if err != nil {
		return err
	}
	opts := tui.Options{
		Studio:         deps.Studio,
		Catalog:        options.NewCatalog(entries),
		OwnerID:        owner,
		TargetLanguage: deps.Config.Studio.TargetLanguage,
		TranslateDelay: deps.Config.Studio.TranslateDelay,
		PreviewMode:    deps.Config.Studio.PreviewMode,
	}

	switch {
	case flagString(cmd, "template") != "":
		tmpl, err := findTemplate(ctx, deps.Studio, owner, flagString(cmd, "template"))
		if err != nil {
			return err
		}
		opts.Template = &tmpl
	case flagString(cmd, "prompt") != "":
		doc, err := deps.Studio.Decompose(ctx, flagString(cmd, "prompt"))
		if err != nil {
			return err
		}
		opts.Document = doc
	case len(args) == 1:
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		opts.Document = doc
	}

	final, err := tui.Run(opts)
	if err != nil {
		return err
	}

	if path := flagString(cmd, "save"); path != "" && final != nil {
		text, err := document.MarshalIndent(final.Editor().Document())
		if err != nil {
			return err
		}
		if err := writeFile(path, []byte(text+"\n")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "saved", path)
	}
	return nil
}

// findTemplate resolves ref as a template id, then as a case-insensitive
// name.
func findTemplate(ctx context.Context, studio *engine.Studio, owner, ref string) (core.Template, error) {
	templates, err := studio.ListTemplates(ctx, owner)
	if err != nil {
		return core.Template{}, err
	}
	for _, tmpl := range templates {
		if tmpl.ID == ref {
			return tmpl, nil
		}
	}
	for _, tmpl := range templates {
		if strings.EqualFold(tmpl.Name, ref) {
			return tmpl, nil
		}
	}
	return core.Template{}, errdefs.NewNotFound("template", ref)
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(value)
}
