package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/output"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [document-file]",
	Short: "Render a structured document as a prompt",
	Long: `Render a JSON or YAML document as a single prompt line.

The simplified mode builds the prompt sent for image generation; the rich
mode adds labelled sections for previews. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(argOrStdin(args))
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")

		prompt, err := (&engine.Studio{}).Synthesize(doc, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose <prompt>",
	Short: "Split a free-text prompt into a structured document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		deps, err := buildStudio(ctx, false)
		if err != nil {
			return err
		}
		defer deps.Close()

		doc, err := deps.Studio.Decompose(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, doc, func() string {
			return output.FieldsTable(document.Enumerate(doc))
		})
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields [document-file]",
	Short: "List the editable fields of a document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		doc, err := readDocument(argOrStdin(args))
		if err != nil {
			return err
		}
		fields := document.Enumerate(doc)
		return output.Write(cmd.OutOrStdout(), format, fields, func() string {
			return output.FieldsTable(fields)
		})
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options <path> [document-file]",
	Short: "Ask the AI for alternative values for one field",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		doc, err := readDocument(argOrStdin(args[1:]))
		if err != nil {
			return err
		}
		path := args[0]
		current := ""
		if value, ok := document.GetAtPath(doc, path); ok {
			current, _ = document.FormatScalar(value)
		}

		deps, err := buildStudio(ctx, false)
		if err != nil {
			return err
		}
		defer deps.Close()

		values, err := deps.Studio.SuggestOptions(ctx, path, current, doc)
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, values, func() string {
			return output.OptionsTable(path, values)
		})
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate [document-file]",
	Short: "Show a document's values in another language",
	Long: `Translate a document's values, keeping keys and order.

When translation is unavailable the original document is printed and a
warning is written to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := readDocument(argOrStdin(args))
		if err != nil {
			return err
		}
		lang, _ := cmd.Flags().GetString("lang")

		deps, err := buildStudio(ctx, false)
		if err != nil {
			return err
		}
		defer deps.Close()

		result := deps.Studio.Translate(ctx, doc, lang)
		if result.Warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: translation unavailable:", result.Warning)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return nil
	},
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func init() {
	rootCmd.AddCommand(synthesizeCmd, decomposeCmd, fieldsCmd, optionsCmd, translateCmd)

	synthesizeCmd.Flags().StringP("mode", "m", "simplified", "synthesizer: simplified or rich")
	addOutputFlag(decomposeCmd, "json")
	addOutputFlag(fieldsCmd, "table")
	addOutputFlag(optionsCmd, "table")
	translateCmd.Flags().String("lang", "", "target language (default studio.target_language)")
}
