package cmd

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/output"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate an image and record it in history",
	Long: `Generate an image from a prompt or a structured document.

A document is rendered with the simplified synthesizer; saved styles given
with --style are appended in order. Edit mode (--mode edit) needs --upload.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("document", "d", "", "JSON or YAML document to render as the prompt")
	generateCmd.Flags().StringSlice("style", nil, "style ids to apply, in order")
	generateCmd.Flags().String("mode", "new", "image mode: new or edit")
	generateCmd.Flags().String("upload", "", "source image file for edit mode")
	generateCmd.Flags().String("size", "", "image size (default studio.image_size)")
	generateCmd.Flags().StringP("out", "o", "", "write the image to this file")
	addOutputFlag(generateCmd, "table")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	mode, err := core.ParseImageMode(flagString(cmd, "mode"))
	if err != nil {
		return errdefs.NewValidation("mode", err.Error())
	}
	styles, _ := cmd.Flags().GetStringSlice("style")

	req := engine.GenerateRequest{
		Prompt:   strings.Join(args, " "),
		StyleIDs: styles,
		Mode:     mode,
		Size:     flagString(cmd, "size"),
	}
	if path := flagString(cmd, "document"); path != "" {
		if req.Document, err = readDocument(path); err != nil {
			return err
		}
	}
	if path := flagString(cmd, "upload"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		req.UploadBase64 = base64.StdEncoding.EncodeToString(data)
	}

	deps, err := buildStudio(ctx, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	req.OwnerID = resolveOwner(deps.Config)

	result, err := deps.Studio.Generate(ctx, req)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
	}

	if path := flagString(cmd, "out"); path != "" {
		if err := writeImage(path, result.Entry); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	}

	summary := historySummary(result.Entry)
	return output.Write(cmd.OutOrStdout(), format, summary, func() string {
		return output.HistoryTable([]core.HistoryEntry{result.Entry})
	})
}

// historySummary drops the image payload from JSON and YAML output.
func historySummary(entry core.HistoryEntry) core.HistoryEntry {
	entry.Base64Data = ""
	return entry
}

func writeImage(path string, entry core.HistoryEntry) error {
	data, err := decodeImage(entry.Base64Data)
	if err != nil {
		return errdefs.NewParse("image", err)
	}
	return writeFile(path, data)
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if _, rest, ok := strings.Cut(payload, ","); ok {
			payload = rest
		}
	}
	return base64.StdEncoding.DecodeString(payload)
}

// imageExtension picks a file extension for a mime type, defaulting to .png.
func imageExtension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}
