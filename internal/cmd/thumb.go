package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

var historyThumbCmd = &cobra.Command{
	Use:   "thumb <id> [file]",
	Short: "Write a thumbnail of a generated image",
	Long:  "Write a smaller png or jpeg copy of a generated image for quick review.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runHistoryThumb,
}

func init() {
	historyCmd.AddCommand(historyThumbCmd)

	historyThumbCmd.Flags().Int("max-size", 256, "Max thumbnail dimension (64-1024)")
	historyThumbCmd.Flags().String("format", "jpeg", "Thumbnail format: jpeg or png")
	historyThumbCmd.Flags().Int("jpeg-quality", 80, "JPEG quality (1-100)")
}

func runHistoryThumb(cmd *cobra.Command, args []string) error {
	maxSize, _ := cmd.Flags().GetInt("max-size")
	format, _ := cmd.Flags().GetString("format")
	jpegQuality, _ := cmd.Flags().GetInt("jpeg-quality")
	format = strings.ToLower(strings.TrimSpace(format))

	if maxSize < 64 || maxSize > 1024 {
		return errdefs.NewValidation("max-size", "--max-size must be between 64 and 1024")
	}
	if format != "jpeg" && format != "jpg" && format != "png" {
		return errdefs.NewValidation("format", fmt.Sprintf("unsupported format: %s", format))
	}

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
	data, err := decodeImage(entry.Base64Data)
	if err != nil {
		return errdefs.NewParse("image", err)
	}

	var buf bytes.Buffer
	if err := writeThumbnail(&buf, data, maxSize, format, jpegQuality); err != nil {
		return fmt.Errorf("thumbnail %s: %w", entry.ID, err)
	}

	path := thumbnailPath(entry.ID, format)
	if len(args) == 2 {
		path = args[1]
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func thumbnailPath(id, format string) string {
	ext := "jpg"
	if format == "png" {
		ext = "png"
	}
	return fmt.Sprintf("%s.thumbnail.%s", id, ext)
}

// writeThumbnail scales data so its longer side is at most maxSize. Smaller
// images keep their size.
func writeThumbnail(w io.Writer, data []byte, maxSize int, format string, jpegQuality int) error {
	srcImg, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	bounds := srcImg.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return errors.New("invalid image dimensions")
	}

	scale := float64(maxSize) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, bounds, draw.Over, nil)

	return encodeImage(w, dst, format, jpegQuality)
}

func encodeImage(w io.Writer, img image.Image, format string, jpegQuality int) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg", "jpg", "":
		q := min(max(jpegQuality, 1), 100)
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
