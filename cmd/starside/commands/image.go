package commands

import (
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/starside/pkg/cli"
	"github.com/haivivi/starside/pkg/imageprovider"
)

var (
	imageSize string
	imageOut  string
)

var imageCmd = &cobra.Command{
	Use:   "image ID",
	Short: "Request an image from the script image provider",
	Long: `Ask the provider registered with starside.set_image_provider() for
image ID and write it as PNG. A script must register the provider; pass it
with --script.`,
	Example: `  starside image -s icons.star logo --size 64x64 --out logo.png`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := parseSize(imageSize)
		if err != nil {
			return err
		}
		if imageOut == "" {
			return fmt.Errorf("--out is required")
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		img, err := s.b.RequestImage(args[0], size)
		if err != nil {
			return err
		}
		f, err := os.Create(imageOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		info, err := os.Stat(imageOut)
		if err != nil {
			return err
		}
		b := img.Bounds()
		fmt.Printf("wrote %s (%dx%d, %s)\n", imageOut, b.Dx(), b.Dy(), cli.FormatBytes(info.Size()))
		return nil
	},
}

// parseSize parses WxH. Empty means unspecified.
func parseSize(s string) (imageprovider.Size, error) {
	if s == "" {
		return imageprovider.Size{}, nil
	}
	ws, hs, ok := strings.Cut(s, "x")
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if !ok || werr != nil || herr != nil {
		return imageprovider.Size{}, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	return imageprovider.Size{Width: w, Height: h}, nil
}

func init() {
	imageCmd.Flags().StringVar(&imageSize, "size", "", "requested size, WIDTHxHEIGHT")
	imageCmd.Flags().StringVar(&imageOut, "out", "", "PNG file to write")
	rootCmd.AddCommand(imageCmd)
}
