package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/starside/pkg/value"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatRepr prints the script-style rendering, e.g. [1, "a", None].
	FormatRepr OutputFormat = "repr"
	// FormatYAML outputs as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings unquoted and everything else as repr.
	FormatRaw OutputFormat = "raw"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "":
		return FormatRepr, nil
	case FormatRepr, FormatYAML, FormatJSON, FormatRaw:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// OutputOptions configures output behavior
type OutputOptions struct {
	Format OutputFormat

	// File is the output file path (empty for stdout)
	File string

	// Indent is the indentation for JSON output
	Indent string

	// Writer is an optional custom writer (overrides File)
	Writer io.Writer
}

// Output writes a converted script value to the configured destination.
func Output(v value.Value, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, v.Native(), opts.Indent)
	case FormatYAML:
		return outputYAML(w, v.Native())
	case FormatRaw:
		if v.Tag() == value.TagString {
			_, err := io.WriteString(w, v.Str())
			return err
		}
		return outputRepr(w, v)
	case FormatRepr, "":
		return outputRepr(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func outputRepr(w io.Writer, v value.Value) error {
	s := v.String()
	if v.Tag() == value.TagString {
		s = fmt.Sprintf("%q", s)
	}
	_, err := fmt.Fprintln(w, s)
	return err
}

func outputJSON(w io.Writer, x any, indent string) error {
	enc := json.NewEncoder(w)
	if indent == "" {
		indent = "  "
	}
	enc.SetIndent("", indent)
	return enc.Encode(x)
}

func outputYAML(w io.Writer, x any) error {
	data, err := yaml.Marshal(x)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// FormatBytes formats bytes to human readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// PrintVerbose prints verbose output to stderr
func PrintVerbose(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
