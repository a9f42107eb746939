package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// FormatYAML is the default for terminals.
	FormatYAML OutputFormat = "yaml"
	// FormatJSON is for piping.
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings and bytes unchanged.
	FormatRaw OutputFormat = "raw"
)

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File is the output path; empty writes to stdout.
	File string

	// Indent is the JSON indentation.
	Indent string

	// JQ filters the result before rendering. Each emitted value is
	// written separately.
	JQ string

	// Writer overrides File.
	Writer io.Writer
}

// Output writes result to the configured destination.
func Output(result any, opts OutputOptions) error {
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

	if opts.JQ != "" {
		values, err := ApplyJQ(opts.JQ, result)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := render(w, v, opts); err != nil {
				return err
			}
		}
		return nil
	}
	return render(w, result, opts)
}

func render(w io.Writer, result any, opts OutputOptions) error {
	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, result, opts.Indent)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatRaw:
		return outputRaw(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// ApplyJQ runs a jq expression over result. The result is first normalized
// through JSON so struct tags apply.
func ApplyJQ(expr string, result any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func outputJSON(w io.Writer, result any, indent string) error {
	enc := json.NewEncoder(w)
	if indent == "" {
		indent = "  "
	}
	enc.SetIndent("", indent)
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func outputRaw(w io.Writer, result any) error {
	switch v := result.(type) {
	case []byte:
		_, err := w.Write(v)
		return err
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		return outputYAML(w, result)
	}
}

// PrintSuccess prints a success message to stderr.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

// PrintInfo prints an info message to stderr.
func PrintInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ℹ "+format+"\n", args...)
}

// PrintWarning prints a warning to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}
