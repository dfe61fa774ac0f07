// Package output prints client command results.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	// FormatText prints values through their String method.
	FormatText Format = "text"
)

// ParseFormat accepts yaml, json or text. Formats not in allowed are
// rejected.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	for _, f := range allowed {
		if Format(s) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %q (use %v)", s, allowed)
}

// Printer writes values to one writer in one format.
type Printer struct {
	W      io.Writer
	Format Format
	Pretty bool
}

// Print serializes v.
func (p Printer) Print(v any) error {
	switch p.Format {
	case FormatJSON:
		return p.printJSON(v)
	case FormatYAML:
		return p.printYAML(v)
	case FormatText:
		_, err := fmt.Fprintln(p.W, v)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", p.Format)
	}
}

func (p Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.W)
	if p.Pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (p Printer) printYAML(v any) error {
	enc := yaml.NewEncoder(p.W)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
