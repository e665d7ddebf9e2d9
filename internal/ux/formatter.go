package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printer writes command results in the selected output format. Structured
// formats encode the result value; text output is produced by the command.
type Printer struct {
	w       io.Writer
	format  string
	compact bool
	styles  Styles
}

// PrinterOptions configures a Printer.
type PrinterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables styling in text output
	NoColor bool
	// Compact disables indentation for JSON and YAML
	Compact bool
}

// NewPrinter creates a printer for format.
func NewPrinter(format string, opts PrinterOptions) (*Printer, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}

	return &Printer{
		w:       opts.Writer,
		format:  format,
		compact: opts.Compact,
		styles:  NewStyles(opts.Writer, opts.NoColor),
	}, nil
}

// Format returns the output format.
func (p *Printer) Format() string { return p.format }

// Structured reports whether the printer encodes values instead of text.
func (p *Printer) Structured() bool { return p.format != FormatText }

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Styles returns the text styles.
func (p *Printer) Styles() Styles { return p.styles }

// Emit writes data. JSON and YAML encode data; text output calls text, or
// prints data directly when it is a string or a fmt.Stringer.
func (p *Printer) Emit(data any, text func(w io.Writer, s Styles) error) error {
	switch p.format {
	case FormatJSON:
		encoder := json.NewEncoder(p.w)
		if !p.compact {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(data)

	case FormatYAML:
		encoder := yaml.NewEncoder(p.w)
		if !p.compact {
			encoder.SetIndent(2)
		}
		defer encoder.Close()
		return encoder.Encode(data)
	}

	if text != nil {
		return text(p.w, p.styles)
	}
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(p.w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(p.w, v.String())
		return err
	default:
		return fmt.Errorf("no text rendering for %T; use --format json or yaml", data)
	}
}

// Printf writes a formatted line in text mode and is silent otherwise, so
// progress chatter never corrupts structured output.
func (p *Printer) Printf(format string, args ...any) {
	if p.Structured() {
		return
	}
	fmt.Fprintf(p.w, format, args...)
}
