// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string { return string(f) }

// TableRenderer is implemented by results with a tabular form.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// Table is an ad-hoc TableRenderer.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) { t.rows = append(t.rows, cells) }

func (t *Table) Headers() []string { return t.headers }
func (t *Table) Rows() [][]string  { return t.rows }

// Fields is an ordered list of label/value pairs rendered as "label: value".
type Fields [][2]string

// Add appends a pair.
func (f *Fields) Add(label string, value any) {
	*f = append(*f, [2]string{label, fmt.Sprint(value)})
}

// Printer writes results in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a printer.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Format returns the printer's output format.
func (p *Printer) Format() Format { return p.format }

// Writer returns the printer's output writer.
func (p *Printer) Writer() io.Writer { return p.out }

// Print renders data. In table format, data is rendered through table when
// it is a TableRenderer or Fields; otherwise through raw, which falls back
// to data itself as indented JSON.
//
// JSON and YAML always encode raw when non-nil, so the structured forms
// carry the full result rather than its tabular projection.
func (p *Printer) Print(raw any, table any) error {
	if raw == nil {
		raw = table
	}
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(raw); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		switch t := table.(type) {
		case TableRenderer:
			p.renderTable(t.Headers(), t.Rows())
			return nil
		case Fields:
			p.renderFields(t)
			return nil
		}
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

func (p *Printer) renderTable(headers []string, rows [][]string) {
	table := newPlainTable(p.out)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(true)
	table.AppendBulk(rows)
	table.Render()
}

func (p *Printer) renderFields(fields Fields) {
	table := newPlainTable(p.out)
	table.SetColumnSeparator(":")
	for _, f := range fields {
		table.Append([]string{f[0], f[1]})
	}
	table.Render()
}

// newPlainTable returns a borderless, left-aligned table.
func newPlainTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// Println prints args followed by a newline.
func (p *Printer) Println(args ...any) { _, _ = fmt.Fprintln(p.out, args...) }

// Success prints a green message.
func (p *Printer) Success(msg string) { p.colored("32", msg) }

// Warning prints a yellow message.
func (p *Printer) Warning(msg string) { p.colored("33", msg) }

// Error prints a red message.
func (p *Printer) Error(msg string) { p.colored("31", msg) }

func (p *Printer) colored(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
