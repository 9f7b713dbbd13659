// Package output renders conversion summaries and diagnostics. Summaries
// support text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bimmerbailey/cwl4/internal/convert"
	"github.com/bimmerbailey/cwl4/internal/filter"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WriteResults outputs per-file statistics in the configured format.
func (wr *Writer) WriteResults(results []convert.Result) error {
	switch wr.format {
	case FormatJSON:
		return wr.writeJSON(results)
	case FormatTable:
		return wr.writeTable(results)
	default:
		return wr.writeText(results)
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (wr *Writer) writeJSON(results []convert.Result) error {
	var total filter.Stats
	for _, r := range results {
		total = total.Add(r.Stats)
	}
	return wr.WriteJSON(struct {
		Files []convert.Result `json:"files"`
		Total filter.Stats     `json:"total"`
	}{Files: results, Total: total})
}

func (wr *Writer) writeText(results []convert.Result) error {
	for _, r := range results {
		s := r.Stats
		if _, err := fmt.Fprintf(wr.w, "%s: %d lines read, %d written, %d dropped, %d artifacts removed\n",
			describe(r), s.LinesRead, s.LinesWritten, s.LinesDropped, s.Artifacts); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeTable(results []convert.Result) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tOUTPUT\tREAD\tWRITTEN\tDROPPED\tARTIFACTS\tCRLF")
	fmt.Fprintln(tw, "-----\t------\t----\t-------\t-------\t---------\t----")

	var total filter.Stats
	for _, r := range results {
		s := r.Stats
		total = total.Add(s)

		out := r.Output
		if out == "" {
			out = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.Input, out, s.LinesRead, s.LinesWritten, s.LinesDropped, s.Artifacts, s.CRLF)
	}

	if len(results) > 1 {
		fmt.Fprintf(tw, "TOTAL\t\t%d\t%d\t%d\t%d\t%d\n",
			total.LinesRead, total.LinesWritten, total.LinesDropped, total.Artifacts, total.CRLF)
	}

	return tw.Flush()
}

func describe(r convert.Result) string {
	if r.Output == "" {
		return r.Input
	}
	return r.Input + " -> " + r.Output
}
