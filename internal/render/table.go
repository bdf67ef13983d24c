// Package render turns bounded record sets into Markdown tables for chat
// clients.
package render

import (
	"fmt"
	"strings"
)

// MaxRows is the absolute row cap for any rendered table, applied on top of
// the caller's requested limit.
const MaxRows = 100

// NoDataMessage is returned instead of a header-only table, which renders
// confusingly in chat clients.
const NoDataMessage = "No data available for this resource."

// Meta describes where the table's records came from.
type Meta struct {
	Source      string // "DataStore", "CSV File", "JSON File"
	DownloadURL string // omitted when empty
	TotalCount  int    // total records at the source; -1 when unknown
	RowsShown   int
}

// Table is an ordered field list plus a bounded sequence of records.
type Table struct {
	Fields  []string
	Records []map[string]any
}

// ClampLimit bounds a requested row count to [1, MaxRows], substituting the
// given default for non-positive requests.
func ClampLimit(requested, def int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > MaxRows {
		return MaxRows
	}
	return requested
}

// Markdown renders the table with its metadata header. Empty record sets
// yield NoDataMessage under the same header.
func Markdown(meta Meta, t Table) string {
	var sb strings.Builder

	sb.WriteString("**Source:** " + meta.Source + "\n")
	if meta.DownloadURL != "" {
		sb.WriteString("**Download URL:** " + meta.DownloadURL + "\n")
	}
	if meta.TotalCount >= 0 {
		fmt.Fprintf(&sb, "**Total Records:** %d\n", meta.TotalCount)
	}
	fmt.Fprintf(&sb, "**Showing %d rows**\n\n", meta.RowsShown)

	if len(t.Records) == 0 {
		sb.WriteString(NoDataMessage)
		return sb.String()
	}

	sb.WriteString("| " + strings.Join(escapeAll(t.Fields), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(t.Fields)) + "\n")

	for _, rec := range t.Records {
		cells := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			cells[i] = escapeCell(cellString(rec[f]))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

// cellString stringifies a record value. nil renders as an empty cell.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers arrive as float64; print integers without a mantissa.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// escapeCell keeps literal pipes and newlines from corrupting the table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func escapeAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = escapeCell(f)
	}
	return out
}
