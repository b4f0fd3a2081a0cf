// Package render writes products, carts and orders as tables, JSONL or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Format specifies how listings are written.
type Format string

const (
	// FormatTable is a human-readable table with truncated text
	FormatTable Format = "table"

	// FormatJSONL writes one JSON object per line
	FormatJSONL Format = "jsonl"

	// FormatJSON writes a single pretty-printed JSON document
	FormatJSON Format = "json"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSONL, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'table', 'jsonl' or 'json')", s)
	}
}

// writeJSONL writes items as line-delimited JSON, ideal for jq.
func writeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// writeJSON writes v as pretty-printed JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to build table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// Money formats an amount with two decimals, e.g. $18.00.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// truncate shortens s to max runes, using "..." for the cut.
// Multi-line text keeps only its first non-empty line. Empty text returns "-".
func truncate(s string, max int) string {
	var first string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			first = trimmed
			break
		}
	}
	if first == "" {
		return "-"
	}
	runes := []rune(first)
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return first
}

// age formats t relative to now, like "2m ago" or "3d ago".
func age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
