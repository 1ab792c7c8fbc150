package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/lossmodel/internal/risk"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// Output formats
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

func validateFormat(format string) error {
	switch format {
	case FormatJSON, FormatTable:
		return nil
	default:
		return fmt.Errorf("unknown format %q (json|table)", format)
	}
}

// PrintHeader prints a formatted section header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintSummary prints descriptive statistics
func PrintSummary(w io.Writer, s risk.Summary) {
	rows := []struct {
		key   string
		value string
	}{
		{"n", strconv.Itoa(s.N)},
		{"mean", formatLoss(s.Mean)},
		{"std", formatLoss(s.Std)},
		{"min", formatLoss(s.Min)},
		{"p50", formatLoss(s.P50)},
		{"p90", formatLoss(s.P90)},
		{"p95", formatLoss(s.P95)},
		{"p99", formatLoss(s.P99)},
		{"max", formatLoss(s.Max)},
	}
	for _, r := range rows {
		PrintKeyValue(w, r.key, r.value, 6)
	}
}

// PrintRiskMetrics prints VaR/TVaR as a table, ordered by key
func PrintRiskMetrics(w io.Writer, metrics map[string]float64) {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	widths := []int{12, 20}
	PrintTableHeader(w, []string{"Metric", "Value"}, widths)
	for _, k := range keys {
		PrintTableRow(w, []string{k, formatLoss(metrics[k])}, widths)
	}
}

func formatLoss(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
