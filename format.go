package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// notAvailable is shown where a record time is not known yet.
const notAvailable = "N/A"

// formatRunTime renders a run time in seconds as "1h 02m 34s 567ms".
// Units are omitted from the left while zero; milliseconds are omitted
// when zero.
func formatRunTime(seconds *float64) string {
	if seconds == nil || !isFinite(*seconds) {
		return notAvailable
	}

	total := *seconds
	if total < 0.001 {
		return "0s"
	}

	whole := int(total)
	ms := int(math.Round((total - float64(whole)) * 1000))

	if ms == 1000 {
		ms = 0
		whole++
	}

	m, s := whole/60, whole%60
	h, m := m/60, m%60

	var parts []string

	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}

	if h > 0 {
		parts = append(parts, fmt.Sprintf("%02dm", m))
	} else if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}

	if h > 0 || m > 0 {
		parts = append(parts, fmt.Sprintf("%02ds", s))
	} else {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}

	if ms > 0 {
		parts = append(parts, fmt.Sprintf("%03dms", ms))
	}

	return strings.Join(parts, " ")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// printTable writes aligned columns to the given writer. headers and each
// row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
