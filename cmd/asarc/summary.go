package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alseid-engine/anima/engine/archive"
	"github.com/alseid-engine/anima/engine/core"
)

var (
	summaryHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	summaryTotalStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("76"))
	summaryBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printBuildSummary reopens the archive just written at path and
// prints a per-file size/compression-ratio table, reusing the reader
// path (engine/archive.Open) rather than threading a file list out of
// ArchiveBuilder.Build.
func printBuildSummary(path string) {
	built, err := archive.Open(path)
	if err != nil {
		core.LogWarn("asarc: built %s but could not reopen it for a summary: %s", path, err)
		return
	}

	type row struct {
		name       string
		kind       string
		rawSize    uint64
		compressed uint64
	}

	rows := make([]row, 0, len(built.Files))
	var totalRaw, totalCompressed uint64

	for _, f := range built.Files {
		var raw, compressed uint64
		for _, sub := range f.SubFiles {
			raw += sub.RawSize
			compressed += uint64(len(sub.CompressedData))
		}
		rows = append(rows, row{name: f.Name, kind: f.Type.String(), rawSize: raw, compressed: compressed})
		totalRaw += raw
		totalCompressed += compressed
	}

	widths := [4]int{len("FILE"), len("TYPE"), len("RAW"), len("PACKED")}
	for _, r := range rows {
		widths[0] = max(widths[0], len(r.name))
		widths[1] = max(widths[1], len(r.kind))
		widths[2] = max(widths[2], len(formatBytes(r.rawSize)))
		widths[3] = max(widths[3], len(formatBytes(r.compressed)))
	}

	var b strings.Builder
	fmt.Fprintln(&b, summaryHeaderStyle.Render(formatRow(widths, "FILE", "TYPE", "RAW", "PACKED")))
	fmt.Fprintln(&b, summaryBorderStyle.Render(strings.Repeat("-", widths[0]+widths[1]+widths[2]+widths[3]+6)))
	for _, r := range rows {
		fmt.Fprintln(&b, formatRow(widths, r.name, r.kind, formatBytes(r.rawSize), formatBytes(r.compressed)))
	}

	ratio := "n/a"
	if totalCompressed > 0 {
		ratio = fmt.Sprintf("%.2fx", float64(totalRaw)/float64(totalCompressed))
	}
	fmt.Fprintln(&b, summaryTotalStyle.Render(fmt.Sprintf(
		"%d files, %s -> %s (%s)", len(rows), formatBytes(totalRaw), formatBytes(totalCompressed), ratio)))

	fmt.Fprint(os.Stdout, b.String())
}

func formatRow(widths [4]int, file, kind, raw, packed string) string {
	return fmt.Sprintf("%-*s  %-*s  %*s  %*s", widths[0], file, widths[1], kind, widths[2], raw, widths[3], packed)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
