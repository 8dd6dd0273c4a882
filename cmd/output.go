/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/charmbracelet/lipgloss"
)

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	txStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	rxStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	sysStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Italic(true)
)

// printRecord writes one transcript record as a display line. Line endings
// are trimmed and remaining control characters escaped.
func printRecord(w io.Writer, rec transcript.Record) {
	var label string
	switch rec.Direction {
	case transcript.Outbound:
		label = txStyle.Render("TX ")
	case transcript.System:
		label = sysStyle.Render("SYS")
	default:
		label = rxStyle.Render("RX ")
	}

	text := strings.TrimRight(rec.Text, "\r\n")
	text = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return '·'
		}
		return r
	}, text)

	fmt.Fprintf(w, "%s %s %s\n",
		timestampStyle.Render(rec.Timestamp.Format("15:04:05.000")),
		label,
		text)
}

func printRecords(w io.Writer, records []transcript.Record) {
	for _, rec := range records {
		printRecord(w, rec)
	}
}

// systemErrors returns the text of system records, used by commands that
// surface session failures on stderr.
func systemErrors(records []transcript.Record) []string {
	var out []string
	for _, rec := range records {
		if rec.Direction == transcript.System {
			out = append(out, rec.Text)
		}
	}
	return out
}
