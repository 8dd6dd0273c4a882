package components

import (
	"fmt"
	"strings"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/tui/styles"
)

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
}

// DataFormatter renders transcript records as single display lines
type DataFormatter struct {
	mode  DisplayMode
	theme styles.Theme
}

func NewDataFormatter(theme styles.Theme) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowASCII:      true,
			ShowTimestamps: true,
		},
		theme: theme,
	}
}

func (df *DataFormatter) SetDisplayMode(mode DisplayMode) {
	df.mode = mode
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) indicator(dir transcript.Direction) string {
	switch dir {
	case transcript.Outbound:
		return df.theme.Outbound.Render("↗ TX")
	case transcript.System:
		return df.theme.System.Render("• --")
	default:
		return df.theme.Inbound.Render("↙ RX")
	}
}

// FormatRecord renders one record. System records are always shown as
// plain text since they carry session messages rather than line data.
func (df *DataFormatter) FormatRecord(rec transcript.Record) string {
	var b strings.Builder

	if df.mode.ShowTimestamps {
		b.WriteString(df.theme.Timestamp.Render(fmt.Sprintf("[%s]", rec.Timestamp.Format("15:04:05.000"))))
		b.WriteByte(' ')
	}
	b.WriteString(df.indicator(rec.Direction))
	b.WriteString(": ")

	if rec.Direction == transcript.System {
		b.WriteString(df.theme.System.Render(rec.Text))
		return b.String()
	}

	data := []byte(rec.Text)
	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+Printable(data))
	}
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(data)))
	}
	b.WriteString(strings.Join(parts, "  "))
	return b.String()
}

func (df *DataFormatter) FormatRecords(records []transcript.Record) []string {
	formatted := make([]string, len(records))
	for i, rec := range records {
		formatted[i] = df.FormatRecord(rec)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

// Printable replaces bytes outside printable ASCII with dots so control
// sequences from the device never reach the terminal.
func Printable(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 32 && c <= 126 {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
