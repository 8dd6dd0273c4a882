package components

import (
	"github.com/allbin/serialterm/internal/transport"
	"github.com/allbin/serialterm/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyPort        = "port"
	columnKeyDescription = "description"
	columnKeyVID         = "vid"
	columnKeyPID         = "pid"
	columnKeySerial      = "serial"
	columnKeyProduct     = "product"
)

// PortTable renders enumerated ports as a static table
type PortTable struct {
	model table.Model
}

func NewPortTable(ports []transport.PortInfo, theme styles.Theme) *PortTable {
	p := theme.Palette

	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyDescription, "Type", 22),
		table.NewColumn(columnKeyVID, "VID", 6),
		table.NewColumn(columnKeyPID, "PID", 6),
		table.NewColumn(columnKeySerial, "Serial", 16),
		table.NewFlexColumn(columnKeyProduct, "Product", 1),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		row := table.NewRow(table.RowData{
			columnKeyPort:        port.Name,
			columnKeyDescription: port.Description,
			columnKeyVID:         dash(port.VendorID),
			columnKeyPID:         dash(port.ProductID),
			columnKeySerial:      dash(port.SerialNumber),
			columnKeyProduct:     dash(port.Product),
		})
		if port.USB {
			row = row.WithStyle(lipgloss.NewStyle().Foreground(p.Green))
		}
		rows = append(rows, row)
	}

	model := table.New(columns).
		WithRows(rows).
		WithTargetWidth(100).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(p.Text).
			BorderForeground(p.Surface2).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().Foreground(p.Mauve).Bold(true))

	return &PortTable{model: model}
}

// SetWidth adjusts the table to the terminal width
func (pt *PortTable) SetWidth(width int) {
	if width > 0 {
		pt.model = pt.model.WithTargetWidth(width)
	}
}

func (pt *PortTable) View() string {
	return pt.model.View()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
