package transport

import (
	"path/filepath"
	"strings"
)

// PortInfo describes an enumerated port
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	USB          bool   `json:"usb"`
	VendorID     string `json:"vendor_id,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// NewPortInfo builds the description fields derivable from the port name
func NewPortInfo(name string) PortInfo {
	return PortInfo{
		Name:        name,
		Description: PortDescription(name),
		USB:         isUSBName(filepath.Base(name)),
	}
}

// PortDescription provides human-readable descriptions for different port types
func PortDescription(name string) string {
	base := filepath.Base(name)
	switch {
	case strings.HasPrefix(base, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(base, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(base, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(base, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(base, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(base, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(base, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(base, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(base, "cu.usb"), strings.HasPrefix(base, "tty.usb"):
		return "USB Serial Port"
	case strings.HasPrefix(strings.ToUpper(base), "COM"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}

func isUSBName(base string) bool {
	return strings.HasPrefix(base, "ttyUSB") ||
		strings.HasPrefix(base, "ttyACM") ||
		strings.HasPrefix(base, "cu.usb") ||
		strings.HasPrefix(base, "tty.usb")
}

// MatchesFilter reports whether the port belongs to the named class:
// "usb", "standard", "arm", or "" / "all" for everything.
func (p PortInfo) MatchesFilter(filter string) bool {
	base := strings.ToLower(filepath.Base(p.Name))
	switch strings.ToLower(filter) {
	case "", "all":
		return true
	case "usb":
		return p.USB || strings.HasPrefix(base, "ttyusb") || strings.HasPrefix(base, "ttyacm")
	case "standard":
		return strings.HasPrefix(base, "ttys") && !strings.HasPrefix(base, "ttysac")
	case "arm":
		return strings.HasPrefix(base, "ttyama")
	default:
		return false
	}
}
