package accessory

import (
	"path/filepath"
	"strings"
)

// Probe identifies one family of supported USB-serial adapters
type Probe struct {
	Family     string
	VendorID   string   // empty matches any vendor
	ProductIDs []string // empty matches any product of the vendor
	NamePrefix string   // matched against the device node's base name
}

// ProbeTable is an ordered list of probes; the first match wins
type ProbeTable []Probe

// DefaultProbeTable returns the adapter families supported out of the box
func DefaultProbeTable() ProbeTable {
	return ProbeTable{
		{Family: "FTDI USB Serial", VendorID: "0403"},
		{Family: "Silicon Labs CP210x", VendorID: "10C4"},
		{Family: "WCH CH34x", VendorID: "1A86"},
		{Family: "Prolific PL2303", VendorID: "067B"},
		{Family: "CDC-ACM", NamePrefix: "ttyACM"},
	}
}

func (p Probe) matches(dev Device) bool {
	if p.VendorID == "" && p.NamePrefix == "" {
		return false
	}
	if p.VendorID != "" {
		if !strings.EqualFold(p.VendorID, dev.VendorID) {
			return false
		}
		if len(p.ProductIDs) > 0 {
			found := false
			for _, pid := range p.ProductIDs {
				if strings.EqualFold(pid, dev.ProductID) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if p.NamePrefix != "" && !strings.HasPrefix(filepath.Base(dev.Name), p.NamePrefix) {
		return false
	}
	return true
}

// Match returns the first probe that accepts dev
func (t ProbeTable) Match(dev Device) (Probe, bool) {
	for _, p := range t {
		if p.matches(dev) {
			return p, true
		}
	}
	return Probe{}, false
}
