// Package accessory implements the permission-gated USB-serial driver.
//
// Unlike the native driver, a device must be granted to this process before
// it can be opened. Open never blocks waiting for that grant: it asks the
// Manager to request access and reports transport.ErrPermissionRequired so
// the caller can retry once the grant has happened.
package accessory

import (
	"fmt"
	"sort"
	"time"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/rs/zerolog/log"
)

// Name is the registry name of this driver
const Name = "accessory"

// Recommended timeouts for accessory endpoints
const (
	DefaultReadTimeout  = 200 * time.Millisecond
	DefaultWriteTimeout = 500 * time.Millisecond
)

// Device is a physical USB-serial adapter visible to a Manager
type Device struct {
	Name         string `json:"name"`
	VendorID     string `json:"vendor_id"`
	ProductID    string `json:"product_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Manager is the platform's USB device service
type Manager interface {
	Devices() ([]Device, error)
	HasPermission(dev Device) bool
	// RequestPermission starts an asynchronous grant request and returns
	// without waiting for the outcome.
	RequestPermission(dev Device) error
	OpenDevice(dev Device, mode transport.Mode) (transport.Handle, error)
}

// Driver enumerates and opens probed devices through a Manager
type Driver struct {
	manager Manager
	probes  ProbeTable
}

// Option configures a Driver
type Option func(*Driver)

// WithProbeTable replaces the table of supported adapter families
func WithProbeTable(table ProbeTable) Option {
	return func(d *Driver) {
		d.probes = table
	}
}

// Ensure Driver implements the transport interfaces at compile time
var (
	_ transport.Driver    = (*Driver)(nil)
	_ transport.Describer = (*Driver)(nil)
)

// New creates an accessory driver backed by manager
func New(manager Manager, opts ...Option) *Driver {
	d := &Driver{
		manager: manager,
		probes:  DefaultProbeTable(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Name() string {
	return Name
}

// probed returns supported devices sorted by name
func (d *Driver) probed() ([]Device, []Probe, error) {
	devices, err := d.manager.Devices()
	if err != nil {
		return nil, nil, err
	}

	var matched []Device
	var probes []Probe
	for _, dev := range devices {
		p, ok := d.probes.Match(dev)
		if !ok {
			log.Debug().Str("device", dev.Name).Str("vid", dev.VendorID).Msg("Skipping unsupported USB device")
			continue
		}
		matched = append(matched, dev)
		probes = append(probes, p)
	}

	idx := make([]int, len(matched))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return matched[idx[a]].Name < matched[idx[b]].Name })

	sortedDevs := make([]Device, len(idx))
	sortedProbes := make([]Probe, len(idx))
	for i, j := range idx {
		sortedDevs[i] = matched[j]
		sortedProbes[i] = probes[j]
	}
	return sortedDevs, sortedProbes, nil
}

// Enumerate lists the names of supported devices
func (d *Driver) Enumerate() ([]string, error) {
	devices, _, err := d.probed()
	if err != nil {
		return nil, &transport.OpError{Op: "enumerate", Err: err}
	}

	names := make([]string, len(devices))
	for i, dev := range devices {
		names[i] = dev.Name
	}
	return names, nil
}

// Describe lists supported devices with their USB identity
func (d *Driver) Describe() ([]transport.PortInfo, error) {
	devices, probes, err := d.probed()
	if err != nil {
		return nil, &transport.OpError{Op: "enumerate", Err: err}
	}

	infos := make([]transport.PortInfo, len(devices))
	for i, dev := range devices {
		info := transport.NewPortInfo(dev.Name)
		info.USB = true
		info.VendorID = dev.VendorID
		info.ProductID = dev.ProductID
		info.SerialNumber = dev.SerialNumber
		info.Product = dev.Product
		if probes[i].Family != "" {
			info.Description = probes[i].Family
		}
		infos[i] = info
	}
	return infos, nil
}

// Open opens the named device, requesting permission first if needed
func (d *Driver) Open(port string, mode transport.Mode) (transport.Handle, error) {
	if err := mode.Validate(); err != nil {
		return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)}
	}

	devices, _, err := d.probed()
	if err != nil {
		return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)}
	}

	var dev *Device
	for i := range devices {
		if devices[i].Name == port {
			dev = &devices[i]
			break
		}
	}
	if dev == nil {
		return nil, &transport.OpError{Op: "open", Port: port, Err: transport.ErrDeviceNotFound}
	}

	if !d.manager.HasPermission(*dev) {
		if err := d.manager.RequestPermission(*dev); err != nil {
			return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: permission request: %w", transport.ErrOpenFailed, err)}
		}
		log.Info().Str("device", dev.Name).Msg("Requested device permission")
		return nil, &transport.OpError{Op: "open", Port: port, Err: transport.ErrPermissionRequired}
	}

	h, err := d.manager.OpenDevice(*dev, mode)
	if err != nil {
		if transport.IsDeviceNotFound(err) {
			return nil, &transport.OpError{Op: "open", Port: port, Err: err}
		}
		return nil, &transport.OpError{Op: "open", Port: port, Err: fmt.Errorf("%w: %w", transport.ErrOpenFailed, err)}
	}

	log.Info().Str("device", dev.Name).Str("mode", mode.String()).Msg("Accessory device opened")
	return h, nil
}
