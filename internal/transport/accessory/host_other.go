//go:build !linux

package accessory

import (
	"time"

	"github.com/allbin/serialterm/internal/transport"
)

// DefaultGrantTimeout bounds how long a permission request stays pending
const DefaultGrantTimeout = 2 * time.Minute

// HostManager is only available on Linux hosts
type HostManager struct{}

// HostOption configures a HostManager
type HostOption func(*HostManager)

func WithGrantCommand(command string) HostOption { return func(*HostManager) {} }

func WithGrantTimeout(d time.Duration) HostOption { return func(*HostManager) {} }

// NewHostManager reports that no host USB service exists on this platform
func NewHostManager(opts ...HostOption) (*HostManager, error) {
	return nil, transport.ErrUnsupported
}

func (m *HostManager) Devices() ([]Device, error) { return nil, transport.ErrUnsupported }

func (m *HostManager) HasPermission(dev Device) bool { return false }

func (m *HostManager) RequestPermission(dev Device) error { return transport.ErrUnsupported }

func (m *HostManager) OpenDevice(dev Device, mode transport.Mode) (transport.Handle, error) {
	return nil, transport.ErrUnsupported
}
