// Package drivers selects the transport driver for the running platform.
package drivers

import (
	"fmt"
	"sort"
	"time"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/allbin/serialterm/internal/transport/accessory"
	"github.com/allbin/serialterm/internal/transport/native"
)

// Options carries the driver-specific settings from configuration
type Options struct {
	GrantCommand string
	GrantTimeout time.Duration
	Native       []native.Option
}

type factory func(opts Options) (transport.Driver, error)

var registry = map[string]factory{
	native.Name: func(opts Options) (transport.Driver, error) {
		return native.New(opts.Native...)
	},
	accessory.Name: func(opts Options) (transport.Driver, error) {
		manager, err := accessory.NewHostManager(
			accessory.WithGrantCommand(opts.GrantCommand),
			accessory.WithGrantTimeout(opts.GrantTimeout),
		)
		if err != nil {
			return nil, err
		}
		return accessory.New(manager), nil
	},
}

// Names returns the registered driver names
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named driver. An empty name selects Default.
func New(name string, opts Options) (transport.Driver, error) {
	if name == "" {
		name = Default
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (available: %v)", name, Names())
	}
	d, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", name, err)
	}
	return d, nil
}
