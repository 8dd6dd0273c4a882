//go:build android

package drivers

import "github.com/allbin/serialterm/internal/transport/accessory"

// Default is the driver used when none is configured
const Default = accessory.Name
