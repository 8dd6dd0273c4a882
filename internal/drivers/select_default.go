//go:build !android

package drivers

import "github.com/allbin/serialterm/internal/transport/native"

// Default is the driver used when none is configured
const Default = native.Name
