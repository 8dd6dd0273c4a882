package native

// Config holds the optional behaviour of the native driver
type Config struct {
	InitialDTR   *bool // nil leaves the line as the OS opened it
	InitialRTS   *bool
	FlushOnOpen  bool // discard bytes buffered before the session started
	IncludeNames func(name string) bool
}

// Option is a functional option for configuring the driver
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		FlushOnOpen: true,
	}
}

// WithInitialDTR sets the DTR line right after opening
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithInitialRTS sets the RTS line right after opening
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithFlushOnOpen controls whether stale input is discarded on open
func WithFlushOnOpen(flush bool) Option {
	return func(c *Config) error {
		c.FlushOnOpen = flush
		return nil
	}
}

// WithNameFilter restricts enumeration to names accepted by fn
func WithNameFilter(fn func(name string) bool) Option {
	return func(c *Config) error {
		c.IncludeNames = fn
		return nil
	}
}
