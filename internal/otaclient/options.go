package otaclient

import "time"

// Config holds the session parameters for a SessionController, following
// the functional-options pattern go-cyacd's bootloader package uses for
// its Programmer.
type Config struct {
	// ChunkSize bounds the data packet payload; the reference value is
	// ota.DefaultChunkSize.
	ChunkSize int

	// StartTimeout bounds the wait for the start ack (spec §5: 3s).
	StartTimeout time.Duration
	// ProgressTimeout bounds each per-sector progress wait (spec §5: 5s).
	ProgressTimeout time.Duration
	// FinalProgressTimeout bounds the wait for 100% after the last
	// sector (spec §5: 5s).
	FinalProgressTimeout time.Duration

	// Logger receives session lifecycle events. Nil means silent.
	Logger Logger

	// OnProgress, if set, is invoked with the current device-reported
	// percentage each time a per-sector or final progress wait resolves.
	// Updates the device reports between those points are not passed on.
	OnProgress func(percent uint8)
}

func defaultConfig() Config {
	return Config{
		ChunkSize:            492,
		StartTimeout:         3 * time.Second,
		ProgressTimeout:      5 * time.Second,
		FinalProgressTimeout: 5 * time.Second,
		Logger:               nopLogger{},
	}
}

// Option configures a Config.
type Option func(*Config)

// WithChunkSize sets the data packet payload size.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithStartTimeout overrides the start-ack timeout.
func WithStartTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StartTimeout = d
		}
	}
}

// WithProgressTimeout overrides the per-sector progress wait timeout.
func WithProgressTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ProgressTimeout = d
		}
	}
}

// WithFinalProgressTimeout overrides the final-wait timeout.
func WithFinalProgressTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.FinalProgressTimeout = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithProgressCallback registers a callback invoked with the current
// percentage each time a per-sector or final progress wait resolves.
func WithProgressCallback(fn func(percent uint8)) Option {
	return func(c *Config) {
		c.OnProgress = fn
	}
}
