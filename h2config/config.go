// Package h2config holds the plain-struct configuration the demo command
// consults (the decoder builder does not read it), in the
// style of the teacher's pkg/celeris.Config: no flag or viper library,
// just a struct with a Validate method and sane defaults.
package h2config

import (
	"fmt"
	"log"
	"os"
)

// Config configures one side of an h2decode-driven connection.
type Config struct {
	Addr string

	IsServer bool

	MaxConcurrentStreams uint32
	InitialWindowSize    int32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32
	HeaderTableSize      uint32
	AllowPush            bool

	EnableMetrics bool
	EnableTracing bool

	Logger *log.Logger
}

// DefaultConfig returns settings for a server endpoint. Window, frame
// size, and header table size are the RFC 7540 defaults; the limits of
// 250 concurrent streams and a 1 MiB header list are this package's own.
func DefaultConfig() *Config {
	return &Config{
		Addr:                 ":8443",
		IsServer:             true,
		MaxConcurrentStreams: 250,
		InitialWindowSize:    65535,
		MaxFrameSize:         16384,
		MaxHeaderListSize:    1 << 20,
		HeaderTableSize:      4096,
		AllowPush:            false,
		EnableMetrics:        true,
		EnableTracing:        true,
		Logger:               newSilentLogger(),
	}
}

func newSilentLogger() *log.Logger {
	return log.New(os.Stderr, "h2decode: ", log.LstdFlags)
}

// Validate checks field bounds RFC 7540 requires, mirroring the teacher's
// Config.Validate.
func (c *Config) Validate() error {
	if c.MaxFrameSize < 16384 || c.MaxFrameSize > 16777215 {
		return fmt.Errorf("h2config: max frame size %d out of range [16384, 16777215]", c.MaxFrameSize)
	}
	if c.InitialWindowSize < 0 || c.InitialWindowSize > 1<<31-1 {
		return fmt.Errorf("h2config: initial window size %d out of range", c.InitialWindowSize)
	}
	if c.HeaderTableSize == 0 {
		return fmt.Errorf("h2config: header table size must be positive")
	}
	if c.AllowPush && !c.IsServer {
		return fmt.Errorf("h2config: only a server endpoint may advertise push")
	}
	if c.Logger == nil {
		c.Logger = newSilentLogger()
	}
	return nil
}
