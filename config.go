package sessions

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxBufferSize defines the maximum allowed buffer size for read and
	// write operations. This prevents excessive memory allocation; 64KB is
	// sufficient for most serial protocols and aligns with typical OS
	// serial buffer sizes.
	MaxBufferSize = 64 * 1024

	// DefaultReadSize is the read buffer size used when a Read call does
	// not supply one.
	DefaultReadSize = 1024

	// DefaultEventPrefix namespaces per-port event channels: events for a
	// port open at path are published to EventPrefix + path.
	DefaultEventPrefix = "read-"

	// DefaultSubscriberBuffer is the channel depth handed to bus
	// subscribers that do not request one.
	DefaultSubscriberBuffer = 64
)

// Config holds manager-wide tunables. Zero values are replaced with the
// defaults above before validation, so Config{} is always usable.
type Config struct {
	// DefaultReadSize is the per-iteration read buffer size for loops
	// started without an explicit size.
	DefaultReadSize int `validate:"min=1,max=65536"`

	// DefaultTimeout paces read loops started without an explicit timeout.
	DefaultTimeout time.Duration `validate:"min=1"`

	// EventPrefix namespaces per-port event channel names.
	EventPrefix string `validate:"required"`

	// MaxWriteSize caps a single Write/WriteBinary payload.
	MaxWriteSize int `validate:"min=1,max=1048576"`

	// SubscriberBuffer is the default bus subscriber channel depth.
	SubscriberBuffer int `validate:"min=1,max=10000"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		DefaultReadSize:  DefaultReadSize,
		DefaultTimeout:   defaultLineTimeout,
		EventPrefix:      DefaultEventPrefix,
		MaxWriteSize:     MaxBufferSize,
		SubscriberBuffer: DefaultSubscriberBuffer,
	}
}

// withDefaults fills zero-valued fields so partially populated configs stay
// usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultReadSize == 0 {
		c.DefaultReadSize = def.DefaultReadSize
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = def.DefaultTimeout
	}
	if c.EventPrefix == "" {
		c.EventPrefix = def.EventPrefix
	}
	if c.MaxWriteSize == 0 {
		c.MaxWriteSize = def.MaxWriteSize
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = def.SubscriberBuffer
	}
	return c
}

var configValidator = validator.New()

// ValidateConfig validates manager configuration parameters.
func ValidateConfig(cfg Config) error {
	if err := configValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid manager configuration: %w", err)
	}
	return nil
}
