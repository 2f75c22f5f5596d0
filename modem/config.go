package modem

import (
	"log/slog"
	"time"
)

// TxMode selects how the transmit pipeline waits for a send to complete.
type TxMode int

const (
	// TxModeIM sends individual messages and waits for a delivery
	// confirmation, retransmitting on timeout.
	TxModeIM TxMode = iota
	// TxModeBurst sends without per-message confirmation and waits only for
	// the device to finish transmitting.
	TxModeBurst
)

func (m TxMode) String() string {
	if m == TxModeBurst {
		return "burst"
	}
	return "im"
}

const (
	DefaultBufferSize         = 4096
	DefaultMaxReadSize        = 512
	DefaultMaxRetransmissions = 3
	DefaultDeliveryTimeout    = 3 * time.Second
	DefaultModemTimeout       = 210 * time.Millisecond
	DefaultBurstTimeout       = 5 * time.Second
	DefaultHealthCheckPeriod  = 10 * time.Second
	DefaultBroadcastAddress   = 255
)

// Config holds the settings of a Session. Use NewConfigBuilder to obtain a
// validated Config with defaults applied.
type Config struct {
	// Address is the device path or socket address passed to the Dialer.
	Address string
	Dialer  Dialer
	// Interpreter encodes and decodes the modem's wire protocol.
	Interpreter Interpreter
	Logger      *slog.Logger
	// Tag identifies the session in log lines.
	Tag string

	// BufferSize is the capacity of the receive buffer.
	BufferSize int
	// MaxReadSize bounds a single read from the transport.
	MaxReadSize int

	// MaxRetransmissions is how often an unconfirmed send is repeated.
	MaxRetransmissions int
	// DeliveryTimeout bounds each wait for a delivery confirmation.
	DeliveryTimeout time.Duration
	// ModemTimeout bounds waits for the modem to become available.
	ModemTimeout time.Duration
	// BurstTimeout bounds the wait for a burst transmission to end.
	BurstTimeout time.Duration
	// HealthCheckPeriod is the interval of the CheckC ticker.
	HealthCheckPeriod time.Duration

	// ModemID is the local acoustic address.
	ModemID          int
	BroadcastAddress int
	TxMode           TxMode
	// AckMode requests delivery confirmations for data sends.
	AckMode bool
	// Promiscuous delivers inbound data regardless of its destination.
	Promiscuous bool
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.Interpreter == nil {
		return ErrNoInterpreter
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tag == "" {
		c.Tag = "modem"
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxReadSize <= 0 || c.MaxReadSize > c.BufferSize {
		c.MaxReadSize = min(DefaultMaxReadSize, c.BufferSize)
	}
	if c.MaxRetransmissions < 0 {
		c.MaxRetransmissions = 0
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.ModemTimeout <= 0 {
		c.ModemTimeout = DefaultModemTimeout
	}
	if c.BurstTimeout <= 0 {
		c.BurstTimeout = DefaultBurstTimeout
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = DefaultHealthCheckPeriod
	}
	if c.BroadcastAddress == 0 {
		c.BroadcastAddress = DefaultBroadcastAddress
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder whose retransmission count is
// DefaultMaxRetransmissions. Every other field starts at its zero value and
// is defaulted by Build.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: Config{MaxRetransmissions: DefaultMaxRetransmissions}}
}

func (b *ConfigBuilder) WithAddress(address string) *ConfigBuilder {
	b.config.Address = address
	return b
}

func (b *ConfigBuilder) WithDialer(dialer Dialer) *ConfigBuilder {
	b.config.Dialer = dialer
	return b
}

func (b *ConfigBuilder) WithInterpreter(interpreter Interpreter) *ConfigBuilder {
	b.config.Interpreter = interpreter
	return b
}

func (b *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	b.config.Logger = logger
	return b
}

func (b *ConfigBuilder) WithTag(tag string) *ConfigBuilder {
	b.config.Tag = tag
	return b
}

func (b *ConfigBuilder) WithBufferSize(size int) *ConfigBuilder {
	b.config.BufferSize = size
	return b
}

func (b *ConfigBuilder) WithMaxReadSize(size int) *ConfigBuilder {
	b.config.MaxReadSize = size
	return b
}

func (b *ConfigBuilder) WithMaxRetransmissions(n int) *ConfigBuilder {
	b.config.MaxRetransmissions = n
	return b
}

func (b *ConfigBuilder) WithDeliveryTimeout(d time.Duration) *ConfigBuilder {
	b.config.DeliveryTimeout = d
	return b
}

func (b *ConfigBuilder) WithModemTimeout(d time.Duration) *ConfigBuilder {
	b.config.ModemTimeout = d
	return b
}

func (b *ConfigBuilder) WithBurstTimeout(d time.Duration) *ConfigBuilder {
	b.config.BurstTimeout = d
	return b
}

func (b *ConfigBuilder) WithHealthCheckPeriod(d time.Duration) *ConfigBuilder {
	b.config.HealthCheckPeriod = d
	return b
}

func (b *ConfigBuilder) WithModemID(id int) *ConfigBuilder {
	b.config.ModemID = id
	return b
}

func (b *ConfigBuilder) WithBroadcastAddress(addr int) *ConfigBuilder {
	b.config.BroadcastAddress = addr
	return b
}

func (b *ConfigBuilder) WithTxMode(mode TxMode) *ConfigBuilder {
	b.config.TxMode = mode
	return b
}

func (b *ConfigBuilder) WithAckMode(ack bool) *ConfigBuilder {
	b.config.AckMode = ack
	return b
}

func (b *ConfigBuilder) WithPromiscuous(on bool) *ConfigBuilder {
	b.config.Promiscuous = on
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
