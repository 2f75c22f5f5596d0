package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jessevdk/go-flags"

	"i4.energy/across/uwmodem/ahoi"
	"i4.energy/across/uwmodem/applicon"
	"i4.energy/across/uwmodem/at"
	"i4.energy/across/uwmodem/modem"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP API listens on (e.g. "0.0.0.0:8080")
	BindAddress string `toml:"bind_address"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `toml:"log_level"`
	// NATSURL enables the NATS packet bridge when set
	NATSURL string `toml:"nats_url"`
	// RedisAddr enables the Redis health shadow when set
	RedisAddr string `toml:"redis_addr"`

	Modem ModemConfig `toml:"modem"`
}

// ModemConfig describes the modem and how to reach it
type ModemConfig struct {
	// Address is a serial address ("ttyUSB0:b=9600") or a socket address
	// ("[host:]port")
	Address string `toml:"address"`
	// Protocol is the wire protocol: "s2c", "ahoi" or "applicon"
	Protocol string `toml:"protocol"`
	// Network is "tcp", "udp" or "listen" for socket addresses
	Network string `toml:"network"`
	// BaudRate applies to serial addresses without a b= option
	BaudRate int `toml:"baud_rate"`
	// ID is the local acoustic address
	ID int `toml:"id"`

	TxMode             string   `toml:"tx_mode"`
	AckMode            bool     `toml:"ack_mode"`
	Promiscuous        bool     `toml:"promiscuous"`
	BufferSize         int      `toml:"buffer_size"`
	MaxReadSize        int      `toml:"max_read_size"`
	MaxRetransmissions int      `toml:"max_retransmissions"`
	DeliveryTimeout    Duration `toml:"delivery_timeout"`
	ModemTimeout       Duration `toml:"modem_timeout"`
	BurstTimeout       Duration `toml:"burst_timeout"`
	HealthCheckPeriod  Duration `toml:"health_check_period"`
}

// Duration is a time.Duration written as "3s" in configuration files
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Options are the command-line flags. Flags left unset do not override
// values from the file or the environment.
type Options struct {
	ConfigFile  string `short:"c" long:"config" description:"TOML configuration file"`
	BindAddress string `long:"bind-address" description:"Bind address for the HTTP server"`
	LogLevel    string `long:"log-level" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	Address     string `short:"a" long:"address" description:"Modem serial or socket address"`
	Protocol    string `short:"p" long:"protocol" description:"Modem protocol" choice:"s2c" choice:"ahoi" choice:"applicon"`
	Network     string `long:"network" description:"Socket network" choice:"tcp" choice:"udp" choice:"listen"`
	BaudRate    int    `short:"b" long:"baud-rate" description:"Baud rate for serial communication"`
	ModemID     int    `long:"modem-id" description:"Local acoustic address"`
	TxMode      string `long:"tx-mode" description:"Transmission mode" choice:"im" choice:"burst"`
	AckMode     bool   `long:"ack" description:"Request delivery confirmations"`
	NATSURL     string `long:"nats-url" description:"NATS server URL for the packet bridge"`
	RedisAddr   string `long:"redis-addr" description:"Redis address for the health shadow"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.LogLevel = "info"
		c.Modem = ModemConfig{
			Address:            "ttyUSB0",
			Protocol:           "s2c",
			Network:            "tcp",
			BaudRate:           115200,
			ID:                 1,
			TxMode:             "im",
			MaxRetransmissions: modem.DefaultMaxRetransmissions,
			DeliveryTimeout:    Duration{modem.DefaultDeliveryTimeout},
			ModemTimeout:       Duration{modem.DefaultModemTimeout},
			BurstTimeout:       Duration{modem.DefaultBurstTimeout},
			HealthCheckPeriod:  Duration{modem.DefaultHealthCheckPeriod},
		}
		return nil
	}
}

// WithFile loads configuration from a TOML file. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		if _, err := toml.DecodeFile(path, c); err != nil {
			return fmt.Errorf("load config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("UWMODEM_BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if level := os.Getenv("UWMODEM_LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if addr := os.Getenv("UWMODEM_ADDRESS"); addr != "" {
			c.Modem.Address = addr
		}

		if protocol := os.Getenv("UWMODEM_PROTOCOL"); protocol != "" {
			c.Modem.Protocol = protocol
		}

		if id := os.Getenv("UWMODEM_ID"); id != "" {
			if v, err := strconv.Atoi(id); err == nil {
				c.Modem.ID = v
			}
		}

		if baud := os.Getenv("UWMODEM_BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.Modem.BaudRate = b
			}
		}

		if url := os.Getenv("UWMODEM_NATS_URL"); url != "" {
			c.NATSURL = url
		}

		if addr := os.Getenv("UWMODEM_REDIS_ADDR"); addr != "" {
			c.RedisAddr = addr
		}

		return nil
	}
}

// WithFlags loads configuration from the command-line flags the parser saw
func WithFlags(parser *flags.Parser, opts *Options) ConfigOption {
	return func(c *Config) error {
		isSet := func(name string) bool {
			o := parser.FindOptionByLongName(name)
			return o != nil && o.IsSet()
		}
		if isSet("bind-address") {
			c.BindAddress = opts.BindAddress
		}
		if isSet("log-level") {
			c.LogLevel = opts.LogLevel
		}
		if isSet("address") {
			c.Modem.Address = opts.Address
		}
		if isSet("protocol") {
			c.Modem.Protocol = opts.Protocol
		}
		if isSet("network") {
			c.Modem.Network = opts.Network
		}
		if isSet("baud-rate") {
			c.Modem.BaudRate = opts.BaudRate
		}
		if isSet("modem-id") {
			c.Modem.ID = opts.ModemID
		}
		if isSet("tx-mode") {
			c.Modem.TxMode = opts.TxMode
		}
		if isSet("ack") {
			c.Modem.AckMode = opts.AckMode
		}
		if isSet("nats-url") {
			c.NATSURL = opts.NATSURL
		}
		if isSet("redis-addr") {
			c.RedisAddr = opts.RedisAddr
		}
		return nil
	}
}

// Level maps LogLevel to a slog level, defaulting to info
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Interpreter returns the protocol codec named by Protocol
func (m ModemConfig) Interpreter() (modem.Interpreter, error) {
	switch m.Protocol {
	case "s2c":
		return at.New(), nil
	case "ahoi":
		return ahoi.New(m.ID), nil
	case "applicon":
		return applicon.New(m.ID), nil
	default:
		return nil, fmt.Errorf("unknown modem protocol %q", m.Protocol)
	}
}

// Dialer returns a socket dialer for "[host:]port" addresses and a serial
// dialer for everything else
func (m ModemConfig) Dialer(logger *slog.Logger) modem.Dialer {
	if _, _, err := modem.SplitSocketAddress(m.Address); err == nil {
		d := modem.SocketDialer{Network: m.Network, Logger: logger}
		if m.Network == "listen" {
			d.Network, d.Listen = "tcp", true
		}
		return d
	}
	return modem.SerialDialer{
		Defaults: modem.SerialOptions{BaudRate: m.BaudRate},
		Logger:   logger,
	}
}

// SessionConfig builds the modem session configuration
func (m ModemConfig) SessionConfig(logger *slog.Logger) (modem.Config, error) {
	interp, err := m.Interpreter()
	if err != nil {
		return modem.Config{}, err
	}
	txMode := modem.TxModeIM
	switch m.TxMode {
	case "", "im":
	case "burst":
		txMode = modem.TxModeBurst
	default:
		return modem.Config{}, fmt.Errorf("unknown tx mode %q", m.TxMode)
	}

	return modem.NewConfigBuilder().
		WithAddress(m.Address).
		WithDialer(m.Dialer(logger)).
		WithInterpreter(interp).
		WithLogger(logger).
		WithTag(m.Protocol).
		WithModemID(m.ID).
		WithTxMode(txMode).
		WithAckMode(m.AckMode).
		WithPromiscuous(m.Promiscuous).
		WithBufferSize(m.BufferSize).
		WithMaxReadSize(m.MaxReadSize).
		WithMaxRetransmissions(m.MaxRetransmissions).
		WithDeliveryTimeout(m.DeliveryTimeout.Duration).
		WithModemTimeout(m.ModemTimeout.Duration).
		WithBurstTimeout(m.BurstTimeout.Duration).
		WithHealthCheckPeriod(m.HealthCheckPeriod.Duration).
		Build()
}
