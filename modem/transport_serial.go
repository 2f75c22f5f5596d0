package modem

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// SupportedBaudRates lists the line speeds a SerialDialer accepts.
var SupportedBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// SerialOptions are the line settings of a serial port.
type SerialOptions struct {
	// Path is the device node. Relative names are resolved under /dev.
	Path     string
	BaudRate int
	// Parity enables even parity.
	Parity bool
	// TwoStopBits selects two stop bits instead of one.
	TwoStopBits bool
	// FlowControl requests RTS/CTS hardware flow control.
	FlowControl bool
}

// ParseSerialAddress decodes a serial address of the form
//
//	path[:p=0|1][:s=0|1][:f=0|1][:b=<baud>]
//
// Options not present in the address keep the values from defaults.
func ParseSerialAddress(address string, defaults SerialOptions) (SerialOptions, error) {
	opts := defaults
	parts := strings.Split(address, ":")
	if parts[0] == "" {
		return opts, fmt.Errorf("serial address %q: %w", address, ErrNoAddress)
	}
	opts.Path = parts[0]
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/dev/" + opts.Path
	}

	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok || value == "" {
			return opts, fmt.Errorf("serial address %q: malformed option %q", address, part)
		}
		switch key {
		case "p", "s", "f":
			if value != "0" && value != "1" {
				return opts, fmt.Errorf("serial address %q: option %s must be 0 or 1", address, key)
			}
			on := value == "1"
			switch key {
			case "p":
				opts.Parity = on
			case "s":
				opts.TwoStopBits = on
			case "f":
				opts.FlowControl = on
			}
		case "b":
			baud, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("serial address %q: baud rate: %w", address, err)
			}
			opts.BaudRate = baud
		default:
			return opts, fmt.Errorf("serial address %q: unknown option %q", address, key)
		}
	}

	if !slices.Contains(SupportedBaudRates, opts.BaudRate) {
		return opts, fmt.Errorf("serial address %q: baud rate %d not supported", address, opts.BaudRate)
	}
	return opts, nil
}

// Mode converts the options to a go.bug.st/serial port mode with 8 data bits.
func (o SerialOptions) Mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if o.Parity {
		mode.Parity = serial.EvenParity
	}
	if o.TwoStopBits {
		mode.StopBits = serial.TwoStopBits
	}
	return mode
}

// SerialDialer opens an acoustic modem over a serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// Defaults are applied for options missing from the dial address.
	Defaults SerialOptions
	// ReadTimeout bounds each Read so the receive loop never blocks
	// indefinitely. Zero selects one second.
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

func (d SerialDialer) Dial(ctx context.Context, address string) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defaults := d.Defaults
	if defaults.BaudRate == 0 {
		defaults.BaudRate = 115200
	}
	opts, err := ParseSerialAddress(address, defaults)
	if err != nil {
		return nil, err
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FlowControl {
		logger.Warn("Hardware flow control is not supported by the serial driver, ignoring", "port", opts.Path)
	}

	port, err := serial.Open(opts.Path, opts.Mode())
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", opts.Path, err)
	}

	timeout := d.ReadTimeout
	if timeout == 0 {
		timeout = time.Second
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", opts.Path, err)
	}

	logger.Info("Serial port open", "port", opts.Path, "baud", opts.BaudRate)
	return port, nil
}
