package modem

import "errors"

var (
	// ErrNoDialer is returned when a Session is configured without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNoInterpreter is returned when a Session is configured without an
	// Interpreter for the modem's wire protocol.
	ErrNoInterpreter = errors.New("no interpreter configured")

	// ErrNoAddress is returned by Start when no connection address is set.
	//
	// The Session logs the condition and stays stopped. Nothing is dialed.
	ErrNoAddress = errors.New("no modem address configured")

	// ErrNotRunning is returned when an operation that needs an open
	// connection is attempted on a Session that was never started or has
	// already been stopped.
	ErrNotRunning = errors.New("modem session not running")

	// ErrAlreadyRunning is returned when Start is called on a running
	// Session.
	ErrAlreadyRunning = errors.New("modem session already running")

	// ErrPayloadTooLong reports a payload larger than the interpreter's
	// MaxPayload.
	//
	// Session.Send never returns it: oversized payloads are truncated by
	// the interpreter. Front ends use it to reject requests early.
	ErrPayloadTooLong = errors.New("payload too long")

	// ErrUnsupportedCommand is returned when the interpreter cannot render
	// a command for its protocol.
	ErrUnsupportedCommand = errors.New("command not supported by protocol")

	// ErrCommandRejected is returned by Configure when the device answers
	// the command with an error.
	ErrCommandRejected = errors.New("command rejected by modem")

	// ErrModemTimeout is returned when the modem did not become available
	// within the modem timeout.
	ErrModemTimeout = errors.New("modem timeout")
)
