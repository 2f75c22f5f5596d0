package modem

import (
	"context"
	"io"
)

//go:generate go tool mockgen -destination=mock_transport_test.go -package=modem . Transport,Dialer

// Transport represents an established, bidirectional byte stream to an
// acoustic modem.
//
// A Transport is assumed to be already connected and ready for use. Typical
// implementations are serial ports, TCP or UDP sockets to a modem emulator,
// or in-memory fakes used for testing. Close must unblock a Read pending on
// another goroutine.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to an acoustic modem.
//
// Dialer abstracts how the modem connection is created and is used by
// Session.Start only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial creates and returns a connected Transport for address. The
	// address format is defined by the implementation. Dial may block and
	// should respect cancellation and deadlines provided by the context.
	Dial(ctx context.Context, address string) (Transport, error)
}
