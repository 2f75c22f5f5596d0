package modem

import (
	"context"
	"io"
	"sync"
)

// TestTransport is an in-memory Transport playing the device side of a
// connection. Reads block until data is queued with SendData, like a real
// serial port would, and Close unblocks them. Every write is recorded and
// passed to the optional reply hook, which lets tests script a device.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	done     chan struct{}
	closed   bool
	writes   [][]byte
	onWrite  func(t *TestTransport, p []byte)

	// pending holds the part of a chunk that did not fit the last Read.
	// Only the reading goroutine touches it.
	pending []byte
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// OnWrite installs fn to be called after every write with a copy of the
// written bytes.
func (t *TestTransport) OnWrite(fn func(t *TestTransport, p []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWrite = fn
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	data := append([]byte(nil), p...)
	t.writes = append(t.writes, data)
	hook := t.onWrite
	t.mu.Unlock()

	if hook != nil {
		hook(t, data)
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.pending) == 0 {
		select {
		case data := <-t.readChan:
			t.pending = data
		case <-t.done:
			return 0, io.EOF
		}
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.SendBytes([]byte(data))
}

// SendBytes is SendData for binary protocols.
func (t *TestTransport) SendBytes(data []byte) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	select {
	case t.readChan <- append([]byte(nil), data...):
	case <-t.done:
	}
}

// Writes returns a copy of everything written so far, one entry per call.
func (t *TestTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

// TestDialer hands out a fixed Transport.
type TestDialer struct {
	Transport Transport
}

func (d TestDialer) Dial(ctx context.Context, address string) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Transport, nil
}
