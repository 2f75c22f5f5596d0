package modem_test

import (
	"fmt"
	"io"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/uwmodem/modem"
)

// MockSequenceBuilder scripts an S2C device on a MockTransport. Every step
// expects one write and queues the device's reply for the reading
// goroutine.
type MockSequenceBuilder struct {
	transport *modem.MockTransport
	replies   chan string
	closed    chan struct{}
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		replies:   make(chan string, 16),
		closed:    make(chan struct{}),
		calls:     []any{},
	}
}

func (b *MockSequenceBuilder) expect(cmd, reply string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd)).DoAndReturn(func(p []byte) (int, error) {
			if reply != "" {
				b.replies <- reply
			}
			return len(p), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) SendIM(dst int, payload string, ack bool, reply string) *MockSequenceBuilder {
	flag := "noack"
	if ack {
		flag = "ack"
	}
	return b.expect(fmt.Sprintf("AT*SENDIM,%d,%d,%s,%s\n", len(payload), dst, flag, payload), reply)
}

func (b *MockSequenceBuilder) Send(dst int, payload string, reply string) *MockSequenceBuilder {
	return b.expect(fmt.Sprintf("AT*SEND,%d,%d,%s\n", len(payload), dst, payload), reply)
}

func (b *MockSequenceBuilder) DeliveryQuery(reply string) *MockSequenceBuilder {
	return b.expect("AT?DI\n", reply)
}

func (b *MockSequenceBuilder) Status(reply string) *MockSequenceBuilder {
	return b.expect("AT?S\n", reply)
}

// Build installs the reading and closing side of the device and returns
// the ordered write expectations for gomock.InOrder.
func (b *MockSequenceBuilder) Build() []any {
	b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		select {
		case r := <-b.replies:
			return copy(p, r), nil
		case <-b.closed:
			return 0, io.EOF
		}
	}).AnyTimes()
	b.transport.EXPECT().Close().DoAndReturn(func() error {
		close(b.closed)
		return nil
	}).Times(1)
	return b.calls
}
