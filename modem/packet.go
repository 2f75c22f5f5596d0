package modem

import (
	"fmt"
	"time"
)

// Packet is the unit exchanged with the network stack. Outbound packets are
// handed to Send; inbound packets arrive as EventReceived.
type Packet struct {
	Src     int
	Dst     int
	Payload []byte
	// Ack requests a delivery confirmation for this packet.
	Ack bool
	// Seq is the session sequence number the packet was sent with.
	Seq uint8
	// Errored marks inbound data the device reported as damaged.
	Errored bool
	// Failed marks an outbound packet that was never confirmed.
	Failed  bool
	TxTime  time.Time
	RxTime  time.Time
	Metrics Metrics
}

// EventKind discriminates Event.
type EventKind int

const (
	// EventReceived carries an inbound data packet.
	EventReceived EventKind = iota
	// EventTxEnded reports the end of an outbound request, successful or
	// not. Exactly one is emitted per sent packet.
	EventTxEnded
	// EventModemState reports a state pushed by the device such as a
	// reset or physical-layer shutdown.
	EventModemState
	// EventReport carries the reply to a status or settings query.
	EventReport
)

func (k EventKind) String() string {
	switch k {
	case EventReceived:
		return "received"
	case EventTxEnded:
		return "tx-ended"
	case EventModemState:
		return "modem-state"
	case EventReport:
		return "report"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a message from the driver goroutines to the single consumer that
// drains the Session. Which fields are set depends on Kind.
type Event struct {
	Kind   EventKind
	Packet *Packet
	State  ModemState
	Report *Response
	Time   time.Time
}
