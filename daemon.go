package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/uwmodem/modem"
)

//go:generate go tool mockgen -destination=mock_daemon_test.go -package=main . Uplink,ShadowStore

// Uplink forwards received packets to the network stack
type Uplink interface {
	Publish(p *modem.Packet) error
}

// ShadowStore keeps the last known modem health
type ShadowStore interface {
	Store(ctx context.Context, h modem.Health) error
}

// Broadcaster fans events out to live subscribers
type Broadcaster interface {
	Broadcast(v any)
}

// Daemon is the single consumer of the session's events. Uplink, Shadow
// and Events are optional.
type Daemon struct {
	Logger  *slog.Logger
	Session *modem.Session
	Uplink  Uplink
	Shadow  ShadowStore
	Events  Broadcaster
}

// Run drains the session until ctx is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.Session.EventsReady():
			for _, ev := range d.Session.DrainEvents() {
				d.handle(ev)
			}
		case <-d.Session.CheckC():
			d.check(ctx)
		}
	}
}

// Flush handles the events still queued, typically the failed sends
// reported by Session.Stop after Run returned.
func (d *Daemon) Flush() {
	for _, ev := range d.Session.DrainEvents() {
		d.handle(ev)
	}
}

func (d *Daemon) handle(ev modem.Event) {
	switch ev.Kind {
	case modem.EventReceived:
		p := ev.Packet
		d.Logger.Debug("Packet received", "src", p.Src, "dst", p.Dst, "length", len(p.Payload), "errored", p.Errored)
		if d.Uplink != nil {
			if err := d.Uplink.Publish(p); err != nil {
				d.Logger.Error("Failed to publish packet", "error", err, "src", p.Src)
			}
		}
	case modem.EventTxEnded:
		p := ev.Packet
		if p.Failed {
			d.Logger.Warn("Transmission failed", "dst", p.Dst, "seq", p.Seq)
		} else {
			d.Logger.Info("Transmission ended", "dst", p.Dst, "seq", p.Seq, "duration", ev.Time.Sub(p.TxTime))
		}
	case modem.EventModemState:
		d.Logger.Warn("Modem state changed", "state", ev.State)
	case modem.EventReport:
		d.Logger.Info("Modem report", "fields", ev.Report.Fields)
	}

	if d.Events != nil {
		d.Events.Broadcast(newEventMessage(ev))
	}
}

func (d *Daemon) check(ctx context.Context) {
	h := d.Session.Health()
	d.Logger.Debug("Health check", "health", h)
	if d.Shadow == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.Shadow.Store(ctx, h); err != nil {
		d.Logger.Error("Failed to store modem shadow", "error", err)
	}
}

// SendRequest is the body of POST /send and of downlink messages. Payload
// is base64 in JSON.
type SendRequest struct {
	Dst     int    `json:"dst"`
	Payload []byte `json:"payload"`
	Ack     bool   `json:"ack"`
}

// submit queues req on s. Oversized payloads are refused here rather than
// truncated by the interpreter.
func submit(s *modem.Session, req SendRequest) (*modem.Packet, error) {
	if limit := s.MaxPayload(); len(req.Payload) > limit {
		return nil, fmt.Errorf("%d bytes, limit %d: %w", len(req.Payload), limit, modem.ErrPayloadTooLong)
	}
	p := &modem.Packet{Dst: req.Dst, Payload: req.Payload, Ack: req.Ack}
	if err := s.Send(p); err != nil {
		return nil, err
	}
	return p, nil
}

type packetMessage struct {
	Src     int           `json:"src"`
	Dst     int           `json:"dst"`
	Seq     uint8         `json:"seq"`
	Payload []byte        `json:"payload"`
	Ack     bool          `json:"ack,omitempty"`
	Errored bool          `json:"errored,omitempty"`
	Failed  bool          `json:"failed,omitempty"`
	Time    time.Time     `json:"time"`
	Metrics modem.Metrics `json:"metrics"`
}

func newPacketMessage(p *modem.Packet) *packetMessage {
	t := p.RxTime
	if t.IsZero() {
		t = p.TxTime
	}
	return &packetMessage{
		Src:     p.Src,
		Dst:     p.Dst,
		Seq:     p.Seq,
		Payload: p.Payload,
		Ack:     p.Ack,
		Errored: p.Errored,
		Failed:  p.Failed,
		Time:    t,
		Metrics: p.Metrics,
	}
}

type eventMessage struct {
	Kind   string            `json:"kind"`
	Time   time.Time         `json:"time"`
	Packet *packetMessage    `json:"packet,omitempty"`
	State  string            `json:"state,omitempty"`
	Report map[string]string `json:"report,omitempty"`
}

func newEventMessage(ev modem.Event) eventMessage {
	m := eventMessage{Kind: ev.Kind.String(), Time: ev.Time}
	switch ev.Kind {
	case modem.EventReceived, modem.EventTxEnded:
		m.Packet = newPacketMessage(ev.Packet)
	case modem.EventModemState:
		m.State = ev.State.String()
	case modem.EventReport:
		m.Report = ev.Report.Fields
	}
	return m
}
