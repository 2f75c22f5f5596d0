package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"i4.energy/across/uwmodem/modem"
)

// Bridge connects the session to NATS. Received packets are published on
// uwmodem.<id>.uplink; messages on uwmodem.<id>.downlink are sent.
type Bridge struct {
	logger   *slog.Logger
	conn     *nats.Conn
	session  *modem.Session
	uplink   string
	downlink string
	sub      *nats.Subscription
}

func NewBridge(conn *nats.Conn, session *modem.Session, id int, logger *slog.Logger) *Bridge {
	return &Bridge{
		logger:   logger,
		conn:     conn,
		session:  session,
		uplink:   fmt.Sprintf("uwmodem.%d.uplink", id),
		downlink: fmt.Sprintf("uwmodem.%d.downlink", id),
	}
}

// Publish implements Uplink
func (b *Bridge) Publish(p *modem.Packet) error {
	data, err := json.Marshal(newPacketMessage(p))
	if err != nil {
		return err
	}
	return b.conn.Publish(b.uplink, data)
}

// Subscribe starts consuming the downlink subject
func (b *Bridge) Subscribe() error {
	sub, err := b.conn.Subscribe(b.downlink, b.handleDownlink)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.downlink, err)
	}
	b.sub = sub
	b.logger.Info("Consuming downlink", "subject", b.downlink)
	return nil
}

func (b *Bridge) handleDownlink(msg *nats.Msg) {
	var req SendRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.logger.Warn("Failed to decode downlink message", "error", err)
		b.respond(msg, err)
		return
	}

	_, err := submit(b.session, req)
	if err != nil {
		b.logger.Error("Failed to queue downlink packet", "error", err, "dst", req.Dst)
	}
	b.respond(msg, err)
}

// respond answers request-style downlink messages
func (b *Bridge) respond(msg *nats.Msg, err error) {
	if msg.Reply == "" {
		return
	}
	status := map[string]string{"status": "queued"}
	if err != nil {
		status = map[string]string{"status": "error", "message": err.Error()}
	}
	data, _ := json.Marshal(status)
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to answer downlink request", "error", err)
	}
}

// Close stops consuming the downlink subject
func (b *Bridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}
