package modem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Session drives one acoustic modem. It owns the transport, a receive
// goroutine that frames and parses device responses, and a transmit
// goroutine that sends queued packets and waits for their confirmation.
// The two goroutines meet only through the guarded modem and transmission
// states.
//
// A single consumer goroutine drains the Session's events:
//
//	s, err := modem.New(config)
//	if err != nil { return err }
//	if err := s.Start(ctx); err != nil { return err }
//	defer s.Stop()
//
//	for {
//		select {
//		case <-s.EventsReady():
//			for _, ev := range s.DrainEvents() { ... }
//		case <-s.CheckC():
//			log.Println(s.Health())
//		}
//	}
type Session struct {
	// config contains the session configuration with defaults applied
	config Config
	// logger carries the session tag as its component attribute
	logger *slog.Logger
	// interp is the wire protocol of the device
	interp Interpreter

	// mu guards the lifecycle fields below
	mu sync.Mutex
	// transport is the open connection, nil while stopped
	transport Transport
	// running indicates Start succeeded and Stop was not yet called
	running bool
	// starting is set while Start dials
	starting bool
	// done is closed by Stop to wake every timed wait
	done chan struct{}
	// ticker drives CheckC while running
	ticker *time.Ticker
	// wg tracks the receive and transmit goroutines
	wg sync.WaitGroup

	// receiving and transmitting are cleared by Stop before the transport
	// is closed, so errors caused by the shutdown are not reported
	receiving    atomic.Bool
	transmitting atomic.Bool

	// writeMu serializes writes from the transmit goroutine and Configure
	writeMu sync.Mutex
	// reply is set while Configure waits for the device's answer
	reply atomic.Pointer[chan ResponseKind]

	modemState *monitor[ModemState]
	txState    *monitor[txStatus]

	outbound *queue[*Packet]
	events   *queue[Event]

	// seq is incremented once per sent packet; retransmissions reuse it
	seq     atomic.Uint32
	txMode  atomic.Int32
	ackMode atomic.Bool

	stats stats
}

type stats struct {
	rxPackets       atomic.Uint64
	rxErrored       atomic.Uint64
	rxFailed        atomic.Uint64
	rxFiltered      atomic.Uint64
	txPackets       atomic.Uint64
	txFailed        atomic.Uint64
	retransmissions atomic.Uint64
	forcedResets    atomic.Uint64
	discardedBytes  atomic.Uint64
}

// Health is a snapshot of the Session's state and counters.
type Health struct {
	Running           bool   `json:"running"`
	ModemState        string `json:"modem_state"`
	TransmissionState string `json:"transmission_state"`
	TxMode            string `json:"tx_mode"`
	AckMode           bool   `json:"ack_mode"`
	Seq               uint8  `json:"seq"`
	Queued            int    `json:"queued"`
	RxPackets         uint64 `json:"rx_packets"`
	RxErrored         uint64 `json:"rx_errored"`
	RxFailed          uint64 `json:"rx_failed"`
	RxFiltered        uint64 `json:"rx_filtered"`
	TxPackets         uint64 `json:"tx_packets"`
	TxFailed          uint64 `json:"tx_failed"`
	Retransmissions   uint64 `json:"retransmissions"`
	ForcedResets      uint64 `json:"forced_resets"`
	DiscardedBytes    uint64 `json:"discarded_bytes"`
}

// New creates a stopped Session. The configuration is validated; defaults
// are applied to unset fields.
func New(config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	s := &Session{
		config:     config,
		logger:     config.Logger.With("component", config.Tag),
		interp:     config.Interpreter,
		modemState: newMonitor(Available),
		txState:    newMonitor(txStatus{}),
		outbound:   newQueue[*Packet](),
		events:     newQueue[Event](),
	}
	s.txMode.Store(int32(config.TxMode))
	s.ackMode.Store(config.AckMode)
	return s, nil
}

// Start opens the connection and launches the receive and transmit
// goroutines. It arms the CheckC ticker. The lock is not held while
// dialing, so a listening dialer waiting for its peer does not block the
// other methods.
//
// Start returns ErrNoAddress without side effects when no address is
// configured, and the dialer's error when the connection cannot be opened.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.config.Address == "" {
		s.mu.Unlock()
		s.logger.Error("Failed to start, modem address not set")
		return ErrNoAddress
	}
	s.starting = true
	s.mu.Unlock()

	transport, err := s.config.Dialer.Dial(ctx, s.config.Address)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		s.logger.Error("Failed to open connection", "address", s.config.Address, "error", err)
		return fmt.Errorf("open connection to %s: %w", s.config.Address, err)
	}

	s.transport = transport
	s.done = make(chan struct{})
	s.modemState.Set(Available)
	s.txState.Set(txStatus{})
	s.receiving.Store(true)
	s.transmitting.Store(true)
	s.ticker = time.NewTicker(s.config.HealthCheckPeriod)
	s.running = true

	s.wg.Add(2)
	go s.receiveLoop(transport, s.done)
	go s.transmitLoop(transport, s.done)

	s.logger.Info("Modem session started", "address", s.config.Address)
	return nil
}

// Stop shuts the goroutines down and closes the connection. Packets still
// queued are reported as failed. Stop may be called from any goroutine
// except the Session's own, and more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.receiving.Store(false)
	s.transmitting.Store(false)
	close(s.done)
	s.ticker.Stop()
	transport := s.transport
	s.transport = nil
	s.mu.Unlock()

	if err := transport.Close(); err != nil {
		s.logger.Warn("Failed to close connection", "error", err)
	}
	s.wg.Wait()

	for _, p := range s.outbound.Drain() {
		p.Failed = true
		s.endTx(p)
	}
	s.logger.Info("Modem session stopped")
}

// Running reports whether the Session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Send queues p for transmission and returns immediately. The packet's
// source is set to the modem id; its Ack flag is forced on when the session
// runs in ack mode. The outcome is reported by an EventTxEnded carrying p.
func (s *Session) Send(p *Packet) error {
	if !s.Running() {
		s.logger.Warn("Dropping packet, modem session not running", "dst", p.Dst)
		return ErrNotRunning
	}
	p.Src = s.config.ModemID
	p.Ack = p.Ack || s.ackMode.Load()
	p.Failed = false
	s.outbound.Push(p)
	return nil
}

// Configure sends a configuration or query command and waits for the
// modem to answer. Replies that carry data are delivered as EventReport.
// An error answer from the device is reported as ErrCommandRejected.
func (s *Session) Configure(ctx context.Context, cmd Command) error {
	wire := s.interp.Build(cmd)
	if wire == nil {
		return fmt.Errorf("%s: %w", cmd.Kind, ErrUnsupportedCommand)
	}

	s.mu.Lock()
	transport, done := s.transport, s.done
	s.mu.Unlock()
	if transport == nil {
		return ErrNotRunning
	}

	if _, ok := s.acquire(s.config.ModemTimeout, done, false, nil); !ok {
		return fmt.Errorf("%s: modem not available: %w", cmd.Kind, ErrModemTimeout)
	}
	reply := make(chan ResponseKind, 1)
	s.reply.Store(&reply)
	defer s.reply.CompareAndSwap(&reply, nil)

	if err := s.write(transport, wire); err != nil {
		s.modemState.Set(Available)
		return fmt.Errorf("%s: %w", cmd.Kind, err)
	}

	timer := time.NewTimer(s.config.DeliveryTimeout)
	defer timer.Stop()
	select {
	case kind := <-reply:
		if !rejects(kind) {
			return nil
		}
		s.modemState.Update(func(st ModemState) ModemState {
			if st == Busy {
				return Available
			}
			return st
		})
		return fmt.Errorf("%s: modem answered %s: %w", cmd.Kind, kind, ErrCommandRejected)
	case <-timer.C:
		s.modemState.Set(Available)
		return fmt.Errorf("%s: no reply: %w", cmd.Kind, ErrModemTimeout)
	case <-ctx.Done():
		s.modemState.Set(Available)
		return ctx.Err()
	case <-done:
		return ErrNotRunning
	}
}

// DrainEvents removes and returns all pending events in order.
func (s *Session) DrainEvents() []Event {
	return s.events.Drain()
}

// EventsReady is signalled after events were queued.
func (s *Session) EventsReady() <-chan struct{} {
	return s.events.Ready()
}

// CheckC delivers the periodic health-check ticks while the Session runs.
// It returns nil when stopped.
func (s *Session) CheckC() <-chan time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.ticker.C
}

func (s *Session) SetTxMode(mode TxMode) {
	s.txMode.Store(int32(mode))
}

func (s *Session) TxMode() TxMode {
	return TxMode(s.txMode.Load())
}

func (s *Session) SetAckMode(ack bool) {
	s.ackMode.Store(ack)
}

func (s *Session) ModemState() ModemState {
	return s.modemState.Get()
}

func (s *Session) TransmissionState() TransmissionState {
	return s.txState.Get().State
}

// MaxPayload is the largest payload the interpreter sends unmodified.
func (s *Session) MaxPayload() int {
	return s.interp.MaxPayload()
}

func (s *Session) Health() Health {
	return Health{
		Running:           s.Running(),
		ModemState:        s.ModemState().String(),
		TransmissionState: s.TransmissionState().String(),
		TxMode:            s.TxMode().String(),
		AckMode:           s.ackMode.Load(),
		Seq:               uint8(s.seq.Load()),
		Queued:            s.outbound.Len(),
		RxPackets:         s.stats.rxPackets.Load(),
		RxErrored:         s.stats.rxErrored.Load(),
		RxFailed:          s.stats.rxFailed.Load(),
		RxFiltered:        s.stats.rxFiltered.Load(),
		TxPackets:         s.stats.txPackets.Load(),
		TxFailed:          s.stats.txFailed.Load(),
		Retransmissions:   s.stats.retransmissions.Load(),
		ForcedResets:      s.stats.forcedResets.Load(),
		DiscardedBytes:    s.stats.discardedBytes.Load(),
	}
}

func (s *Session) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events.Push(ev)
}


// acquire waits up to timeout for the modem to be Available and marks it
// Busy. When tx is not nil the transmission state is set to *tx under the
// same locks. With force set, a timeout takes the modem anyway and forced
// is reported; otherwise ok is false.
func (s *Session) acquire(timeout time.Duration, done <-chan struct{}, force bool, tx *txStatus) (forced, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	take := func(requireAvailable bool) bool {
		unlock := lockBoth(s.modemState, s.txState)
		defer unlock()
		if requireAvailable && s.modemState.value != Available {
			return false
		}
		s.modemState.setLocked(Busy)
		if tx != nil {
			s.txState.setLocked(*tx)
		}
		return true
	}

	for {
		state, changed := s.modemState.snapshot()
		if state == Available && take(true) {
			return false, true
		}

		select {
		case <-changed:
		case <-timer.C:
			if !force {
				return false, false
			}
			s.stats.forcedResets.Add(1)
			s.logger.Warn("Modem not available, forcing reset", "state", state.String(), "timeout", timeout)
			take(false)
			return true, true
		case <-done:
			return false, false
		}
	}
}

// setStates updates both states in lock order. A nil argument leaves the
// corresponding state untouched.
func (s *Session) setStates(ms *ModemState, tx func(txStatus) txStatus) {
	unlock := lockBoth(s.modemState, s.txState)
	defer unlock()
	if ms != nil && s.modemState.value != *ms {
		s.modemState.setLocked(*ms)
	}
	if tx != nil {
		s.txState.setLocked(tx(s.txState.value))
	}
}

func (s *Session) write(t Transport, wire []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := t.Write(wire)
	if err != nil {
		return fmt.Errorf("write to modem: %w", err)
	}
	if n < len(wire) {
		return fmt.Errorf("write to modem: short write %d of %d bytes", n, len(wire))
	}
	return nil
}
