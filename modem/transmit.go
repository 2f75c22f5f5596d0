package modem

import (
	"time"
)

// idlePoll bounds the transmit goroutine's wait on an empty queue so the
// transmitting flag is rechecked regularly.
const idlePoll = time.Second

func (s *Session) transmitLoop(t Transport, done <-chan struct{}) {
	defer s.wg.Done()
	for s.transmitting.Load() {
		p, ok := s.outbound.PopWait(idlePoll, done)
		if !ok {
			continue
		}
		s.transmit(t, p, done)
	}
	s.logger.Debug("Transmit loop stopped")
}

// transmit sends one packet and blocks until it is confirmed, retries are
// exhausted or the session stops. It emits exactly one EventTxEnded.
func (s *Session) transmit(t Transport, p *Packet, done <-chan struct{}) {
	seq := uint8(s.seq.Load())
	defer s.seq.Add(1)

	mode := s.TxMode()
	p.Seq = seq
	req := Request{
		Src:     p.Src,
		Dst:     p.Dst,
		Payload: p.Payload,
		Ack:     p.Ack && mode == TxModeIM,
		Burst:   mode == TxModeBurst,
		Seq:     seq,
	}
	if limit := s.interp.MaxPayload(); len(req.Payload) > limit {
		s.logger.Warn("Payload too long, truncating", "len", len(req.Payload), "max", limit)
	}

	wire := s.interp.Build(Command{Kind: CommandSend, Request: req})
	if wire == nil {
		s.logger.Error("Failed to build send command", "dst", p.Dst)
		p.Failed = true
		s.endTx(p)
		return
	}

	pending := txStatus{State: TxPending, Seq: seq, Ack: req.Ack}
	forced, ok := s.acquire(s.config.ModemTimeout, done, true, &pending)
	if !ok {
		p.Failed = true
		s.endTx(p)
		return
	}
	if forced {
		s.logger.Debug("Modem taken after forced reset", "seq", seq)
	}

	p.TxTime = time.Now()
	s.logger.Debug("Sending packet", "dst", p.Dst, "seq", seq, "len", len(p.Payload), "ack", req.Ack, "mode", mode.String())
	if err := s.write(t, wire); err != nil {
		s.logger.Error("Failed to send packet", "seq", seq, "error", err)
		s.release(false)
		p.Failed = true
		s.endTx(p)
		return
	}

	timeout, retries := s.config.DeliveryTimeout, s.config.MaxRetransmissions
	if mode == TxModeBurst {
		timeout, retries = s.config.BurstTimeout, 0
	}

	poller, polls := s.interp.(DeliveryPoller)
	polls = polls && req.Ack

	for attempt := 1; ; attempt++ {
		st, ok := s.txState.WaitFor(isTxIdle, timeout, done)
		if ok {
			p.Failed = st.Outcome == outcomeFailed
			break
		}
		if !s.transmitting.Load() {
			p.Failed = true
			break
		}
		if attempt > retries {
			s.logger.Warn("No delivery confirmation, giving up", "seq", seq, "attempts", attempt)
			s.release(true)
			p.Failed = true
			break
		}

		query, ok := s.rearm(polls)
		if !ok {
			continue
		}
		s.stats.retransmissions.Add(1)
		retry := wire
		if query {
			retry = poller.BuildDeliveryQuery()
		}
		s.logger.Info("No delivery confirmation, retrying", "seq", seq, "retry", attempt, "of", retries, "query", query)
		if err := s.write(t, retry); err != nil {
			s.logger.Error("Failed to resend packet", "seq", seq, "error", err)
			s.release(false)
			p.Failed = true
			break
		}
	}

	s.endTx(p)
}

// rearm prepares another attempt for the request in flight. A request the
// device accepted is polled for when poll is set; anything else is sent
// again. ok is false when the request ended meanwhile.
func (s *Session) rearm(poll bool) (query, ok bool) {
	unlock := lockBoth(s.modemState, s.txState)
	defer unlock()
	v := s.txState.value
	switch {
	case v.State == TxIdle:
		return false, false
	case poll && v.State == TxWaiting:
		return true, true
	}
	if s.modemState.value != Busy {
		s.modemState.setLocked(Busy)
	}
	if v.State != TxPending {
		v.State = TxPending
		s.txState.setLocked(v)
	}
	return false, true
}

// release forces the modem back to Available and the transmitter to idle,
// recording the request in flight as failed.
func (s *Session) release(timedOut bool) {
	available := Available
	s.setStates(&available, func(v txStatus) txStatus {
		v.State = TxIdle
		v.Outcome = outcomeFailed
		return v
	})
	if timedOut {
		s.stats.forcedResets.Add(1)
	}
}

func (s *Session) endTx(p *Packet) {
	if p.Failed {
		s.stats.txFailed.Add(1)
	} else {
		s.stats.txPackets.Add(1)
	}
	s.emit(Event{Kind: EventTxEnded, Packet: p})
}

func isTxIdle(v txStatus) bool { return v.State == TxIdle }
