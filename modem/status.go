package modem

import "time"

// updateStatus applies one parsed response to the session state and queues
// the events it produces.
func (s *Session) updateStatus(r Response) {
	s.logger.Debug("Response", "kind", r.Kind.String(), "src", r.Src, "dst", r.Dst, "len", r.Length)
	defer s.answerCommand(r.Kind)

	switch r.Kind {
	case KindData:
		s.setStates(ptr(Available), nil)
		s.receive(r)

	case KindOK:
		s.setStates(ptr(Available), func(v txStatus) txStatus {
			if v.State == TxPending {
				v.State = TxWaiting
			}
			return v
		})

	case KindDelivering:
		s.setStates(ptr(Available), func(v txStatus) txStatus {
			if v.State != TxIdle {
				v.State = TxWaiting
			}
			return v
		})

	case KindDelivered:
		s.confirm(r, outcomeDelivered)

	case KindEmpty:
		// Nothing buffered only means delivered once the device took the
		// message.
		s.setStates(ptr(Available), func(v txStatus) txStatus {
			if v.State == TxWaiting {
				v.State = TxIdle
				v.Outcome = outcomeDelivered
			}
			return v
		})

	case KindNotAccepted, KindBufferNotEmpty:
		// The request stays pending and is sent again on the next retry.
		s.logger.Warn("Modem refused request", "kind", r.Kind.String())
		s.setStates(ptr(Available), nil)

	case KindSendEnd:
		// Only unacknowledged sends end with the transmission.
		s.setStates(ptr(Available), func(v txStatus) txStatus {
			if v.State != TxIdle && !v.Ack {
				v.State = TxIdle
				v.Outcome = outcomeDelivered
			}
			return v
		})

	case KindDropped, KindFailed, KindWrongAddress, KindConnectionClosed:
		s.logger.Warn("Transfer failed", "kind", r.Kind.String())
		s.confirm(r, outcomeFailed)

	case KindSendStart:
		s.setStates(ptr(Transmitting), nil)

	case KindBusy, KindBufferFull:
		s.setStates(ptr(Busy), nil)

	case KindPhyOff:
		s.deviceState(Quit)
	case KindInternal:
		s.deviceState(Reset)
	case KindInitNoise:
		s.deviceState(Noise)
	case KindInitDeaf:
		s.deviceState(Deaf)

	case KindRecvFailed:
		s.stats.rxFailed.Add(1)
		s.setStates(ptr(Available), nil)

	case KindSettings, KindModemStatus, KindReport, KindBitrate, KindProtocolID:
		s.setStates(ptr(Available), nil)
		report := r
		s.emit(Event{Kind: EventReport, Report: &report})

	default:
		s.setStates(ptr(Available), nil)
	}
}

// confirm ends the request in flight with the given outcome. Confirmations
// that carry a sequence number must match the request's.
func (s *Session) confirm(r Response, outcome txOutcome) {
	s.setStates(ptr(Available), func(v txStatus) txStatus {
		if v.State == TxIdle {
			return v
		}
		if r.HasSeq && (r.Seq != v.Seq || r.Src != s.config.ModemID) {
			s.logger.Warn("Ignoring confirmation for another request", "seq", r.Seq, "src", r.Src, "expected", v.Seq)
			return v
		}
		v.State = TxIdle
		v.Outcome = outcome
		return v
	})
}

// deviceState records a state pushed by the device. Such states are not
// recovered by retrying, so the request in flight fails.
func (s *Session) deviceState(state ModemState) {
	s.logger.Warn("Modem state changed", "state", state.String())
	s.setStates(&state, func(v txStatus) txStatus {
		if v.State != TxIdle {
			v.State = TxIdle
			v.Outcome = outcomeFailed
		}
		return v
	})
	s.emit(Event{Kind: EventModemState, State: state})
}

// receive turns an inbound data response into a packet for the stack.
func (s *Session) receive(r Response) {
	if !s.config.Promiscuous && r.Dst != s.config.ModemID && r.Dst != s.config.BroadcastAddress {
		s.stats.rxFiltered.Add(1)
		s.logger.Debug("Dropping packet for another node", "src", r.Src, "dst", r.Dst)
		return
	}
	p := &Packet{
		Src:     r.Src,
		Dst:     r.Dst,
		Payload: r.Payload,
		Seq:     r.Seq,
		Errored: r.Corrupted,
		RxTime:  time.Now(),
		Metrics: r.Metrics,
	}
	s.stats.rxPackets.Add(1)
	if p.Errored {
		s.stats.rxErrored.Add(1)
	}
	s.emit(Event{Kind: EventReceived, Packet: p, Time: p.RxTime})
}

// answerCommand hands the kind of a reply to a waiting Configure.
// Notifications about transfers and inbound data are not replies.
func (s *Session) answerCommand(kind ResponseKind) {
	switch kind {
	case KindData, KindRecvStart, KindRecvEnd, KindRecvFailed,
		KindInitNoise, KindInitDeaf, KindInitListen,
		KindSendStart, KindSendEnd, KindDelivered, KindDropped, KindFailed,
		KindConnectionClosed:
		return
	}
	if reply := s.reply.Swap(nil); reply != nil {
		*reply <- kind
	}
}

// rejects reports whether kind is an error answer to a command.
func rejects(kind ResponseKind) bool {
	switch kind {
	case KindCommandError, KindNotAccepted, KindOutOfRange, KindBusy,
		KindBufferNotEmpty, KindBufferFull, KindPhyOff, KindInternal,
		KindWrongAddress:
		return true
	}
	return false
}
