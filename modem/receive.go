package modem

import (
	"errors"
	"io"
	"net"

	"go.bug.st/serial"
)

func (s *Session) receiveLoop(t Transport, done <-chan struct{}) {
	defer s.wg.Done()

	buf := make([]byte, s.config.BufferSize)
	w := 0
	for s.receiving.Load() {
		if w == len(buf) {
			s.logger.Error("Receive buffer full without a complete response, discarding", "bytes", w)
			s.stats.discardedBytes.Add(uint64(w))
			w = 0
		}

		n, err := t.Read(buf[w:min(len(buf), w+s.config.MaxReadSize)])
		if err != nil {
			if !s.receiving.Load() {
				break
			}
			if connectionLost(err) {
				s.logger.Error("Connection to modem lost", "error", err)
				s.receiving.Store(false)
				s.setStates(ptr(Quit), nil)
				s.emit(Event{Kind: EventModemState, State: Quit})
				break
			}
			s.logger.Debug("Read error", "error", err)
			continue
		}
		if n <= 0 {
			continue
		}
		w += n
		w = s.scan(buf, w)
	}
	s.logger.Debug("Receive loop stopped")
}

// scan extracts every complete response from buf[:w], then moves the
// unconsumed tail to the start of buf and returns its length. A response
// whose parse is incomplete stays buffered and is parsed again, from the
// same offset, once more bytes arrived.
func (s *Session) scan(buf []byte, w int) int {
	consumed := 0
	for consumed < w {
		kind, begin, end := s.interp.FindResponse(buf[consumed:w])
		if kind == KindNone {
			break
		}
		begin += consumed
		end += consumed
		if begin > consumed {
			s.logger.Debug("Skipping unframed bytes", "bytes", begin-consumed)
			s.stats.discardedBytes.Add(uint64(begin - consumed))
		}

		resp, next, status := s.interp.ParseResponse(kind, buf[:w], begin)
		switch status {
		case ParseIncomplete:
			consumed = begin
			return compact(buf, consumed, w)
		case ParseInvalid:
			s.logger.Warn("Discarding invalid response", "kind", kind.String(), "bytes", end-begin)
			s.stats.discardedBytes.Add(uint64(end - begin))
			consumed = max(end, begin+1)
			continue
		}

		consumed = max(next, begin+1)
		s.updateStatus(resp)
	}
	return compact(buf, consumed, w)
}

func compact(buf []byte, consumed, w int) int {
	if consumed == 0 {
		return w
	}
	return copy(buf, buf[consumed:w])
}

// connectionLost reports read errors after which no more bytes can arrive.
func connectionLost(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortClosed
}

func ptr[T any](v T) *T { return &v }
