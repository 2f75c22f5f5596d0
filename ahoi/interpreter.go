package ahoi

import (
	"encoding/hex"
	"strconv"
	"sync/atomic"

	"i4.energy/across/uwmodem/modem"
)

// Interpreter speaks the AHOI binary protocol. Data frames carry the
// sequence number of the request; command frames are numbered from the
// interpreter's own counter.
type Interpreter struct {
	id  uint8
	dsn atomic.Uint32
}

var _ modem.Interpreter = (*Interpreter)(nil)

// New creates an interpreter for the modem with the given id, which is the
// source address of command frames.
func New(id int) *Interpreter {
	return &Interpreter{id: uint8(id)}
}

func (*Interpreter) MaxPayload() int { return MaxPayload }

func (in *Interpreter) Build(cmd modem.Command) []byte {
	if cmd.Kind == modem.CommandSend {
		return buildSend(cmd.Request)
	}

	var payload []byte
	var typ uint8
	switch cmd.Kind {
	case modem.CommandGetAddress:
		typ = TypeID
	case modem.CommandSetAddress:
		typ, payload = TypeID, []byte{uint8(clamp(cmd.Arg, 0, 254))}
	case modem.CommandBatteryVoltage:
		typ = TypeBatVol
	case modem.CommandReset:
		typ = TypeReset
	case modem.CommandGetSourceLevel:
		typ = TypeTxGain
	case modem.CommandSetSourceLevel:
		typ, payload = TypeTxGain, []byte{uint8(clamp(cmd.Arg, 0, 255))}
	case modem.CommandPacketStats:
		typ = TypePacketStat
	case modem.CommandPacketStatsReset:
		typ = TypePacketStatReset
	case modem.CommandModemStatus:
		typ = TypeAllStat
	default:
		return nil
	}
	h := Header{
		Src:  in.id,
		Dst:  Broadcast,
		Type: typ,
		DSN:  uint8(in.dsn.Add(1) - 1),
	}
	return Encode(h, payload)
}

func buildSend(req modem.Request) []byte {
	status := uint8(AckNone)
	if req.Ack {
		status = AckPlain
	}
	h := Header{
		Src:    uint8(req.Src),
		Dst:    uint8(clamp(req.Dst, 0, Broadcast)),
		Type:   TypeData,
		Status: status,
		DSN:    req.Seq,
	}
	return Encode(h, req.Payload[:min(len(req.Payload), MaxPayload)])
}

// FindResponse classifies the first complete frame by its type byte.
// Frames too short to hold a header are reported as KindUnknown so the
// caller skips them.
func (*Interpreter) FindResponse(buf []byte) (modem.ResponseKind, int, int) {
	begin, end, ok := FindFrame(buf)
	if !ok {
		return modem.KindNone, 0, 0
	}
	b := body(buf[begin:end])
	if len(b) < HeaderLen {
		return modem.KindUnknown, begin, end
	}
	return classify(b[2]), begin, end
}

func classify(typ uint8) modem.ResponseKind {
	switch {
	case typ < TypeCommand:
		return modem.KindData
	case typ == TypeConfirm:
		return modem.KindDelivered
	case commandNames[typ] != "":
		return modem.KindReport
	default:
		return modem.KindUnknown
	}
}

// ParseResponse decodes the frame starting at buf[begin]. A frame whose
// body ends before its declared payload yields the payload bytes that
// exist and is marked corrupted.
func (*Interpreter) ParseResponse(kind modem.ResponseKind, buf []byte, begin int) (modem.Response, int, modem.ParseStatus) {
	fb, end, ok := FindFrame(buf[begin:])
	if !ok {
		return modem.Response{}, begin, modem.ParseIncomplete
	}
	end += begin
	if fb != 0 {
		return modem.Response{}, begin + fb, modem.ParseInvalid
	}

	b := body(buf[begin:end])
	if len(b) < HeaderLen {
		return modem.Response{}, end, modem.ParseInvalid
	}
	h := Header{Src: b[0], Dst: b[1], Type: b[2], Status: b[3], DSN: b[4], Len: b[5]}

	r := modem.Response{
		Kind:   kind,
		Src:    int(h.Src),
		Dst:    int(h.Dst),
		Type:   int(h.Type),
		Status: int(h.Status),
		Seq:    h.DSN,
		HasSeq: true,
		Length: int(h.Len),
	}

	payloadEnd := HeaderLen + int(h.Len)
	if payloadEnd > len(b) {
		payloadEnd = len(b)
		r.Corrupted = true
	}
	r.Payload = append([]byte(nil), b[HeaderLen:payloadEnd]...)

	if footer := b[payloadEnd:]; !r.Corrupted && len(footer) >= FooterLen {
		r.Metrics = modem.Metrics{
			Power:     int(footer[0]),
			RSSI:      int(footer[1]),
			BitErrors: int(footer[2]),
			AGCMean:   int(footer[3]),
			AGCMin:    int(footer[4]),
			AGCMax:    int(footer[5]),
		}
	}

	if kind == modem.KindReport {
		r.Fields = map[string]string{
			"command": commandNames[h.Type],
			"payload": hex.EncodeToString(r.Payload),
		}
		if len(r.Payload) == 1 {
			r.Fields["value"] = strconv.Itoa(int(r.Payload[0]))
		}
	}
	return r, end, modem.ParseComplete
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
