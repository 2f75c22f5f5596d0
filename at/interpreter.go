package at

import (
	"bytes"
	"strconv"
	"strings"

	"i4.energy/across/uwmodem/modem"
)

// Interpreter speaks the S2C command protocol. It keeps no state.
type Interpreter struct{}

var (
	_ modem.Interpreter    = Interpreter{}
	_ modem.DeliveryPoller = Interpreter{}
)

func New() Interpreter {
	return Interpreter{}
}

func (Interpreter) MaxPayload() int { return MaxPayload }

func (Interpreter) BuildDeliveryQuery() []byte {
	return []byte(CmdDeliveryStatus + LF)
}

// Build renders cmd as an S2C command line. Payloads are truncated to the
// command's limit and numeric arguments are clamped into range.
func (Interpreter) Build(cmd modem.Command) []byte {
	switch cmd.Kind {
	case modem.CommandSend:
		return buildSend(cmd.Request)
	case modem.CommandDeliveryStatus:
		return []byte(CmdDeliveryStatus + LF)
	case modem.CommandReset:
		return []byte(CmdReset + strconv.Itoa(clamp(cmd.Arg, 0, MaxResetLevel)) + LF)
	case modem.CommandGetSourceLevel:
		return []byte(CmdGetSourceLevel + LF)
	case modem.CommandSetSourceLevel:
		return []byte(CmdSetSourceLevel + strconv.Itoa(clamp(cmd.Arg, 0, MaxSourceLevel)) + LF)
	case modem.CommandGetAddress:
		return []byte(CmdGetAddress + LF)
	case modem.CommandSetAddress:
		return []byte(CmdSetAddress + strconv.Itoa(clamp(cmd.Arg, MinAddress, MaxAddress)) + LF)
	case modem.CommandModemStatus:
		return []byte(CmdStatus + LF)
	case modem.CommandSettings:
		return []byte(CmdSettings + LF)
	default:
		return nil
	}
}

func buildSend(req modem.Request) []byte {
	payload := req.Payload
	dst := strconv.Itoa(clamp(req.Dst, 0, 255))

	var b bytes.Buffer
	if req.Burst {
		payload = payload[:min(len(payload), MaxPayload)]
		b.WriteString(CmdSend + Sep + strconv.Itoa(len(payload)) + Sep + dst + Sep)
	} else {
		payload = payload[:min(len(payload), MaxIMPayload)]
		flag := NoAck
		if req.Ack {
			flag = Ack
		}
		b.WriteString(CmdSendIM + Sep + strconv.Itoa(len(payload)) + Sep + dst + Sep + flag + Sep)
	}
	b.Write(payload)
	b.WriteString(LF)
	return b.Bytes()
}

func (Interpreter) FindResponse(buf []byte) (modem.ResponseKind, int, int) {
	return FindResponse(buf)
}

// ParseResponse decodes the response of the given kind at buf[begin:].
func (Interpreter) ParseResponse(kind modem.ResponseKind, buf []byte, begin int) (modem.Response, int, modem.ParseStatus) {
	data := buf[begin:]
	term := bytes.Index(data, []byte(CRLF))
	if term < 0 {
		return modem.Response{}, begin, modem.ParseIncomplete
	}
	lineEnd := begin + term + len(CRLF)

	switch kind {
	case modem.KindData:
		if bytes.HasPrefix(data, []byte(RecvIM)) {
			return parseRecv(buf, begin, lineEnd, len(RecvIM), recvIMFields)
		}
		return parseRecv(buf, begin, lineEnd, len(Recv), recvFields)

	case modem.KindSettings, modem.KindModemStatus:
		return modem.Response{
			Kind:   kind,
			Fields: parseBlock(data[:term]),
		}, lineEnd, modem.ParseComplete

	default:
		r := modem.Response{Kind: kind}
		line := string(data[:term])
		// DELIVERED,<addr> and friends name the remote party.
		if _, arg, ok := strings.Cut(line, Sep); ok {
			if addr, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
				r.Dst = addr
			}
		}
		if kind == modem.KindBitrate || kind == modem.KindUnknown || kind == modem.KindCommandError {
			r.Fields = map[string]string{"line": line}
		}
		return r, lineEnd, modem.ParseComplete
	}
}

type recvLayout int

const (
	// RECV,<len>,<src>,<dst>,<bitrate>,<rssi>,<integrity>,<delay>,<velocity>,<payload>
	recvFields recvLayout = iota
	// RECVIM,<len>,<src>,<dst>,<ack>,<duration>,<rssi>,<integrity>,<velocity>,<payload>
	recvIMFields
)

const recvHeaderFields = 8

func parseRecv(buf []byte, begin, lineEnd, prefixLen int, layout recvLayout) (modem.Response, int, modem.ParseStatus) {
	// The header fields never contain CRLF, so they lie within the line.
	cursor := begin + prefixLen
	fields := make([]string, 0, recvHeaderFields)
	for len(fields) < recvHeaderFields {
		i := bytes.IndexByte(buf[cursor:lineEnd], ',')
		if i < 0 {
			return modem.Response{}, lineEnd, modem.ParseInvalid
		}
		fields = append(fields, string(buf[cursor:cursor+i]))
		cursor += i + 1
	}

	ints := make([]int, recvHeaderFields)
	for i, f := range fields {
		if layout == recvFields && i == 7 || layout == recvIMFields && (i == 3 || i == 7) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return modem.Response{}, lineEnd, modem.ParseInvalid
		}
		ints[i] = v
	}
	velocity, err := strconv.ParseFloat(strings.TrimSpace(fields[7]), 64)
	if err != nil {
		return modem.Response{}, lineEnd, modem.ParseInvalid
	}

	r := modem.Response{
		Kind:   modem.KindData,
		Length: ints[0],
		Src:    ints[1],
		Dst:    ints[2],
	}
	r.Metrics.Velocity = velocity
	switch layout {
	case recvFields:
		r.Metrics.Bitrate = ints[3]
		r.Metrics.RSSI = ints[4]
		r.Metrics.Integrity = ints[5]
		r.Metrics.Delay = ints[6]
	case recvIMFields:
		r.Status = boolToInt(strings.TrimSpace(fields[3]) == Ack)
		r.Metrics.Duration = ints[4]
		r.Metrics.RSSI = ints[5]
		r.Metrics.Integrity = ints[6]
	}
	r.Corrupted = r.Metrics.Integrity < MinIntegrity

	payloadBegin := cursor
	length := r.Length
	if length < 0 || length > MaxPayload {
		// Take what the line holds and flag it.
		payloadEnd := min(lineEnd-len(CRLF), payloadBegin+MaxPayload)
		r.Payload = bytes.Clone(buf[payloadBegin:payloadEnd])
		r.Length = len(r.Payload)
		r.Corrupted = true
		return r, lineEnd, modem.ParseComplete
	}

	end := payloadBegin + length
	if end+len(CRLF) > len(buf) {
		return modem.Response{}, begin, modem.ParseIncomplete
	}
	if !bytes.Equal(buf[end:end+len(CRLF)], []byte(CRLF)) {
		return modem.Response{}, lineEnd, modem.ParseInvalid
	}
	r.Payload = bytes.Clone(buf[payloadBegin:end])
	return r, end + len(CRLF), modem.ParseComplete
}

// parseBlock reads the "key: value" lines of a settings or status block.
func parseBlock(block []byte) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(string(block), LF) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
