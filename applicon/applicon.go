// Package applicon implements the protocol of Applicon SeaModem devices.
//
// Commands are JSON objects, one per line:
//
//	{"cmd": "send", "payload": [104,105]}
//
// The modem answers a send with {"cmd": "oook"} and delivers received data
// either as a JSON "msgs" object, whose last payload byte is a CRC, or as
// an S2C-style RECV line.
package applicon

import (
	"bytes"
	"encoding/json"
	"strconv"

	"i4.energy/across/uwmodem/at"
	"i4.energy/across/uwmodem/modem"
)

const (
	MaxPayload = 128

	LF = "\n"
)

var (
	recvPrefix = []byte(at.Recv)
	msgsKey    = []byte(`"cmd": "msgs"`)
	okKey      = []byte(`"cmd": "oook"`)
)

// Interpreter speaks the SeaModem protocol. Received "msgs" objects carry
// no addresses and are taken as sent to the local modem id.
type Interpreter struct {
	id int
}

var _ modem.Interpreter = Interpreter{}

func New(id int) Interpreter {
	return Interpreter{id: id}
}

func (Interpreter) MaxPayload() int { return MaxPayload }

// Build renders a send command. The protocol has no addressing and no
// configuration commands; every other kind returns nil.
func (Interpreter) Build(cmd modem.Command) []byte {
	if cmd.Kind != modem.CommandSend {
		return nil
	}
	payload := cmd.Request.Payload[:min(len(cmd.Request.Payload), MaxPayload)]

	var b bytes.Buffer
	b.WriteString(`{"cmd": "send", "payload": [`)
	for i, v := range payload {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteString("]}" + LF)
	return b.Bytes()
}

// FindResponse returns the earliest complete RECV line or JSON object.
func (Interpreter) FindResponse(buf []byte) (modem.ResponseKind, int, int) {
	kind, begin, end := modem.KindNone, len(buf), 0

	if i := bytes.Index(buf, recvPrefix); i >= 0 {
		if t := bytes.Index(buf[i:], []byte(at.CRLF)); t >= 0 {
			kind, begin, end = modem.KindData, i, i+t+len(at.CRLF)
		}
	}
	for _, key := range [][]byte{msgsKey, okKey} {
		i := bytes.Index(buf, key)
		if i < 0 || i >= begin {
			continue
		}
		c := bytes.IndexByte(buf[i:], '}')
		if c < 0 {
			continue
		}
		kind, begin, end = modem.KindData, objectStart(buf, i), i+c+1
		if bytes.Equal(key, okKey) {
			kind = modem.KindDelivered
		}
	}
	if kind == modem.KindNone {
		return modem.KindNone, 0, 0
	}
	return kind, begin, end
}

// objectStart returns the offset of the brace opening the object that
// contains buf[i], or i when there is none.
func objectStart(buf []byte, i int) int {
	open := bytes.LastIndexByte(buf[:i], '{')
	if open < 0 || bytes.IndexByte(buf[open:i], '}') >= 0 {
		return i
	}
	return open
}

func (in Interpreter) ParseResponse(kind modem.ResponseKind, buf []byte, begin int) (modem.Response, int, modem.ParseStatus) {
	if bytes.HasPrefix(buf[begin:], recvPrefix) {
		return parseRecv(buf, begin)
	}

	c := bytes.IndexByte(buf[begin:], '}')
	if c < 0 {
		return modem.Response{}, begin, modem.ParseIncomplete
	}
	end := begin + c + 1
	if kind == modem.KindDelivered {
		return modem.Response{Kind: modem.KindDelivered}, end, modem.ParseComplete
	}

	var msg message
	if err := json.Unmarshal(buf[begin:end], &msg); err != nil || msg.Cmd != "msgs" {
		return modem.Response{}, end, modem.ParseInvalid
	}
	return in.parseMsgs(msg), end, modem.ParseComplete
}

type message struct {
	Cmd      string `json:"cmd"`
	CRCCheck *bool  `json:"crc_check"`
	Payload  []int  `json:"payload"`
}

func (in Interpreter) parseMsgs(msg message) modem.Response {
	r := modem.Response{
		Kind: modem.KindData,
		Dst:  in.id,
	}
	r.Corrupted = msg.CRCCheck != nil && !*msg.CRCCheck

	values := msg.Payload
	if len(values) > 0 {
		// trailing CRC
		values = values[:len(values)-1]
	}
	if len(values) > MaxPayload {
		values = values[:MaxPayload]
		r.Corrupted = true
	}
	payload := make([]byte, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 0xFF {
			r.Corrupted = true
		}
		payload = append(payload, byte(v))
	}
	r.Payload = payload
	r.Length = len(payload)
	return r
}

// parseRecv decodes the S2C RECV layout. SeaModems report integrity as a
// flag: zero marks a damaged frame.
func parseRecv(buf []byte, begin int) (modem.Response, int, modem.ParseStatus) {
	r, next, status := at.New().ParseResponse(modem.KindData, buf, begin)
	if status != modem.ParseComplete {
		return r, next, status
	}
	truncated := r.Corrupted && r.Metrics.Integrity >= at.MinIntegrity
	r.Corrupted = truncated || r.Metrics.Integrity == 0
	return r, next, status
}
