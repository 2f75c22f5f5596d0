package at

import (
	"bytes"
	"strconv"
	"strings"

	"i4.energy/across/uwmodem/modem"
)

// ParseCommand decodes the first command in data, as written by Build. It
// is the device side of the protocol and serves modem emulators.
//
// The returned offset is the end of the consumed bytes. ParseIncomplete
// means data holds no full command yet; ParseInvalid means the line at the
// start of data is not a known command and should be skipped up to the
// returned offset.
func ParseCommand(data []byte) (modem.Command, int, modem.ParseStatus) {
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return modem.Command{}, 0, modem.ParseIncomplete
	}
	lineEnd := nl + 1
	line := strings.TrimRight(string(data[:nl]), "\r")

	switch {
	case strings.HasPrefix(line, CmdSendIM+Sep):
		return parseSend(data, len(CmdSendIM+Sep), true, lineEnd)
	case strings.HasPrefix(line, CmdSend+Sep):
		return parseSend(data, len(CmdSend+Sep), false, lineEnd)
	case line == CmdDeliveryStatus:
		return modem.Command{Kind: modem.CommandDeliveryStatus}, lineEnd, modem.ParseComplete
	case line == CmdGetSourceLevel:
		return modem.Command{Kind: modem.CommandGetSourceLevel}, lineEnd, modem.ParseComplete
	case line == CmdGetAddress:
		return modem.Command{Kind: modem.CommandGetAddress}, lineEnd, modem.ParseComplete
	case line == CmdStatus:
		return modem.Command{Kind: modem.CommandModemStatus}, lineEnd, modem.ParseComplete
	case line == CmdSettings:
		return modem.Command{Kind: modem.CommandSettings}, lineEnd, modem.ParseComplete
	case strings.HasPrefix(line, CmdSetAddress):
		return parseArg(modem.CommandSetAddress, line[len(CmdSetAddress):], lineEnd)
	case strings.HasPrefix(line, CmdSetSourceLevel):
		return parseArg(modem.CommandSetSourceLevel, line[len(CmdSetSourceLevel):], lineEnd)
	case strings.HasPrefix(line, CmdReset):
		return parseArg(modem.CommandReset, line[len(CmdReset):], lineEnd)
	default:
		return modem.Command{}, lineEnd, modem.ParseInvalid
	}
}

func parseArg(kind modem.CommandKind, arg string, lineEnd int) (modem.Command, int, modem.ParseStatus) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return modem.Command{}, lineEnd, modem.ParseInvalid
	}
	return modem.Command{Kind: kind, Arg: v}, lineEnd, modem.ParseComplete
}

// parseSend decodes AT*SEND,<len>,<dst>,<payload> and
// AT*SENDIM,<len>,<dst>,<ack|noack>,<payload>. The payload may contain
// newlines; its extent comes from the length field.
func parseSend(data []byte, cursor int, im bool, lineEnd int) (modem.Command, int, modem.ParseStatus) {
	nfields := 2
	if im {
		nfields = 3
	}
	fields := make([]string, 0, nfields)
	for len(fields) < nfields {
		i := bytes.IndexByte(data[cursor:lineEnd], ',')
		if i < 0 {
			return modem.Command{}, lineEnd, modem.ParseInvalid
		}
		fields = append(fields, string(data[cursor:cursor+i]))
		cursor += i + 1
	}

	length, err := strconv.Atoi(fields[0])
	if err != nil || length < 0 || length > MaxPayload {
		return modem.Command{}, lineEnd, modem.ParseInvalid
	}
	dst, err := strconv.Atoi(fields[1])
	if err != nil {
		return modem.Command{}, lineEnd, modem.ParseInvalid
	}

	end := cursor + length
	if end+len(LF) > len(data) {
		return modem.Command{}, 0, modem.ParseIncomplete
	}
	if data[end] != '\n' {
		return modem.Command{}, lineEnd, modem.ParseInvalid
	}

	req := modem.Request{
		Dst:     dst,
		Payload: bytes.Clone(data[cursor:end]),
		Burst:   !im,
	}
	if im {
		switch fields[2] {
		case Ack:
			req.Ack = true
		case NoAck:
		default:
			return modem.Command{}, lineEnd, modem.ParseInvalid
		}
	}
	return modem.Command{Kind: modem.CommandSend, Request: req}, end + len(LF), modem.ParseComplete
}
