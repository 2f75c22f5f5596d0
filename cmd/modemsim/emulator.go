package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"i4.energy/across/uwmodem/at"
	"i4.energy/across/uwmodem/modem"
)

// Emulator answers S2C commands the way a modem with a perfect acoustic
// link would.
type Emulator struct {
	Logger *slog.Logger
	// ID is the local acoustic address
	ID int
	// Loopback echoes every sent payload back as a RECV from its
	// destination
	Loopback bool
	// Silent drops sends without any progress report, like a modem whose
	// peer is out of range
	Silent bool
	// Delay separates progress lines
	Delay time.Duration

	sourceLevel int
	remote      int
}

// splitCommands is a bufio.SplitFunc yielding one command per token. Send
// payloads may contain newlines.
func splitCommands(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	_, next, status := at.ParseCommand(data)
	if status == modem.ParseIncomplete {
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
	return next, data[:next], nil
}

// Serve answers commands read from rw until it is closed
func (e *Emulator) Serve(rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	scanner.Split(splitCommands)

	for scanner.Scan() {
		if err := e.handle(rw, scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (e *Emulator) handle(w io.Writer, token []byte) error {
	cmd, _, status := at.ParseCommand(token)
	if status != modem.ParseComplete {
		e.Logger.Warn("Rejecting command", "command", strconv.Quote(string(token)))
		return e.reply(w, at.ErrWrongFormat)
	}
	e.Logger.Debug("Command", "kind", cmd.Kind, "arg", cmd.Arg)

	switch cmd.Kind {
	case modem.CommandSend:
		return e.send(w, cmd.Request)
	case modem.CommandDeliveryStatus:
		if e.Silent {
			return nil
		}
		return e.reply(w, at.Empty)
	case modem.CommandReset:
		return e.reply(w, at.OK)
	case modem.CommandGetSourceLevel:
		return e.reply(w, strconv.Itoa(e.sourceLevel))
	case modem.CommandSetSourceLevel:
		if cmd.Arg < 0 || cmd.Arg > at.MaxSourceLevel {
			return e.reply(w, at.ErrOutOfRange)
		}
		e.sourceLevel = cmd.Arg
		return e.reply(w, at.OK)
	case modem.CommandGetAddress:
		return e.reply(w, strconv.Itoa(e.ID))
	case modem.CommandSetAddress:
		if cmd.Arg < at.MinAddress || cmd.Arg > at.MaxAddress {
			return e.reply(w, at.ErrOutOfRange)
		}
		e.ID = cmd.Arg
		return e.reply(w, at.OK)
	case modem.CommandModemStatus:
		return e.reply(w, fmt.Sprintf("%s %d\n%s %d\nAcoustic Link: Online", at.LocalAddress, e.ID, at.RemoteAddress, e.remote))
	case modem.CommandSettings:
		return e.reply(w, fmt.Sprintf("%s %d\nSource Level Control: 0\n%s %d\nIdle Timeout: 120", at.SourceLevel, e.sourceLevel, at.LocalAddress, e.ID))
	default:
		return e.reply(w, at.ErrUnknownCommand)
	}
}

func (e *Emulator) send(w io.Writer, req modem.Request) error {
	e.remote = req.Dst
	if e.Silent {
		return e.reply(w, at.OK)
	}

	lines := []string{at.OK, at.SendStart, at.SendEnd}
	if req.Ack {
		lines = []string{at.OK, at.Delivering, at.Delivered + at.Sep + strconv.Itoa(req.Dst)}
	}
	for _, line := range lines {
		if err := e.reply(w, line); err != nil {
			return err
		}
	}

	if !e.Loopback {
		return nil
	}
	// RECV,<len>,<src>,<dst>,<bitrate>,<rssi>,<integrity>,<delay>,<velocity>,<payload>
	recv := fmt.Sprintf("%s%d,%d,%d,976,-45,190,1200,0.0,", at.Recv, len(req.Payload), req.Dst, e.ID)
	return e.reply(w, recv+string(req.Payload))
}

func (e *Emulator) reply(w io.Writer, line string) error {
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}
	_, err := io.WriteString(w, line+at.CRLF)
	return err
}
