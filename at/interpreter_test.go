package at_test

import (
	"bytes"
	"strings"
	"testing"

	"i4.energy/across/uwmodem/at"
	"i4.energy/across/uwmodem/modem"
)

func TestBuild(t *testing.T) {
	interp := at.New()

	tests := []struct {
		name string
		cmd  modem.Command
		want string
	}{
		{
			name: "burst send",
			cmd:  modem.Command{Kind: modem.CommandSend, Request: modem.Request{Dst: 5, Payload: []byte("hello"), Burst: true}},
			want: "AT*SEND,5,5,hello\n",
		},
		{
			name: "im send with ack",
			cmd:  modem.Command{Kind: modem.CommandSend, Request: modem.Request{Dst: 2, Payload: []byte("abc"), Ack: true}},
			want: "AT*SENDIM,3,2,ack,abc\n",
		},
		{
			name: "im send without ack",
			cmd:  modem.Command{Kind: modem.CommandSend, Request: modem.Request{Dst: 2, Payload: []byte("abc")}},
			want: "AT*SENDIM,3,2,noack,abc\n",
		},
		{
			name: "im payload truncated",
			cmd:  modem.Command{Kind: modem.CommandSend, Request: modem.Request{Dst: 1, Payload: bytes.Repeat([]byte("x"), 100)}},
			want: "AT*SENDIM,64,1,noack," + strings.Repeat("x", 64) + "\n",
		},
		{name: "delivery status", cmd: modem.Command{Kind: modem.CommandDeliveryStatus}, want: "AT?DI\n"},
		{name: "reset", cmd: modem.Command{Kind: modem.CommandReset, Arg: 1}, want: "ATZ1\n"},
		{name: "reset clamped", cmd: modem.Command{Kind: modem.CommandReset, Arg: 9}, want: "ATZ4\n"},
		{name: "get source level", cmd: modem.Command{Kind: modem.CommandGetSourceLevel}, want: "AT?L\n"},
		{name: "set source level clamped", cmd: modem.Command{Kind: modem.CommandSetSourceLevel, Arg: -2}, want: "AT!L0\n"},
		{name: "get address", cmd: modem.Command{Kind: modem.CommandGetAddress}, want: "AT?AL\n"},
		{name: "set address", cmd: modem.Command{Kind: modem.CommandSetAddress, Arg: 12}, want: "AT!AL12\n"},
		{name: "set address clamped", cmd: modem.Command{Kind: modem.CommandSetAddress, Arg: 255}, want: "AT!AL254\n"},
		{name: "status", cmd: modem.Command{Kind: modem.CommandModemStatus}, want: "AT?S\n"},
		{name: "settings", cmd: modem.Command{Kind: modem.CommandSettings}, want: "AT&V\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(interp.Build(tt.cmd)); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("unsupported command", func(t *testing.T) {
		if got := interp.Build(modem.Command{Kind: modem.CommandBatteryVoltage}); got != nil {
			t.Errorf("expected nil, got %q", got)
		}
	})
}

func parseAll(t *testing.T, input string) modem.Response {
	t.Helper()
	interp := at.New()
	buf := []byte(input)
	kind, begin, _ := interp.FindResponse(buf)
	if kind == modem.KindNone {
		t.Fatalf("no response found in %q", input)
	}
	r, next, status := interp.ParseResponse(kind, buf, begin)
	if status != modem.ParseComplete {
		t.Fatalf("status = %v, want Complete", status)
	}
	if next != len(buf) {
		t.Errorf("consumed %d of %d bytes", next, len(buf))
	}
	return r
}

func TestParseRecv(t *testing.T) {
	t.Run("RECV", func(t *testing.T) {
		r := parseAll(t, "RECV,5,3,1,976,-45,190,1200,0.25,hello\r\n")
		if r.Kind != modem.KindData || r.Src != 3 || r.Dst != 1 || r.Length != 5 {
			t.Errorf("unexpected header: %+v", r)
		}
		if string(r.Payload) != "hello" {
			t.Errorf("payload = %q", r.Payload)
		}
		if r.Metrics.Bitrate != 976 || r.Metrics.RSSI != -45 || r.Metrics.Integrity != 190 || r.Metrics.Delay != 1200 {
			t.Errorf("unexpected metrics: %+v", r.Metrics)
		}
		if r.Metrics.Velocity != 0.25 {
			t.Errorf("velocity = %v", r.Metrics.Velocity)
		}
		if r.Corrupted {
			t.Error("frame with good integrity marked corrupted")
		}
	})

	t.Run("RECVIM", func(t *testing.T) {
		r := parseAll(t, "RECVIM,3,7,1,ack,2000,-60,150,-0.5,abc\r\n")
		if r.Src != 7 || r.Dst != 1 || string(r.Payload) != "abc" {
			t.Errorf("unexpected response: %+v", r)
		}
		if r.Status != 1 {
			t.Error("ack flag not decoded")
		}
		if r.Metrics.Duration != 2000 || r.Metrics.RSSI != -60 || r.Metrics.Integrity != 150 || r.Metrics.Velocity != -0.5 {
			t.Errorf("unexpected metrics: %+v", r.Metrics)
		}
	})

	t.Run("payload with CRLF", func(t *testing.T) {
		r := parseAll(t, "RECV,4,3,1,976,-45,190,1200,0.0,a\r\nb\r\n")
		if string(r.Payload) != "a\r\nb" {
			t.Errorf("payload = %q", r.Payload)
		}
	})

	t.Run("low integrity is corrupted", func(t *testing.T) {
		r := parseAll(t, "RECV,20,3,1,976,-80,42,1200,0.0,"+strings.Repeat("z", 20)+"\r\n")
		if !r.Corrupted {
			t.Error("expected corrupted response")
		}
		if len(r.Payload) != 20 {
			t.Errorf("payload length = %d", len(r.Payload))
		}
	})

	t.Run("declared length beyond buffer is incomplete", func(t *testing.T) {
		interp := at.New()
		buf := []byte("RECV,10,3,1,976,-45,190,1200,0.0,abc\r\n")
		kind, begin, _ := interp.FindResponse(buf)
		_, next, status := interp.ParseResponse(kind, buf, begin)
		if status != modem.ParseIncomplete {
			t.Errorf("status = %v, want Incomplete", status)
		}
		if next != begin {
			t.Errorf("incomplete parse must not advance, got %d", next)
		}
	})

	t.Run("over-long declared length is truncated", func(t *testing.T) {
		r := parseAll(t, "RECV,5000,3,1,976,-45,190,1200,0.0,abc\r\n")
		if !r.Corrupted || string(r.Payload) != "abc" {
			t.Errorf("unexpected response: %+v", r)
		}
	})

	t.Run("missing terminator after payload is invalid", func(t *testing.T) {
		interp := at.New()
		buf := []byte("RECV,2,3,1,976,-45,190,1200,0.0,abc\r\n")
		kind, begin, end := interp.FindResponse(buf)
		_, next, status := interp.ParseResponse(kind, buf, begin)
		if status != modem.ParseInvalid {
			t.Errorf("status = %v, want Invalid", status)
		}
		if next != end {
			t.Errorf("invalid frame should be skipped to %d, got %d", end, next)
		}
	})

	t.Run("bad number is invalid", func(t *testing.T) {
		interp := at.New()
		buf := []byte("RECV,x,3,1,976,-45,190,1200,0.0,abc\r\n")
		kind, begin, _ := interp.FindResponse(buf)
		if _, _, status := interp.ParseResponse(kind, buf, begin); status != modem.ParseInvalid {
			t.Errorf("status = %v, want Invalid", status)
		}
	})
}

func TestParseSimpleResponses(t *testing.T) {
	t.Run("delivered carries the address", func(t *testing.T) {
		r := parseAll(t, "DELIVERED,5\r\n")
		if r.Kind != modem.KindDelivered || r.Dst != 5 {
			t.Errorf("unexpected response: %+v", r)
		}
	})

	t.Run("settings block", func(t *testing.T) {
		r := parseAll(t, "Source Level: 3\nSource Level Control: 0\nLocal Address: 1\nIdle Timeout: 120\r\n")
		if r.Kind != modem.KindSettings {
			t.Fatalf("kind = %v", r.Kind)
		}
		want := map[string]string{
			"Source Level":         "3",
			"Source Level Control": "0",
			"Local Address":        "1",
			"Idle Timeout":         "120",
		}
		for k, v := range want {
			if r.Fields[k] != v {
				t.Errorf("field %q = %q, want %q", k, r.Fields[k], v)
			}
		}
	})

	t.Run("status block", func(t *testing.T) {
		r := parseAll(t, "Local Address: 1\nRemote Address: 2\nAcoustic Link: Online\r\n")
		if r.Kind != modem.KindModemStatus || r.Fields["Remote Address"] != "2" || r.Fields["Acoustic Link"] != "Online" {
			t.Errorf("unexpected response: %+v", r)
		}
	})
}

// Delivering a response split at any byte boundary yields the same result
// as delivering it whole.
func TestPartialRead(t *testing.T) {
	inputs := []string{
		"OK\r\n",
		"DELIVERED,5\r\n",
		"RECV,4,3,1,976,-45,190,1200,0.0,a\r\nb\r\n",
		"RECVIM,3,7,1,noack,2000,-60,150,-0.5,abc\r\n",
		"Source Level: 3\nGain: 0\r\n",
	}
	interp := at.New()

	for _, input := range inputs {
		want := parseAll(t, input)
		for split := 0; split < len(input); split++ {
			buf := []byte(input[:split])
			kind, begin, _ := interp.FindResponse(buf)
			if kind != modem.KindNone {
				if _, _, status := interp.ParseResponse(kind, buf, begin); status == modem.ParseComplete {
					t.Errorf("%q split at %d: parsed before the response was complete", input, split)
				}
			}

			buf = append(buf, input[split:]...)
			kind, begin, _ = interp.FindResponse(buf)
			got, next, status := interp.ParseResponse(kind, buf, begin)
			if status != modem.ParseComplete || next != len(buf) {
				t.Fatalf("%q split at %d: status %v, next %d", input, split, status, next)
			}
			if got.Kind != want.Kind || !bytes.Equal(got.Payload, want.Payload) || got.Src != want.Src || got.Metrics != want.Metrics {
				t.Errorf("%q split at %d: got %+v, want %+v", input, split, got, want)
			}
		}
	}
}

// Commands built by the interpreter decode back to the same request.
func TestSendRoundTrip(t *testing.T) {
	interp := at.New()
	requests := []modem.Request{
		{Dst: 5, Payload: []byte("0123456789"), Burst: true},
		{Dst: 2, Payload: []byte("line\nbreak"), Ack: true},
		{Dst: 9, Payload: []byte{}},
		{Dst: 255, Payload: []byte{0x00, 0xff, '\r', '\n'}},
	}
	for _, req := range requests {
		wire := interp.Build(modem.Command{Kind: modem.CommandSend, Request: req})
		cmd, next, status := at.ParseCommand(wire)
		if status != modem.ParseComplete || next != len(wire) {
			t.Fatalf("%q: status %v, next %d", wire, status, next)
		}
		got := cmd.Request
		if got.Dst != req.Dst || !bytes.Equal(got.Payload, req.Payload) || got.Ack != req.Ack || got.Burst != req.Burst {
			t.Errorf("%q: got %+v, want %+v", wire, got, req)
		}
	}
}
