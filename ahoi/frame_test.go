package ahoi_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"i4.energy/across/uwmodem/ahoi"
)

func TestStuff(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{name: "empty", in: []byte{}, want: []byte{}},
		{name: "no escapes", in: []byte{1, 2, 3}, want: []byte{1, 2, 3}},
		{name: "single DLE", in: []byte{ahoi.DLE}, want: []byte{ahoi.DLE, ahoi.DLE}},
		{name: "DLE before ETX", in: []byte{ahoi.DLE, ahoi.ETX}, want: []byte{ahoi.DLE, ahoi.DLE, ahoi.ETX}},
		{name: "two DLEs", in: []byte{ahoi.DLE, ahoi.DLE}, want: []byte{ahoi.DLE, ahoi.DLE, ahoi.DLE, ahoi.DLE}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ahoi.Stuff(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Stuff(% x) = % x, want % x", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapeIdempotence(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		p := make([]byte, r.IntN(64))
		for i := range p {
			// bias towards the escape code
			if r.IntN(4) == 0 {
				p[i] = ahoi.DLE
			} else {
				p[i] = byte(r.IntN(256))
			}
		}
		if got := ahoi.FixEscapes(ahoi.Stuff(p)); !bytes.Equal(got, p) {
			t.Fatalf("FixEscapes(Stuff(% x)) = % x", p, got)
		}
	}
}

func TestEncode(t *testing.T) {
	h := ahoi.Header{Src: 1, Dst: ahoi.DLE, Type: ahoi.TypeData, Status: ahoi.AckPlain, DSN: 7}
	got := ahoi.Encode(h, []byte{0xAA, ahoi.DLE})
	want := []byte{
		ahoi.DLE, ahoi.STX,
		1, ahoi.DLE, ahoi.DLE, 0x00, 0x01, 7, 2,
		0xAA, ahoi.DLE, ahoi.DLE,
		ahoi.DLE, ahoi.ETX,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestFindFrame(t *testing.T) {
	frame := ahoi.Encode(ahoi.Header{Src: 2, Dst: 1}, []byte{ahoi.DLE, ahoi.ETX, ahoi.DLE, ahoi.STX})

	tests := []struct {
		name  string
		input []byte
		ok    bool
		begin int
		end   int
	}{
		{name: "whole frame", input: frame, ok: true, begin: 0, end: len(frame)},
		{name: "escaped delimiters do not end the frame", input: append(frame[:len(frame)-2:len(frame)-2], 0x55), ok: false},
		{name: "leading noise", input: append([]byte{0x00, ahoi.DLE, 0x7F, ahoi.ETX}, frame...), ok: true, begin: 4, end: 4 + len(frame)},
		{name: "truncated frame then complete frame", input: append([]byte{ahoi.DLE, ahoi.STX, 1, 2}, frame...), ok: true, begin: 4, end: 4 + len(frame)},
		{name: "frame cut after a DLE then complete frame", input: append([]byte{ahoi.DLE, ahoi.STX, 4, 1, 0, 0, 0, 3, 'x', ahoi.DLE}, frame...), ok: true, begin: 10, end: 10 + len(frame)},
		{name: "end delimiter without start", input: []byte{1, ahoi.DLE, ahoi.ETX}, ok: false},
		{name: "empty", input: nil, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			begin, end, ok := ahoi.FindFrame(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (begin != tt.begin || end != tt.end) {
				t.Errorf("range = [%d,%d), want [%d,%d)", begin, end, tt.begin, tt.end)
			}
		})
	}
}
