package at_test

import (
	"testing"

	"i4.energy/across/uwmodem/at"
	"i4.energy/across/uwmodem/modem"
)

func TestFindResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  modem.ResponseKind
		begin int
		end   int
	}{
		{
			name:  "OK",
			input: "OK\r\n",
			kind:  modem.KindOK,
			begin: 0,
			end:   4,
		},
		{
			name:  "no terminator yet",
			input: "DELIVERED,5",
			kind:  modem.KindNone,
		},
		{
			name:  "empty buffer",
			input: "",
			kind:  modem.KindNone,
		},
		{
			name:  "earliest response wins",
			input: "SENDEND\r\nOK\r\n",
			kind:  modem.KindSendEnd,
			begin: 0,
			end:   9,
		},
		{
			name:  "leading noise is skipped",
			input: "\x00\x13OK\r\n",
			kind:  modem.KindOK,
			begin: 2,
			end:   6,
		},
		{
			name:  "RECVIM is not taken for RECV",
			input: "RECVIM,1,2,3,ack,100,-40,150,0.0,x\r\n",
			kind:  modem.KindData,
			begin: 0,
			end:   36,
		},
		{
			name:  "RECVFAILED beats the FAILED inside it",
			input: "RECVFAILED,-3.4,-71,0\r\n",
			kind:  modem.KindRecvFailed,
			begin: 0,
			end:   23,
		},
		{
			name:  "EMPTY inside an error is not matched",
			input: "ERROR BUFFER IS NOT EMPTY\r\n",
			kind:  modem.KindBufferNotEmpty,
			begin: 0,
			end:   27,
		},
		{
			name:  "DELIVERING is not DELIVERED",
			input: "DELIVERING 5\r\n",
			kind:  modem.KindDelivering,
			begin: 0,
			end:   14,
		},
		{
			name:  "unknown line is consumed",
			input: "hello\r\nOK\r\n",
			kind:  modem.KindUnknown,
			begin: 0,
			end:   7,
		},
		{
			name:  "settings block ends at CRLF",
			input: "Source Level: 3\nSource Level Control: 0\nGain: 0\r\n",
			kind:  modem.KindSettings,
			begin: 0,
			end:   49,
		},
		{
			name:  "phy off",
			input: "ERROR PHY OFF\r\n",
			kind:  modem.KindPhyOff,
			begin: 0,
			end:   15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, begin, end := at.FindResponse([]byte(tt.input))
			if kind != tt.kind {
				t.Fatalf("kind = %v, want %v", kind, tt.kind)
			}
			if kind == modem.KindNone {
				return
			}
			if begin != tt.begin || end != tt.end {
				t.Errorf("range = [%d,%d), want [%d,%d)", begin, end, tt.begin, tt.end)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]modem.ResponseKind{
		"OK":                              modem.KindOK,
		"EMPTY":                           modem.KindEmpty,
		"BUSY BACKOFF STATE":              modem.KindBusy,
		"DELIVERED,3":                     modem.KindDelivered,
		"FAILED,3":                        modem.KindFailed,
		"DROPCNT,1":                       modem.KindDropped,
		"ERROR WRONG DESTINATION ADDRESS": modem.KindWrongAddress,
		"ERROR CONNECTION CLOSED":         modem.KindConnectionClosed,
		"ERROR INTERNAL":                  modem.KindInternal,
		"ERROR WRONG FORMAT":              modem.KindCommandError,
		"INITIATION NOISE":                modem.KindInitNoise,
		"INITIATION DEAF":                 modem.KindInitDeaf,
		"INITIATION LISTEN":               modem.KindInitListen,
		"SENDSTART,1,2,3,4":               modem.KindSendStart,
		"BITRATE,1,976":                   modem.KindBitrate,
		"something else":                  modem.KindUnknown,
	}
	for line, want := range tests {
		if got := at.Classify(line); got != want {
			t.Errorf("Classify(%q) = %v, want %v", line, got, want)
		}
	}
}
