package main

import (
	"testing"
	"time"

	"i4.energy/across/uwmodem/modem"
)

func TestHealthFields(t *testing.T) {
	now := time.Unix(1700000000, 0)
	h := modem.Health{
		Running:         true,
		ModemState:      "AVAILABLE",
		TxMode:          "im",
		Seq:             200,
		TxPackets:       9,
		Retransmissions: 4,
	}
	f := healthFields(h, now)

	tests := []struct {
		field string
		want  any
	}{
		{"running", "true"},
		{"ack_mode", "false"},
		{"modem_state", "AVAILABLE"},
		{"tx_mode", "im"},
		{"seq", 200},
		{"tx_packets", uint64(9)},
		{"retransmissions", uint64(4)},
		{"ts", int64(1700000000)},
	}
	for _, tt := range tests {
		if got := f[tt.field]; got != tt.want {
			t.Errorf("%s = %v (%T), want %v (%T)", tt.field, got, got, tt.want, tt.want)
		}
	}
	if len(f) != 17 {
		t.Errorf("%d fields, want one per health value plus the timestamp", len(f))
	}
}

func TestShadowKey(t *testing.T) {
	if s := NewRedisShadow(nil, 5, time.Minute); s.key != "uwmodem:shadow:5" {
		t.Errorf("key = %q", s.key)
	}
}
