// Package ahoi implements the binary protocol of AHOI acoustic modems.
//
// Every message is a frame
//
//	DLE STX header payload footer DLE ETX
//
// where any DLE inside header, payload or footer is sent twice. The header
// is src, dst, type, status, dsn and len, one byte each; the footer, present
// on frames coming from the modem, carries reception metrics.
package ahoi

const (
	DLE = 0x10
	STX = 0x02
	ETX = 0x03
)

const (
	HeaderLen  = 6
	FooterLen  = 6
	MaxPayload = 128

	// Broadcast is the destination reaching every modem.
	Broadcast = 0xFF
)

// Ack request flags carried in the status byte of data frames.
const (
	AckNone    = 0x00
	AckPlain   = 0x01
	AckRanging = 0x02
)

// Frame types. Types below TypeCommand are data; TypeConfirm is the serial
// acknowledgement the modem sends for every frame it accepted.
const (
	TypeData            = 0x00
	TypeCommand         = 0x80
	TypeID              = 0x84
	TypeBatVol          = 0x85
	TypeReset           = 0x87
	TypeAGC             = 0x98
	TypeRxGain          = 0x99
	TypeTxGain          = 0x9A
	TypeRangeDelay      = 0xA8
	TypeDistance        = 0xA9
	TypePacketStat      = 0xC0
	TypePacketStatReset = 0xC1
	TypeSyncStat        = 0xC2
	TypeSyncStatReset   = 0xC3
	TypeSfdStat         = 0xC4
	TypeSfdStatReset    = 0xC5
	TypeAllStat         = 0xC6
	TypeAllStatReset    = 0xC7
	TypeConfirm         = 0xFF
)

var commandNames = map[uint8]string{
	TypeID:              "id",
	TypeBatVol:          "batvol",
	TypeReset:           "reset",
	TypeAGC:             "agc",
	TypeRxGain:          "rxgain",
	TypeTxGain:          "txgain",
	TypeRangeDelay:      "range_delay",
	TypeDistance:        "distance",
	TypePacketStat:      "packetstat",
	TypePacketStatReset: "packetstatreset",
	TypeSyncStat:        "syncstat",
	TypeSyncStatReset:   "syncstatreset",
	TypeSfdStat:         "sfdstat",
	TypeSfdStatReset:    "sfdstatreset",
	TypeAllStat:         "allstat",
	TypeAllStatReset:    "allstatreset",
}

type Header struct {
	Src    uint8
	Dst    uint8
	Type   uint8
	Status uint8
	DSN    uint8
	Len    uint8
}

type Footer struct {
	Power     uint8
	RSSI      uint8
	BitErrors uint8
	AGCMean   uint8
	AGCMin    uint8
	AGCMax    uint8
}
