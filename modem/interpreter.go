package modem

import "fmt"

// Interpreter is the protocol codec of a modem family. It performs no I/O and
// keeps no state shared with the Modem beyond its own sequence counter, so a
// single Modem can drive any wire format through it.
type Interpreter interface {
	// Build renders cmd in the wire format expected by the device. It returns
	// nil when the protocol has no such command. Malformed arguments are
	// clamped rather than reported.
	Build(cmd Command) []byte

	// FindResponse scans buf for the earliest complete, framed response.
	// When several candidates start at the same offset the longest match
	// wins. KindNone means more bytes are needed; begin and end are then
	// meaningless.
	FindResponse(buf []byte) (kind ResponseKind, begin, end int)

	// ParseResponse decodes the response of the given kind starting at
	// buf[begin]. On ParseComplete the returned offset is the end of the
	// consumed bytes. ParseIncomplete means the declared length reaches past
	// len(buf) and the caller should read more and retry at the same offset.
	ParseResponse(kind ResponseKind, buf []byte, begin int) (Response, int, ParseStatus)

	// MaxPayload is the largest payload a single data command can carry.
	MaxPayload() int
}

// DeliveryPoller is implemented by interpreters whose devices answer a
// delivery-status query. For acknowledged transfers the Session retries by
// polling instead of transmitting the payload again.
type DeliveryPoller interface {
	BuildDeliveryQuery() []byte
}

// CommandKind identifies a structured command.
type CommandKind int

const (
	// CommandSend transmits Request.Payload to Request.Dst.
	CommandSend CommandKind = iota
	// CommandDeliveryStatus asks for the state of the last IM transfer.
	CommandDeliveryStatus
	// CommandReset resets the device; Arg is the reset level.
	CommandReset
	// CommandGetSourceLevel queries the transmit source level.
	CommandGetSourceLevel
	// CommandSetSourceLevel sets the transmit source level to Arg.
	CommandSetSourceLevel
	// CommandGetAddress queries the local acoustic address.
	CommandGetAddress
	// CommandSetAddress sets the local acoustic address to Arg.
	CommandSetAddress
	// CommandModemStatus requests the device status block.
	CommandModemStatus
	// CommandSettings requests the current settings block.
	CommandSettings
	// CommandBatteryVoltage requests the supply voltage.
	CommandBatteryVoltage
	// CommandPacketStats requests the packet statistics counters.
	CommandPacketStats
	// CommandPacketStatsReset clears the packet statistics counters.
	CommandPacketStatsReset
)

func (k CommandKind) String() string {
	switch k {
	case CommandSend:
		return "Send"
	case CommandDeliveryStatus:
		return "DeliveryStatus"
	case CommandReset:
		return "Reset"
	case CommandGetSourceLevel:
		return "GetSourceLevel"
	case CommandSetSourceLevel:
		return "SetSourceLevel"
	case CommandGetAddress:
		return "GetAddress"
	case CommandSetAddress:
		return "SetAddress"
	case CommandModemStatus:
		return "ModemStatus"
	case CommandSettings:
		return "Settings"
	case CommandBatteryVoltage:
		return "BatteryVoltage"
	case CommandPacketStats:
		return "PacketStats"
	case CommandPacketStatsReset:
		return "PacketStatsReset"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is a structured request handed to Interpreter.Build.
type Command struct {
	Kind    CommandKind
	Request Request
	Arg     int
}

// Request is one outbound data transfer.
type Request struct {
	Src     int
	Dst     int
	Payload []byte
	// Ack requests an explicit delivery confirmation (IM mode).
	Ack bool
	// Burst selects the unacknowledged burst command where the protocol
	// has one.
	Burst bool
	Seq   uint8
}

// ResponseKind classifies a device message.
type ResponseKind int

const (
	// KindNone means no complete response is buffered yet.
	KindNone ResponseKind = iota
	KindData
	KindOK
	KindEmpty
	KindBusy
	KindDelivering
	KindDelivered
	KindDropped
	KindFailed
	KindPhyOff
	KindNotAccepted
	KindWrongAddress
	KindConnectionClosed
	KindBufferNotEmpty
	KindBufferFull
	KindOutOfRange
	KindProtocolID
	KindInternal
	KindSettings
	KindModemStatus
	KindReport
	KindInitNoise
	KindInitDeaf
	KindInitListen
	KindRecvStart
	KindRecvEnd
	KindRecvFailed
	KindSendStart
	KindSendEnd
	KindBitrate
	// KindCommandError is the device refusing a command it could not parse
	// or does not know.
	KindCommandError
	KindUnknown
)

var kindNames = [...]string{
	KindNone:             "None",
	KindData:             "Data",
	KindOK:               "OK",
	KindEmpty:            "Empty",
	KindBusy:             "Busy",
	KindDelivering:       "Delivering",
	KindDelivered:        "Delivered",
	KindDropped:          "Dropped",
	KindFailed:           "Failed",
	KindPhyOff:           "PhyOff",
	KindNotAccepted:      "NotAccepted",
	KindWrongAddress:     "WrongAddress",
	KindConnectionClosed: "ConnectionClosed",
	KindBufferNotEmpty:   "BufferNotEmpty",
	KindBufferFull:       "BufferFull",
	KindOutOfRange:       "OutOfRange",
	KindProtocolID:       "ProtocolID",
	KindInternal:         "Internal",
	KindSettings:         "Settings",
	KindModemStatus:      "ModemStatus",
	KindReport:           "Report",
	KindInitNoise:        "InitNoise",
	KindInitDeaf:         "InitDeaf",
	KindInitListen:       "InitListen",
	KindRecvStart:        "RecvStart",
	KindRecvEnd:          "RecvEnd",
	KindRecvFailed:       "RecvFailed",
	KindSendStart:        "SendStart",
	KindSendEnd:          "SendEnd",
	KindBitrate:          "Bitrate",
	KindCommandError:     "CommandError",
	KindUnknown:          "Unknown",
}

func (k ResponseKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ResponseKind(%d)", int(k))
}

// ParseStatus is the outcome of Interpreter.ParseResponse.
type ParseStatus int

const (
	ParseComplete ParseStatus = iota
	// ParseIncomplete is routine: the response is split across reads.
	ParseIncomplete
	// ParseInvalid means the bytes can never form the classified response.
	ParseInvalid
)

func (s ParseStatus) String() string {
	switch s {
	case ParseComplete:
		return "Complete"
	case ParseIncomplete:
		return "Incomplete"
	case ParseInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("ParseStatus(%d)", int(s))
	}
}

// Metrics are the link-quality values a device reports with a received frame.
// Fields a protocol does not report stay zero.
type Metrics struct {
	Power     int
	RSSI      int
	BitErrors int
	AGCMean   int
	AGCMin    int
	AGCMax    int
	Integrity int
	Bitrate   int
	Duration  int
	Delay     int
	Velocity  float64
}

// Response is one decoded device message. It is produced once and consumed
// once by the receive loop.
type Response struct {
	Kind   ResponseKind
	Src    int
	Dst    int
	Type   int
	Status int
	Seq    uint8
	// HasSeq reports whether the protocol carried a sequence number that
	// can be matched against the request in flight.
	HasSeq  bool
	Length  int
	Payload []byte
	Metrics Metrics
	// Fields holds the key/value pairs of vendor status blocks.
	Fields map[string]string
	// Corrupted marks a frame the device flagged as damaged or whose
	// declared length had to be truncated.
	Corrupted bool
}
