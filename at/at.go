// Package at implements the ASCII command protocol of EvoLogics S2C
// acoustic modems.
package at

import "i4.energy/across/uwmodem/modem"

const (
	// Terminal Control
	CRLF = "\r\n"
	// LF terminates commands written to the modem.
	LF  = "\n"
	Sep = ","

	// Commands
	CmdSend           = "AT*SEND"
	CmdSendIM         = "AT*SENDIM"
	CmdReset          = "ATZ"
	CmdDeliveryStatus = "AT?DI"
	CmdGetSourceLevel = "AT?L"
	CmdSetSourceLevel = "AT!L"
	CmdGetAddress     = "AT?AL"
	CmdSetAddress     = "AT!AL"
	CmdStatus         = "AT?S"
	CmdSettings       = "AT&V"

	// Delivery flags of AT*SENDIM
	Ack   = "ack"
	NoAck = "noack"

	// Response Codes
	RecvIM              = "RECVIM,"
	Recv                = "RECV,"
	OK                  = "OK"
	Empty               = "EMPTY"
	Busy                = "BUSY"
	Delivering          = "DELIVERING"
	Delivered           = "DELIVERED"
	DropCount           = "DROPCNT"
	ErrPhyOff           = "ERROR PHY OFF"
	ErrNotAccepted      = "ERROR NOT ACCEPTED"
	ErrWrongAddress     = "ERROR WRONG DESTINATION ADDRESS"
	ErrConnectionClosed = "ERROR CONNECTION CLOSED"
	ErrUnknownCommand   = "ERROR UNKNOWN COMMAND"
	ErrWrongFormat      = "ERROR WRONG FORMAT"
	ErrBufferNotEmpty   = "ERROR BUFFER IS NOT EMPTY"
	ErrBufferFull       = "ERROR BUFFER FULL"
	ErrOutOfRange       = "ERROR OUT OF RANGE"
	ErrProtocolID       = "ERROR PROTOCOL ID"
	ErrInternal         = "ERROR INTERNAL"
	Failed              = "FAILED"
	SourceLevel         = "Source Level:"
	LocalAddress        = "Local Address:"
	RemoteAddress       = "Remote Address:"
	InitNoise           = "INITIATION NOISE"
	InitDeaf            = "INITIATION DEAF"
	InitListen          = "INITIATION LISTEN"
	RecvStart           = "RECVSTART"
	RecvEnd             = "RECVEND"
	RecvFailed          = "RECVFAILED"
	SendStart           = "SENDSTART"
	SendEnd             = "SENDEND"
	Bitrate             = "BITRATE"
)

const (
	// MaxPayload is the largest AT*SEND burst payload.
	MaxPayload = 1024
	// MaxIMPayload is the largest AT*SENDIM payload.
	MaxIMPayload = 64
	// MinIntegrity is the lowest integrity value of an undamaged frame.
	MinIntegrity = 100

	MaxResetLevel  = 4
	MaxSourceLevel = 3
	MinAddress     = 1
	MaxAddress     = 254
)

type prefix struct {
	text string
	kind modem.ResponseKind
}

// responses maps response prefixes to their kind, in match priority order.
var responses = []prefix{
	{RecvIM, modem.KindData},
	{Recv, modem.KindData},
	{OK, modem.KindOK},
	{Empty, modem.KindEmpty},
	{Busy, modem.KindBusy},
	{Delivering, modem.KindDelivering},
	{Delivered, modem.KindDelivered},
	{DropCount, modem.KindDropped},
	{ErrPhyOff, modem.KindPhyOff},
	{ErrNotAccepted, modem.KindNotAccepted},
	{ErrWrongAddress, modem.KindWrongAddress},
	{ErrConnectionClosed, modem.KindConnectionClosed},
	{ErrUnknownCommand, modem.KindCommandError},
	{ErrWrongFormat, modem.KindCommandError},
	{ErrBufferNotEmpty, modem.KindBufferNotEmpty},
	{ErrBufferFull, modem.KindBufferFull},
	{ErrOutOfRange, modem.KindOutOfRange},
	{ErrProtocolID, modem.KindProtocolID},
	{ErrInternal, modem.KindInternal},
	{Failed, modem.KindFailed},
	{SourceLevel, modem.KindSettings},
	{LocalAddress, modem.KindModemStatus},
	{RemoteAddress, modem.KindModemStatus},
	{InitNoise, modem.KindInitNoise},
	{InitDeaf, modem.KindInitDeaf},
	{InitListen, modem.KindInitListen},
	{RecvStart, modem.KindRecvStart},
	{RecvEnd, modem.KindRecvEnd},
	{RecvFailed, modem.KindRecvFailed},
	{SendStart, modem.KindSendStart},
	{SendEnd, modem.KindSendEnd},
	{Bitrate, modem.KindBitrate},
}
