package at

import (
	"bytes"

	"i4.energy/across/uwmodem/modem"
)

// FindResponse locates the first complete response in data. Responses end
// with CRLF. The response is the earliest known prefix before the first
// CRLF, or the longest one when several start at the same offset. A CRLF
// terminated line without any known prefix is reported as KindUnknown so
// it can be consumed.
//
// Data responses may carry CRLF in their payload; the end returned here is
// then only a lower bound and ParseResponse decides from the declared
// length.
func FindResponse(data []byte) (kind modem.ResponseKind, begin, end int) {
	term := bytes.Index(data, []byte(CRLF))
	if term < 0 {
		return modem.KindNone, 0, 0
	}

	begin, length := -1, 0
	line := data[:term]
	for _, p := range responses {
		i := bytes.Index(line, []byte(p.text))
		if i < 0 {
			continue
		}
		if begin < 0 || i < begin || (i == begin && len(p.text) > length) {
			begin, length, kind = i, len(p.text), p.kind
		}
	}

	if begin < 0 {
		return modem.KindUnknown, 0, term + len(CRLF)
	}
	return kind, begin, term + len(CRLF)
}

// Classify returns the kind of a single response line without its
// terminator.
func Classify(line string) modem.ResponseKind {
	kind, _, _ := FindResponse([]byte(line + CRLF))
	return kind
}
