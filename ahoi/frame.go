package ahoi

import "bytes"

// Stuff doubles every DLE in body.
func Stuff(body []byte) []byte {
	out := make([]byte, 0, len(body)+bytes.Count(body, []byte{DLE}))
	for _, b := range body {
		if b == DLE {
			out = append(out, DLE)
		}
		out = append(out, b)
	}
	return out
}

// FixEscapes undoes Stuff. A DLE that is not doubled is kept as is.
func FixEscapes(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		out = append(out, body[i])
		if body[i] == DLE && i+1 < len(body) && body[i+1] == DLE {
			i++
		}
	}
	return out
}

// Encode frames a header and payload. The header's Len is taken from the
// payload.
func Encode(h Header, payload []byte) []byte {
	h.Len = uint8(len(payload))
	body := make([]byte, 0, HeaderLen+len(payload))
	body = append(body, h.Src, h.Dst, h.Type, h.Status, h.DSN, h.Len)
	body = append(body, payload...)

	frame := []byte{DLE, STX}
	frame = append(frame, Stuff(body)...)
	return append(frame, DLE, ETX)
}

// FindFrame locates the first complete frame in buf and returns the offsets
// of its opening DLE and one past its closing ETX. A start delimiter seen
// before the frame ends restarts the frame, so a truncated frame followed
// by a complete one yields the complete one. When the truncated frame ends
// in a lone DLE, that DLE and the next frame's start read as an escaped
// DLE; the merged frame's declared length then disagrees with its body and
// the inner frame is returned instead.
func FindFrame(buf []byte) (begin, end int, ok bool) {
	begin = -1
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] != DLE {
			continue
		}
		switch buf[i+1] {
		case STX:
			begin = i
		case ETX:
			if begin >= 0 {
				return innerFrame(buf, begin, i+2), i + 2, true
			}
		case DLE:
		default:
			// lone DLE, resync on the next byte
			continue
		}
		i++
	}
	return 0, 0, false
}

// innerFrame returns begin unless the frame buf[begin:end] has a bad length
// and a start delimiter inside it opens a frame with a good one.
func innerFrame(buf []byte, begin, end int) int {
	if lengthMatches(buf[begin:end]) {
		return begin
	}
	start := []byte{DLE, STX}
	for j := begin + 2; j < end-2; j++ {
		k := bytes.Index(buf[j:end-2], start)
		if k < 0 {
			break
		}
		j += k
		if lengthMatches(buf[j:end]) {
			return j
		}
	}
	return begin
}

func lengthMatches(frame []byte) bool {
	b := body(frame)
	return len(b) >= HeaderLen && int(b[HeaderLen-1]) == len(b)-HeaderLen
}

// body returns the unescaped bytes between the delimiters of a frame found
// by FindFrame.
func body(frame []byte) []byte {
	return FixEscapes(frame[2 : len(frame)-2])
}
