package common

import (
	"encoding/binary"
)

var littleEndian = binary.LittleEndian

func AppendUint16ToBufferLE(buffer []byte, v uint16) []byte {
	return append(buffer, byte(v), byte(v>>8))
}

func AppendUint32ToBufferLE(buffer []byte, v uint32) []byte {
	return append(buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// The readers below are used on untrusted input (scan tokens) so they report short buffers rather than
// panicking.

func ReadUint16FromBufferLE(buffer []byte, offset int) (uint16, int, bool) {
	if offset < 0 || len(buffer)-offset < 2 {
		return 0, offset, false
	}
	return littleEndian.Uint16(buffer[offset:]), offset + 2, true
}

func ReadUint32FromBufferLE(buffer []byte, offset int) (uint32, int, bool) {
	if offset < 0 || len(buffer)-offset < 4 {
		return 0, offset, false
	}
	return littleEndian.Uint32(buffer[offset:]), offset + 4, true
}
