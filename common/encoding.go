package common

import (
	"encoding/binary"
	"fmt"
	"math"
)

var bigEndian = binary.BigEndian

// rowByteOrder is the byte order of every multi-byte value inside a row record. It is fixed by the wire format;
// 3 byte values are assembled by hand in the same order.
var rowByteOrder = binary.LittleEndian

// Widths of 1, 2, 3, 4 and 8 bytes are supported; anything else is a programming error and panics.

func ReadUint(buffer []byte, offset int, width int) uint64 {
	switch width {
	case 1:
		return uint64(buffer[offset])
	case 2:
		return uint64(rowByteOrder.Uint16(buffer[offset:]))
	case 3:
		return uint64(buffer[offset]) | uint64(buffer[offset+1])<<8 | uint64(buffer[offset+2])<<16
	case 4:
		return uint64(rowByteOrder.Uint32(buffer[offset:]))
	case 8:
		return rowByteOrder.Uint64(buffer[offset:])
	default:
		panic(fmt.Sprintf("unsupported integer width %d", width))
	}
}

// ReadInt reads a signed integer of the given width, sign extending it to 64 bits.
func ReadInt(buffer []byte, offset int, width int) int64 {
	u := ReadUint(buffer, offset, width)
	shift := uint(64 - 8*width)
	return int64(u<<shift) >> shift
}

// WriteInt writes the low width bytes of v. The caller is responsible for range checking.
func WriteInt(buffer []byte, offset int, v int64, width int) {
	WriteUint(buffer, offset, uint64(v), width)
}

func WriteUint(buffer []byte, offset int, v uint64, width int) {
	switch width {
	case 1:
		buffer[offset] = byte(v)
	case 2:
		rowByteOrder.PutUint16(buffer[offset:], uint16(v))
	case 3:
		buffer[offset] = byte(v)
		buffer[offset+1] = byte(v >> 8)
		buffer[offset+2] = byte(v >> 16)
	case 4:
		rowByteOrder.PutUint32(buffer[offset:], uint32(v))
	case 8:
		rowByteOrder.PutUint64(buffer[offset:], v)
	default:
		panic(fmt.Sprintf("unsupported integer width %d", width))
	}
}

func ReadUint16(buffer []byte, offset int) uint16 {
	return uint16(ReadUint(buffer, offset, 2))
}

func WriteUint16(buffer []byte, offset int, v uint16) {
	WriteUint(buffer, offset, uint64(v), 2)
}

func ReadUint32(buffer []byte, offset int) uint32 {
	return uint32(ReadUint(buffer, offset, 4))
}

func WriteUint32(buffer []byte, offset int, v uint32) {
	WriteUint(buffer, offset, uint64(v), 4)
}

func ReadFloat32(buffer []byte, offset int) float32 {
	return math.Float32frombits(ReadUint32(buffer, offset))
}

func WriteFloat32(buffer []byte, offset int, v float32) {
	WriteUint32(buffer, offset, math.Float32bits(v))
}

func ReadFloat64(buffer []byte, offset int) float64 {
	return math.Float64frombits(ReadUint(buffer, offset, 8))
}

func WriteFloat64(buffer []byte, offset int, v float64) {
	WriteUint(buffer, offset, math.Float64bits(v), 8)
}

// Storage keys are big-endian so that they sort in numeric order.

func AppendUint32ToBufferBE(buffer []byte, v uint32) []byte {
	return append(buffer, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func AppendUint64ToBufferBE(buffer []byte, v uint64) []byte {
	return append(buffer, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func ReadUint32FromBufferBE(buffer []byte, offset int) (uint32, int) {
	return bigEndian.Uint32(buffer[offset:]), offset + 4
}

func ReadUint64FromBufferBE(buffer []byte, offset int) (uint64, int) {
	return bigEndian.Uint64(buffer[offset:]), offset + 8
}
