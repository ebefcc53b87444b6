package common

import (
	"fmt"
	"io"
	"unsafe"

	log "github.com/sirupsen/logrus"
)

// ByteSliceToStringZeroCopy aliases buffer as a string. The string is only valid for as long as buffer is not
// modified.
func ByteSliceToStringZeroCopy(buffer []byte) string {
	// nolint: gosec
	return *(*string)(unsafe.Pointer(&buffer))
}

func InvokeCloser(closer io.Closer) {
	if closer != nil {
		err := closer.Close()
		if err != nil {
			log.Warnf("failed to close closer %v", err)
		}
	}
}

// IncrementBytesBigEndian returns a new byte slice which is 1 larger than the provided slice when represented in
// big endian layout, but without changing the key length
func IncrementBytesBigEndian(bytes []byte) []byte {
	inced := CopyByteSlice(bytes)
	lb := len(bytes)
	for i := lb - 1; i >= 0; i-- {
		b := bytes[i]
		if b < 255 {
			inced[i] = b + 1
			break
		}
		inced[i] = 0
		if i == 0 {
			panic("cannot increment key - all bits set")
		}
	}
	return inced
}

func CopyByteSlice(buff []byte) []byte {
	res := make([]byte, len(buff))
	copy(res, buff)
	return res
}

// DumpRowKey renders a table row key (4 byte row def id followed by an 8 byte row id) for logging.
func DumpRowKey(bytes []byte) string {
	if bytes == nil {
		return "nil"
	}
	if len(bytes) != 12 {
		return fmt.Sprintf("invalid:%v", bytes)
	}
	rowDefID, off := ReadUint32FromBufferBE(bytes, 0)
	rowID, _ := ReadUint64FromBufferBE(bytes, off)
	return fmt.Sprintf("rd:%05d|row:%d", rowDefID, rowID)
}
