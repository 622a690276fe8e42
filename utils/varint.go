package utils

import (
	"encoding/binary"
)

// AppendLengthPrefixed Appends a uvarint length followed by data
func AppendLengthPrefixed[T ~string | ~[]byte](buf []byte, data T) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}
