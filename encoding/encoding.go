// Package encoding defines the text representation of values: one decimal
// integer per line.
package encoding

import (
	"bufio"
	"encoding/binary"
	"strconv"
	"strings"
)

var ByteOrder = binary.LittleEndian

// Records are separated by a single newline.
var RecordTerminator byte = '\n'

// ParseValue parses one record.  Surrounding whitespace (including the "\r"
// of CRLF line endings) is ignored; anything else that isn't a decimal
// integer is an error.
func ParseValue(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func FormatValue(v int64) string {
	return strconv.FormatInt(v, 10)
}

func WriteValue(w *bufio.Writer, v int64) error {
	var buf [24]byte
	b := strconv.AppendInt(buf[:0], v, 10)
	b = append(b, RecordTerminator)
	_, err := w.Write(b)
	return err
}

// SerializeValue returns a fixed-width binary key for v, suitable for hashing
// and Bloom filter membership.
func SerializeValue(v int64) []byte {
	b := make([]byte, 8)
	ByteOrder.PutUint64(b, uint64(v))
	return b
}
