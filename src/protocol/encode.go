package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// EncodeRequest builds a request frame:
// [4B magic][1B version][1B instruction][1B path_count]{[2B len][path]}...
func EncodeRequest(v Version, op Opcode, paths []string) ([]byte, error) {
	if len(paths) < 1 || len(paths) > MaxPaths {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPathCount, len(paths))
	}
	size := MagicLen + 3
	for i, p := range paths {
		if len(p) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: path[%d] is %d bytes", ErrInvalidArgument, i, len(p))
		}
		if !utf8.ValidString(p) {
			return nil, fmt.Errorf("%w: path[%d]", ErrInvalidEncoding, i)
		}
		size += pathLenSz + len(p)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Magic...)
	buf = append(buf, v.Byte(), byte(op), byte(len(paths)))
	for _, p := range paths {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(p)))
		buf = append(buf, p...)
	}
	return buf, nil
}

// EncodeGet is EncodeRequest for a single-path GET under version 1.0.
func EncodeGet(path string) ([]byte, error) {
	return EncodeRequest(V1_0, OpGet, []string{path})
}

// EncodeList sends LIST with an empty placeholder path; the path count must
// be at least one on the wire.
func EncodeList() ([]byte, error) {
	return EncodeRequest(V1_0, OpList, []string{""})
}
