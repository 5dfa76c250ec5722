package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Response codes. CodeError is the generic failure code; it never carries a
// payload length. Earlier drafts of the protocol disagreed on its value, 0xFF
// is the value this implementation puts on the wire.
const (
	CodeOK    uint8 = 0x01
	CodeError uint8 = 0xFF
)

const (
	ShortHeaderLen = MagicLen + 2       // magic | version | code
	LongHeaderLen  = ShortHeaderLen + 8 // ... | payload_len
)

// CarriesBody reports whether responses with code are followed by a length
// field and payload.
func CarriesBody(code uint8) bool {
	return code == CodeOK
}

// ResponseHeader is an encoded reply header that can be edited in place.
// It is either ShortHeaderLen or LongHeaderLen bytes long.
type ResponseHeader struct {
	buf []byte
}

func NewResponseHeader(v Version, code uint8) *ResponseHeader {
	buf := make([]byte, ShortHeaderLen, LongHeaderLen)
	copy(buf, Magic)
	buf[MagicLen] = v.Byte()
	buf[MagicLen+1] = code
	return &ResponseHeader{buf: buf}
}

// NewPayloadHeader builds a CodeOK header announcing n payload bytes.
func NewPayloadHeader(v Version, n uint64) *ResponseHeader {
	h := NewResponseHeader(v, CodeOK)
	h.SetPayloadLen(n)
	return h
}

// NewErrorHeader builds the 6-byte generic error header.
func NewErrorHeader(v Version) *ResponseHeader {
	return NewResponseHeader(v, CodeError)
}

func (h *ResponseHeader) SetVersion(v Version) { h.buf[MagicLen] = v.Byte() }
func (h *ResponseHeader) SetCode(code uint8)   { h.buf[MagicLen+1] = code }

func (h *ResponseHeader) Version() Version { return VersionFromByte(h.buf[MagicLen]) }
func (h *ResponseHeader) Code() uint8      { return h.buf[MagicLen+1] }

// SetPayloadLen adds the length field, or overwrites it when present.
func (h *ResponseHeader) SetPayloadLen(n uint64) {
	if len(h.buf) < LongHeaderLen {
		h.buf = h.buf[:LongHeaderLen]
	}
	binary.BigEndian.PutUint64(h.buf[ShortHeaderLen:LongHeaderLen], n)
}

// ClearPayloadLen drops the length field.
func (h *ResponseHeader) ClearPayloadLen() {
	h.buf = h.buf[:ShortHeaderLen]
}

func (h *ResponseHeader) PayloadLen() (uint64, bool) {
	if len(h.buf) < LongHeaderLen {
		return 0, false
	}
	return binary.BigEndian.Uint64(h.buf[ShortHeaderLen:LongHeaderLen]), true
}

func (h *ResponseHeader) Len() int { return len(h.buf) }

// Bytes returns a copy of the encoded header.
func (h *ResponseHeader) Bytes() []byte {
	out := make([]byte, len(h.buf))
	copy(out, h.buf)
	return out
}

// WriteTo writes the header in a single Write call.
func (h *ResponseHeader) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.buf)
	return int64(n), err
}

// ReadResponseHeader reads one response header from r. The length field is
// read only when the code carries a body.
func ReadResponseHeader(r io.Reader) (*ResponseHeader, error) {
	buf := make([]byte, ShortHeaderLen, LongHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: response header: %v", ErrTruncated, err)
	}
	if string(buf[:MagicLen]) != Magic {
		return nil, ErrProtocolMismatch
	}
	h := &ResponseHeader{buf: buf}
	if !CarriesBody(h.Code()) {
		return h, nil
	}
	h.buf = h.buf[:LongHeaderLen]
	if _, err := io.ReadFull(r, h.buf[ShortHeaderLen:]); err != nil {
		return nil, fmt.Errorf("%w: payload length: %v", ErrTruncated, err)
	}
	return h, nil
}
