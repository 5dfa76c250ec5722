package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	Magic     = "nFTP"
	MagicLen  = len(Magic)
	MaxPaths  = 64
	pathLenSz = 2
)

// Decoder walks a request buffer front to back. Every Recognize* call either
// advances the cursor past the field it read or leaves it untouched and
// returns an error; the cursor never moves backwards or past len(buf).
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// take returns the next n bytes and advances, or fails with ErrTruncated.
func (d *Decoder) take(n int, field string) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d remain", ErrTruncated, field, n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// RecognizeProtocol verifies the 4-byte magic literal.
func (d *Decoder) RecognizeProtocol() error {
	if d.Remaining() < MagicLen || !bytes.Equal(d.buf[d.pos:d.pos+MagicLen], []byte(Magic)) {
		return ErrProtocolMismatch
	}
	d.pos += MagicLen
	return nil
}

// RecognizeVersion reads the version byte and splits it into nibbles.
func (d *Decoder) RecognizeVersion() (major, minor uint8, err error) {
	b, err := d.take(1, "version")
	if err != nil {
		return 0, 0, err
	}
	return b[0] >> 4, b[0] & 0x0F, nil
}

// RecognizeInstruction reads the raw instruction code.
func (d *Decoder) RecognizeInstruction() (Opcode, error) {
	b, err := d.take(1, "instruction")
	if err != nil {
		return 0, err
	}
	return Opcode(b[0]), nil
}

// RecognizePaths reads the path count and each length-prefixed UTF-8 path.
// On failure the cursor is restored to where the path block began.
func (d *Decoder) RecognizePaths() ([]string, error) {
	start := d.pos
	paths, err := d.recognizePaths()
	if err != nil {
		d.pos = start
		return nil, err
	}
	return paths, nil
}

func (d *Decoder) recognizePaths() ([]string, error) {
	b, err := d.take(1, "path count")
	if err != nil {
		return nil, err
	}
	n := int(b[0])
	if n < 1 || n > MaxPaths {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidPathCount, n, MaxPaths)
	}

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lb, err := d.take(pathLenSz, fmt.Sprintf("path[%d] length", i))
		if err != nil {
			return nil, err
		}
		l := int(binary.BigEndian.Uint16(lb))
		raw, err := d.take(l, fmt.Sprintf("path[%d]", i))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: path[%d]", ErrInvalidEncoding, i)
		}
		paths = append(paths, string(raw))
	}
	return paths, nil
}

// DecodeRequest parses one complete request frame. The first failing step
// aborts the whole frame.
func DecodeRequest(buf []byte) (Version, Instruction, error) {
	d := NewDecoder(buf)
	if err := d.RecognizeProtocol(); err != nil {
		return Version{}, Instruction{}, err
	}
	major, minor, err := d.RecognizeVersion()
	if err != nil {
		return Version{}, Instruction{}, err
	}
	v, err := Resolve(major, minor)
	if err != nil {
		return Version{}, Instruction{}, err
	}
	in, err := v.DecodeInstruction(d)
	if err != nil {
		return v, Instruction{}, err
	}
	return v, in, nil
}
