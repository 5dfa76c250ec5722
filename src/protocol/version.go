package protocol

import "fmt"

// Version is one protocol revision. Only revisions listed in Resolve are
// accepted; decode logic for each lives behind DecodeInstruction.
type Version struct {
	Major uint8
	Minor uint8
}

var V1_0 = Version{Major: 1, Minor: 0}

// Byte packs the version into the wire nibble layout.
func (v Version) Byte() byte {
	return v.Major<<4 | v.Minor&0x0F
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// VersionFromByte splits a wire version byte without validating it.
func VersionFromByte(b byte) Version {
	return Version{Major: b >> 4, Minor: b & 0x0F}
}

// Resolve fails closed for every revision that has no decoder.
func Resolve(major, minor uint8) (Version, error) {
	v := Version{Major: major, Minor: minor}
	switch v {
	case V1_0:
		return v, nil
	default:
		return Version{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
}

// DecodeInstruction continues decoding after the version byte.
func (v Version) DecodeInstruction(d *Decoder) (Instruction, error) {
	switch v {
	case V1_0:
		return decodeV1_0(d)
	default:
		return Instruction{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
}

func decodeV1_0(d *Decoder) (Instruction, error) {
	op, err := d.RecognizeInstruction()
	if err != nil {
		return Instruction{}, err
	}
	paths, err := d.RecognizePaths()
	if err != nil {
		return Instruction{}, err
	}

	switch op {
	case OpGet:
		return NewGet(paths)
	case OpList:
		return NewList(), nil
	case OpInsert:
		return Instruction{}, fmt.Errorf("%w: %s is reserved", ErrUnknownInstruction, op)
	default:
		return Instruction{}, fmt.Errorf("%w: %s", ErrUnknownInstruction, op)
	}
}
