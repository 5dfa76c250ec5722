package protocol

import "fmt"

// Opcode bytes (version 1.0)
type Opcode uint8

const (
	OpGet    Opcode = 0x00
	OpList   Opcode = 0x01
	OpInsert Opcode = 0x02 // reserved, never executable
)

func (o Opcode) String() string {
	switch o {
	case OpGet:
		return "GET"
	case OpList:
		return "LIST"
	case OpInsert:
		return "INSERT"
	default:
		return fmt.Sprintf("0x%02x", uint8(o))
	}
}

// Instruction is one decoded client command with validated arguments.
type Instruction struct {
	Op    Opcode
	Paths []string
}

// NewGet requires exactly one path.
func NewGet(paths []string) (Instruction, error) {
	if len(paths) != 1 {
		return Instruction{}, fmt.Errorf("%w: GET takes exactly 1 path, got %d", ErrInvalidArgument, len(paths))
	}
	return Instruction{Op: OpGet, Paths: []string{paths[0]}}, nil
}

// NewList takes no arguments; any paths sent on the wire are dropped.
func NewList() Instruction {
	return Instruction{Op: OpList}
}

// Path returns the single GET argument.
func (in Instruction) Path() string {
	if len(in.Paths) == 0 {
		return ""
	}
	return in.Paths[0]
}
