package protocol

import "errors"

var (
	ErrProtocolMismatch   = errors.New("protocol: request does not start with nFTP")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrTruncated          = errors.New("protocol: truncated data")
	ErrInvalidEncoding    = errors.New("protocol: path is not valid utf-8")
	ErrInvalidPathCount   = errors.New("protocol: invalid path count")
	ErrUnknownInstruction = errors.New("protocol: unknown instruction")
	ErrInvalidArgument    = errors.New("protocol: invalid argument")
	ErrNotFound           = errors.New("protocol: not found")
	ErrOutsideRoot        = errors.New("protocol: path resolves outside root")
	ErrIOFailure          = errors.New("protocol: i/o failure")
	ErrResponseDelivery   = errors.New("protocol: response delivery failed")
)

// Kind returns a stable label for err, used in logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrProtocolMismatch):
		return "protocol_mismatch"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, ErrInvalidPathCount):
		return "invalid_path_count"
	case errors.Is(err, ErrUnknownInstruction):
		return "unknown_instruction"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOutsideRoot):
		return "outside_root"
	case errors.Is(err, ErrResponseDelivery):
		return "response_delivery"
	default:
		return "io_failure"
	}
}
