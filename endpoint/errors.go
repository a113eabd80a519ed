package endpoint

import "errors"

// Error taxonomy, per spec §7. Per-field and protocol-violation errors
// (ErrProtocolViolation, ErrMalformed*, etc.) live in the packets package
// and travel up through dispatch unwrapped — pk.Validate()'s return value
// is exactly what raiseError/the caller's error handler sees, so endpoint
// only needs its own sentinel for the one failure mode that has no
// packets-level equivalent: a fixed header type the assembler has no
// constructor for.
var (
	// ErrUnknownPacketType is returned when the assembler hands back a
	// fixed header whose type has no registered packet constructor.
	ErrUnknownPacketType = errors.New("endpoint: unknown control packet type")
)
