// Package transport abstracts the network stream an endpoint reads and
// writes MQTT packets over, per spec §6. The core only ever sees Stream;
// net.Conn and *websocket.Conn implementations live in tcp.go and
// websocket.go. Grounded on the teacher's listeners package, collapsed
// from its listener/Init/Serve/Close lifecycle down to the single
// ReadExact/WriteAll/Shutdown contract the endpoint core actually needs.
package transport

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Kind classifies a transport error into the taxonomy spec §6/§7 maps
// against receive-loop and write-pipeline behavior.
type Kind int

const (
	// KindOther is any transport failure that isn't a recognized clean
	// close or short read.
	KindOther Kind = iota
	// KindEOF is a clean close of the underlying stream.
	KindEOF
	// KindConnectionReset is a peer-initiated reset (RST, or an
	// equivalent "connection reset by peer" condition), or an operation
	// on a connection already closed locally (net.ErrClosed).
	KindConnectionReset
	// KindShortRead covers both a short TCP read and the TLS
	// short-read record variant.
	KindShortRead
)

// Error wraps a transport failure with its classified Kind so callers can
// dispatch on it without inspecting the underlying error type.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Classify maps a raw error from a Stream operation to a transport Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, io.EOF):
		return KindEOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return KindShortRead
	case isConnReset(err):
		return KindConnectionReset
	default:
		return KindOther
	}
}

func isConnReset(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed) || errors.Is(opErr.Err, syscall.ECONNRESET)
	}
	return false
}

// Stream is the abstract bidirectional connection the endpoint core reads
// packets from and writes packets to. Implementations must not interleave
// partial packets: ReadExact and WriteAll each either complete in full or
// return an error with no further partial progress assumed by the caller.
type Stream interface {
	// ReadExact reads exactly len(buf) bytes into buf, or returns an
	// error classified by Classify.
	ReadExact(buf []byte) error

	// WriteAll writes every byte of buf, or returns an error classified
	// by Classify.
	WriteAll(buf []byte) error

	// Shutdown best-effort closes the transport. Safe to call more than
	// once.
	Shutdown() error
}
