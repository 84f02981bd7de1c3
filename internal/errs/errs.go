// Package errs defines klip's error taxonomy.
//
// Every recoverable situation the protocol can hit maps to exactly one
// Kind. Handlers compare against Kind, never against message text, so
// wording can change freely without breaking callers.
package errs

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a protocol-level failure.
type Kind int

const (
	// KindAuth covers any MAC or signature mismatch. Per spec §7, the
	// session never reveals which comparison failed.
	KindAuth Kind = iota
	// KindProtocolMismatch is a version byte disagreement.
	KindProtocolMismatch
	// KindCapacity is server admission refusal.
	KindCapacity
	// KindEmpty is an empty-clip read (not itself a fault).
	KindEmpty
	// KindStale is a clip whose age has reached the configured TTL.
	KindStale
	// KindShort is a stored/read ciphertext shorter than the 32-byte floor.
	KindShort
	// KindOversize is a stored ciphertext exceeding max_payload_len.
	KindOversize
	// KindKeyIDMismatch is a decrypt-side key fingerprint disagreement.
	KindKeyIDMismatch
	// KindTimeout is a deadline exceeded on a read or write.
	KindTimeout
	// KindIO is a plain transport-level I/O failure.
	KindIO
	// KindConfig is a missing or malformed configuration field.
	KindConfig
	// KindUnknownOp is an unrecognized opcode byte.
	KindUnknownOp
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication failed"
	case KindProtocolMismatch:
		return "protocol version mismatch"
	case KindCapacity:
		return "capacity reached"
	case KindEmpty:
		return "clipboard is empty"
	case KindStale:
		return "clip is too old"
	case KindShort:
		return "short ciphertext"
	case KindOversize:
		return "payload too large"
	case KindKeyIDMismatch:
		return "encryption key id mismatch"
	case KindTimeout:
		return "timed out"
	case KindIO:
		return "i/o error"
	case KindConfig:
		return "invalid configuration"
	case KindUnknownOp:
		return "unknown opcode"
	default:
		return "klip error"
	}
}

// Error is a typed, optionally-wrapped klip error.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	if e.msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	return e.Kind.String()
}

// Unwrap lets errors.Is/As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is a *Error of the same Kind, so callers can
// write errors.Is(err, errs.New(errs.KindAuth, "")) style checks, but more
// idiomatically should compare the Kind returned by errs.Of(err).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause as context to a new Error of the given kind, using
// pkg/errors so the wrapped error carries a stack trace for diagnostics.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: pkgerrors.Wrap(cause, msg)}
}

// Of extracts the Kind of err if it (or something it wraps) is a *Error.
// It returns KindIO for any other non-nil error, and a zero Kind/false for
// a nil error.
func Of(err error) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindIO, true
}
