package visca

import (
	"errors"
	"fmt"
)

// VISCA error codes carried in a 0x6y reply
const (
	ErrCodeMessageLength = 0x01
	ErrCodeSyntax        = 0x02
	ErrCodeBufferFull    = 0x03
	ErrCodeCanceled      = 0x04
	ErrCodeNoSocket      = 0x05
	ErrCodeNotExecutable = 0x41
)

// ErrNotConnected is wrapped in a TransportError when a command is sent
// while the channel is down
var ErrNotConnected = errors.New("not connected")

// ErrCompletionPending is wrapped when a command was acked but its
// completion did not arrive in time. The camera is still executing it.
var ErrCompletionPending = errors.New("completion pending")

// ErrClosed is returned by WaitReady after Close
var ErrClosed = errors.New("transport closed")

// ProtocolError is an error reply from the camera. It is a normal outcome of
// a command (the camera refused it), not a channel fault.
type ProtocolError struct {
	Code   byte
	Socket byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("visca error 0x%02X: %s", e.Code, e.Description())
}

// Description returns the human-readable meaning of the error code
func (e *ProtocolError) Description() string {
	switch e.Code {
	case ErrCodeMessageLength:
		return "message length error"
	case ErrCodeSyntax:
		return "syntax error"
	case ErrCodeBufferFull:
		return "command buffer full"
	case ErrCodeCanceled:
		return "command canceled"
	case ErrCodeNoSocket:
		return "no socket"
	case ErrCodeNotExecutable:
		return "command not executable"
	default:
		return "unknown error"
	}
}

// TransportError is a fault on the command channel itself
type TransportError struct {
	Op     string // "dial", "write", "read", "send"
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("visca %s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("visca %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is (or wraps) a camera error reply
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTransportError reports whether err is (or wraps) a channel fault
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
