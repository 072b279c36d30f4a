package wire

import (
	"errors"
	"fmt"
)

// ErrMessageTooLarge is returned when a length prefix announces more bytes than
// the reader accepts. The unread body leaves the stream out of sync.
var ErrMessageTooLarge = errors.New("wire: message exceeds maximum size")

// ServerError is an "error" tagged response.
// The server rejected the command; the protocol state is intact.
//
// Connection handling: Connection can be REUSED
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// ShouldCloseConnection returns false - server errors don't corrupt protocol state
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// DecodeError represents a response that was fully read but could not be decoded.
//
// Common causes:
//   - Unknown type tag
//   - Array length < 1
//   - Truncated value
//   - Vector blob not aligned to its element width
//
// Connection handling: the message boundary is known, connection can be REUSED
type DecodeError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode error: " + e.Message + ": " + e.Err.Error()
	}
	return "decode error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns false - the framing layer consumed the whole message
func (e *DecodeError) ShouldCloseConnection() bool {
	return false
}

// ConnectionError wraps underlying I/O errors from connection operations.
//
// Common causes:
//   - Connection closed or reset
//   - Deadline exceeded
//   - Short read of a length prefix or body
//   - Oversized message
//
// Connection handling: Connection is broken, CLOSE it
type ConnectionError struct {
	Op  string // Operation that failed (read, write, flush)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by all protocol error types.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns true for ConnectionError and for unknown error types.
// Returns false for DecodeError, ServerError and nil.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
