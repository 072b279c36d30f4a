package rsp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pior/rsp/wire"
)

// Connection is a single connection to the server.
// It is not safe for concurrent use: the pool hands it to one caller at a time.
type Connection struct {
	net.Conn
	Reader *bufio.Reader
	Writer *bufio.Writer

	maxMessageSize uint64
}

// NewConnection wraps netConn. Responses larger than maxMessageSize are rejected;
// zero means wire.DefaultMaxMessageSize.
func NewConnection(netConn net.Conn, maxMessageSize uint64) *Connection {
	if maxMessageSize == 0 {
		maxMessageSize = wire.DefaultMaxMessageSize
	}
	return &Connection{
		Conn:           netConn,
		Reader:         bufio.NewReader(netConn),
		Writer:         bufio.NewWriter(netConn),
		maxMessageSize: maxMessageSize,
	}
}

// aLongTimeAgo is a non-zero time far in the past, used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Send writes one message and reads the response message.
//
// The context deadline is applied to the socket. Cancelling the context
// interrupts a pending read or write, which leaves the connection unusable.
func (c *Connection) Send(ctx context.Context, payload []byte) ([]byte, error) {
	deadline, hasDeadline := ctx.Deadline()
	if err := c.Conn.SetDeadline(deadline); err != nil {
		return nil, &wire.ConnectionError{Op: "deadline", Err: err}
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.Conn.SetDeadline(aLongTimeAgo)
		close(interrupted)
	})
	defer func() {
		// The deadline must not be reset under the next caller.
		if !stop() {
			<-interrupted
		}
	}()

	resp, err := c.roundTrip(payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Connection) roundTrip(payload []byte) ([]byte, error) {
	if err := wire.WriteMessage(c.Writer, payload); err != nil {
		return nil, err
	}
	return wire.ReadMessage(c.Reader, c.maxMessageSize)
}

// dialConnection opens a TCP connection to addr with Nagle's algorithm disabled.
func dialConnection(ctx context.Context, dialer *net.Dialer, addr string, maxMessageSize uint64) (*Connection, error) {
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := netConn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	return NewConnection(netConn, maxMessageSize), nil
}
