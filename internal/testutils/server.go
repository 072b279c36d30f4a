package testutils

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"testing"

	"github.com/pior/rsp/frame"
	"github.com/pior/rsp/wire"
)

// Handler answers one request message. Returning nil closes the connection
// without answering.
type Handler func(payload []byte) []byte

// Server is a loopback server speaking the length-prefixed protocol.
// It records every request it receives.
type Server struct {
	listener net.Listener
	handler  Handler

	mu       sync.Mutex
	requests [][]byte
	conns    []net.Conn
	accepted int
	closed   bool
	wg       sync.WaitGroup
}

// NewServer starts a server closed at the end of the test.
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}

	s := &Server{listener: listener, handler: handler}
	t.Cleanup(s.Close)

	s.wg.Add(1)
	go s.acceptLoop()

	return s
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the server and closes every connection.
func (s *Server) Close() {
	_ = s.listener.Close()

	s.mu.Lock()
	s.closed = true
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns = append(s.conns, conn)
		s.accepted++
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		msg, err := wire.ReadMessage(r, wire.DefaultMaxMessageSize)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, msg)
		s.mu.Unlock()

		resp := s.handler(msg)
		if resp == nil {
			return
		}
		if err := wire.WriteMessage(w, resp); err != nil {
			return
		}
	}
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Requests returns the raw request messages received so far.
func (s *Server) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.requests...)
}

// Commands returns the textual requests received so far, without terminator.
func (s *Server) Commands() []string {
	var commands []string
	for _, req := range s.Requests() {
		if !frame.IsEnvelope(req) {
			commands = append(commands, string(bytes.TrimSuffix(req, []byte{wire.CommandTerminator})))
		}
	}
	return commands
}

// Envelopes returns the upload envelopes received so far.
func (s *Server) Envelopes() [][]byte {
	var envelopes [][]byte
	for _, req := range s.Requests() {
		if frame.IsEnvelope(req) {
			envelopes = append(envelopes, req)
		}
	}
	return envelopes
}

// Respond encodes a response message. It panics on values that cannot be encoded.
func Respond(v wire.Value) []byte {
	b, err := wire.AppendValue(nil, v)
	if err != nil {
		panic(err)
	}
	return b
}

// RespondError encodes an error response.
func RespondError(msg string) []byte {
	return wire.AppendError(nil, msg)
}

// Reply returns a handler answering every request with v.
func Reply(v wire.Value) Handler {
	resp := Respond(v)
	return func([]byte) []byte { return resp }
}
