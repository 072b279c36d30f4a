package rsp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pior/rsp/internal/testutils"
	"github.com/pior/rsp/wire"
)

var poolFactories = map[string]NewPoolFunc{
	"puddle":  NewPuddlePool,
	"channel": NewChannelPool,
}

// newTestClient starts a server with handler and connects a client to it.
func newTestClient(t testing.TB, handler testutils.Handler, config Config) (*Client, *testutils.Server) {
	t.Helper()

	server := testutils.NewServer(t, handler)

	client, err := NewClient(server.Addr(), config)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, server
}

// mockDialer creates connections over mocks and keeps track of them.
type mockDialer struct {
	mu    sync.Mutex
	mocks []*testutils.ConnectionMock
}

func (d *mockDialer) constructor(ctx context.Context) (*Connection, error) {
	m := testutils.NewConnectionMock()

	d.mu.Lock()
	d.mocks = append(d.mocks, m)
	d.mu.Unlock()

	return NewConnection(m, 0), nil
}

func (d *mockDialer) conns() []*testutils.ConnectionMock {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*testutils.ConnectionMock(nil), d.mocks...)
}

func (d *mockDialer) allClosed() bool {
	for _, m := range d.conns() {
		if !m.IsClosed() {
			return false
		}
	}
	return true
}

func okResponse() []byte {
	return testutils.Respond(wire.Str("OK"))
}
