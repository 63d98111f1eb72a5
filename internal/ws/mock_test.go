package ws_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/serroba/docpatch/internal/ws"
	"github.com/stretchr/testify/require"
)

const testDocID = "doc1"

var errConnBroken = errors.New("connection broken")

// mockConn is a test double for ws.Conn. Written messages are decoded back
// into ws.Message, so payloads read as generic JSON values.
type mockConn struct {
	mu        sync.Mutex
	messages  []ws.Message
	closed    bool
	failWrite bool

	incoming chan []byte
}

func newMockConn() *mockConn {
	return &mockConn{incoming: make(chan []byte, 10)}
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrite {
		return errConnBroken
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	m.messages = append(m.messages, msg)

	return nil
}

func (m *mockConn) ReadJSON(v any) error {
	data, ok := <-m.incoming
	if !ok {
		return errConnBroken
	}

	return json.Unmarshal(data, v)
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// push queues a frame for ReadJSON. Strings are sent verbatim.
func (m *mockConn) push(t *testing.T, v any) {
	t.Helper()

	if s, ok := v.(string); ok {
		m.incoming <- []byte(s)

		return
	}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	m.incoming <- data
}

func (m *mockConn) Messages() []ws.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ws.Message, len(m.messages))
	copy(result, m.messages)

	return result
}

func (m *mockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *mockConn) breakWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failWrite = true
}

// subscribed registers a client on a fresh mock connection and subscribes it.
func subscribed(hub *ws.Hub, id, docID string) (*ws.Client, *mockConn) {
	conn := newMockConn()
	client := ws.NewClient(id, "user-"+id, conn)

	hub.Register(client)
	hub.Subscribe(client, docID)

	return client, conn
}
