package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Common errors.
var (
	// ErrInvalidMessage is returned by Receive for a frame that was read but
	// could not be understood. The connection stays usable.
	ErrInvalidMessage = errors.New("invalid message")
	ErrClientClosed   = errors.New("client is closed")
)

// Conn abstracts a WebSocket connection for testability.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Client is one websocket connection of a user.
type Client struct {
	ID     string
	UserID string
	conn   Conn

	// writeMu serializes writes; gorilla connections allow one writer.
	writeMu sync.Mutex
	closed  bool

	mu    sync.Mutex
	docID string
}

// NewClient creates a new client wrapper.
func NewClient(id, userID string, conn Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
	}
}

// Send writes msg to the connection. Concurrent calls are serialized.
func (c *Client) Send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	return c.conn.WriteJSON(msg)
}

// SendError sends an error message to the client.
func (c *Client) SendError(code, message string) error {
	return c.Send(Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Receive reads the next client message and decodes its payload into the
// type matching its message type: OperationPayload for operations and
// DocPayload for undo, redo and sync. Frames that are not JSON, carry a
// server-only or unknown type, or have a malformed payload yield an error
// wrapping ErrInvalidMessage.
func (c *Client) Receive() (Message, error) {
	var raw json.RawMessage
	if err := c.conn.ReadJSON(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}

		return Message{}, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return Message{Type: env.Type}, fmt.Errorf("%w: %s: %w", ErrInvalidMessage, env.Type, err)
	}

	return Message{Type: env.Type, Payload: payload}, nil
}

func decodePayload(typ MessageType, data json.RawMessage) (any, error) {
	switch typ {
	case MessageTypeOperation:
		var payload OperationPayload
		if err := unmarshalOptional(data, &payload); err != nil {
			return nil, err
		}

		if len(payload.Ops) == 0 {
			return nil, errors.New("missing ops")
		}

		return payload, nil
	case MessageTypeUndo, MessageTypeRedo, MessageTypeSync:
		var payload DocPayload
		if err := unmarshalOptional(data, &payload); err != nil {
			return nil, err
		}

		return payload, nil
	case MessageTypeAck, MessageTypeBroadcast, MessageTypeState, MessageTypeError:
		return nil, errors.New("message type is sent by the server only")
	default:
		return nil, fmt.Errorf("unknown message type %q", typ)
	}
}

// unmarshalOptional leaves v untouched for an absent or null payload.
func unmarshalOptional(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	return json.Unmarshal(data, v)
}

// Close closes the connection. Later sends fail with ErrClientClosed and
// repeated calls are no-ops.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	return c.conn.Close()
}

// DocID returns the document the client is subscribed to.
func (c *Client) DocID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.docID
}

// SetDocID sets the document the client is subscribed to.
func (c *Client) SetDocID(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docID = docID
}
