package ws

import "encoding/json"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to Server messages.
	MessageTypeOperation MessageType = "operation" // Client submits a batch of edits
	MessageTypeUndo      MessageType = "undo"      // Client reverts the current transaction
	MessageTypeRedo      MessageType = "redo"      // Client reapplies the next transaction
	MessageTypeSync      MessageType = "sync"      // Client requests current state

	// Server to Client messages.
	MessageTypeAck       MessageType = "ack"       // Server confirms a step was applied
	MessageTypeBroadcast MessageType = "broadcast" // Server pushes applied operations to clients
	MessageTypeState     MessageType = "state"     // Server sends full document state
	MessageTypeError     MessageType = "error"     // Server reports an error
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// OperationPayload is sent when a client submits edits. Ops holds a single
// operation object or an array of them.
type OperationPayload struct {
	DocID          string          `json:"docId"`
	BaseVersion    *int            `json:"baseVersion,omitempty"`
	NewTransaction bool            `json:"newTransaction"`
	Ops            json.RawMessage `json:"ops"`
}

// DocPayload names the document of an undo, redo or sync request.
type DocPayload struct {
	DocID string `json:"docId"`
}

// AckPayload confirms a step was applied.
type AckPayload struct {
	Version     int  `json:"version"`
	Transaction int  `json:"transaction"`
	HasUndo     bool `json:"hasUndo"`
	HasRedo     bool `json:"hasRedo"`
}

// BroadcastPayload pushes the operations of a step to other clients.
type BroadcastPayload struct {
	DocID   string          `json:"docId"`
	Version int             `json:"version"`
	Action  string          `json:"action"`
	Ops     json.RawMessage `json:"ops"`
	UserID  string          `json:"userId"`
}

// StatePayload sends the full document state.
type StatePayload struct {
	DocID       string          `json:"docId"`
	Content     json.RawMessage `json:"content"`
	Version     int             `json:"version"`
	Transaction int             `json:"transaction"`
	HasUndo     bool            `json:"hasUndo"`
	HasRedo     bool            `json:"hasRedo"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeAccessDenied    = "access_denied"
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeInvalidOp       = "invalid_operation"
	ErrorCodeVersionConflict = "version_conflict"
	ErrorCodeNothingToUndo   = "nothing_to_undo"
	ErrorCodeNothingToRedo   = "nothing_to_redo"
	ErrorCodeInternalError   = "internal_error"
)
