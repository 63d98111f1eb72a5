package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/serroba/docpatch/internal/codec"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/ws"
)

// sessionInterface allows mocking the session for testing.
type sessionInterface interface {
	Apply(clientID, userID string, ops ot.Batch, newTransaction bool, baseVersion int) (collab.Result, error)
	Undo(clientID, userID string) (collab.Result, error)
	Redo(clientID, userID string) (collab.Result, error)
	GetState(userID string) (collab.DocumentState, error)
}

// handleWebSocket handles GET /ws?docId={id}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "docId query parameter is required", http.StatusBadRequest)

		return
	}

	userID := UserIDFromContext(r.Context())

	client, cleanup, err := s.setupWebSocketClient(w, r, docID, userID)
	if err != nil {
		return
	}

	defer cleanup()

	session, err := s.initializeSession(client, docID, userID)
	if err != nil {
		return
	}

	s.handleMessages(client, session, docID, userID)
}

// setupWebSocketClient upgrades the connection and creates a client.
func (s *Server) setupWebSocketClient(
	w http.ResponseWriter, r *http.Request, docID, userID string,
) (*ws.Client, func(), error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)

		return nil, nil, err
	}

	client := ws.NewClient(uuid.New().String(), userID, conn)
	s.hub.Register(client)
	s.hub.Subscribe(client, docID)

	cleanup := func() {
		s.hub.Unregister(client)
		_ = client.Close()
	}

	return client, cleanup, nil
}

// initializeSession loads the document session and sends the initial state.
func (s *Server) initializeSession(client *ws.Client, docID, userID string) (sessionInterface, error) {
	session, err := s.manager.GetOrCreateSession(docID)
	if err != nil {
		_ = client.SendError(errorCode(err), err.Error())

		return nil, err
	}

	if err := sendState(client, session, docID, userID); err != nil {
		return nil, err
	}

	return session, nil
}

// handleMessages processes incoming messages until the connection drops or
// the document is closed under the client. Malformed messages are answered
// with an error and do not end the connection.
func (s *Server) handleMessages(client *ws.Client, session sessionInterface, docID, userID string) {
	for {
		msg, err := client.Receive()
		if client.DocID() != docID {
			return
		}

		if errors.Is(err, ws.ErrInvalidMessage) {
			_ = client.SendError(ws.ErrorCodeInvalidMessage, err.Error())

			continue
		}

		if err != nil {
			return
		}

		switch msg.Type {
		case ws.MessageTypeOperation:
			s.handleOperation(client, session, docID, userID, msg)
		case ws.MessageTypeUndo, ws.MessageTypeRedo:
			s.handleHistoryStep(client, session, docID, userID, msg)
		case ws.MessageTypeSync:
			if sameDocument(client, docID, msg) {
				_ = sendState(client, session, docID, userID)
			}
		}
	}
}

// handleOperation decodes and applies an operation message.
func (s *Server) handleOperation(client *ws.Client, session sessionInterface, docID, userID string, msg ws.Message) {
	payload, ok := msg.Payload.(ws.OperationPayload)
	if !ok || (payload.DocID != "" && payload.DocID != docID) {
		_ = client.SendError(ws.ErrorCodeInvalidMessage, "invalid operation payload")

		return
	}

	ops, err := codec.DecodeBatch(payload.Ops)
	if err != nil {
		_ = client.SendError(ws.ErrorCodeInvalidOp, err.Error())

		return
	}

	baseVersion := collab.AnyVersion
	if payload.BaseVersion != nil {
		baseVersion = *payload.BaseVersion
	}

	result, err := session.Apply(client.ID, userID, ops, payload.NewTransaction, baseVersion)
	sendResult(client, result, err)
}

// handleHistoryStep runs an undo or redo message.
func (s *Server) handleHistoryStep(client *ws.Client, session sessionInterface, docID, userID string, msg ws.Message) {
	if !sameDocument(client, docID, msg) {
		return
	}

	var (
		result collab.Result
		err    error
	)

	if msg.Type == ws.MessageTypeUndo {
		result, err = session.Undo(client.ID, userID)
	} else {
		result, err = session.Redo(client.ID, userID)
	}

	sendResult(client, result, err)
}

func sameDocument(client *ws.Client, docID string, msg ws.Message) bool {
	payload, _ := msg.Payload.(ws.DocPayload)
	if payload.DocID != "" && payload.DocID != docID {
		_ = client.SendError(ws.ErrorCodeInvalidMessage, "client is subscribed to another document")

		return false
	}

	return true
}

func sendResult(client *ws.Client, result collab.Result, err error) {
	if err != nil {
		_ = client.SendError(errorCode(err), err.Error())

		return
	}

	_ = client.Send(ws.Message{
		Type: ws.MessageTypeAck,
		Payload: ws.AckPayload{
			Version:     result.Version,
			Transaction: result.Transaction,
			HasUndo:     result.HasUndo,
			HasRedo:     result.HasRedo,
		},
	})
}

// sendState sends the current document state to the client.
func sendState(client *ws.Client, session sessionInterface, docID, userID string) error {
	state, err := session.GetState(userID)
	if err != nil {
		_ = client.SendError(errorCode(err), err.Error())

		return err
	}

	content, err := codec.EncodeValue(state.Doc)
	if err != nil {
		_ = client.SendError(ws.ErrorCodeInternalError, "failed to encode document")

		return err
	}

	return client.Send(ws.Message{
		Type: ws.MessageTypeState,
		Payload: ws.StatePayload{
			DocID:       docID,
			Content:     content,
			Version:     state.Version,
			Transaction: state.Transaction,
			HasUndo:     state.HasUndo,
			HasRedo:     state.HasRedo,
		},
	})
}
