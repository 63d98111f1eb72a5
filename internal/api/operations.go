package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/serroba/docpatch/internal/codec"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/wI2L/jsondiff"
)

// OperationsRequest is the request body of POST /documents/{id}/operations.
// Ops holds one operation object or an array of them. A missing BaseVersion
// skips the optimistic version check.
type OperationsRequest struct {
	BaseVersion    *int            `json:"baseVersion,omitempty"`
	NewTransaction bool            `json:"newTransaction"`
	Ops            json.RawMessage `json:"ops"`
}

// StepResponse describes the document after a patch, undo or redo.
type StepResponse struct {
	Version     int             `json:"version"`
	Transaction int             `json:"transaction"`
	HasUndo     bool            `json:"hasUndo"`
	HasRedo     bool            `json:"hasRedo"`
	Ops         json.RawMessage `json:"ops"`
}

// HistoryEntry is one logged operation with its inverse.
type HistoryEntry struct {
	Transaction int             `json:"transaction"`
	Op          json.RawMessage `json:"op"`
	Inverse     json.RawMessage `json:"inverse"`
	Patch       jsondiff.Patch  `json:"patch"`
}

// HistoryResponse is the response body of GET /documents/{id}/history.
type HistoryResponse struct {
	ID          string         `json:"id"`
	Transaction int            `json:"transaction"`
	Entries     []HistoryEntry `json:"entries"`
}

// handleOperations handles POST /documents/{id}/operations.
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	var req OperationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	ops, err := codec.DecodeBatch(req.Ops)
	if err != nil {
		writeError(w, err)

		return
	}

	baseVersion := collab.AnyVersion
	if req.BaseVersion != nil {
		baseVersion = *req.BaseVersion
	}

	s.step(w, r, func(session *collab.Session, userID string) (collab.Result, error) {
		return session.Apply("", userID, ops, req.NewTransaction, baseVersion)
	})
}

// handleUndo handles POST /documents/{id}/undo.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, func(session *collab.Session, userID string) (collab.Result, error) {
		return session.Undo("", userID)
	})
}

// handleRedo handles POST /documents/{id}/redo.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, func(session *collab.Session, userID string) (collab.Result, error) {
		return session.Redo("", userID)
	})
}

func (s *Server) step(w http.ResponseWriter, r *http.Request, fn func(*collab.Session, string) (collab.Result, error)) {
	session, err := s.manager.GetOrCreateSession(docID(r))
	if err != nil {
		writeError(w, err)

		return
	}

	result, err := fn(session, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	ops, err := codec.EncodeBatch(result.Ops)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, StepResponse{
		Version:     result.Version,
		Transaction: result.Transaction,
		HasUndo:     result.HasUndo,
		HasRedo:     result.HasRedo,
		Ops:         ops,
	})
}

// handleHistory handles GET /documents/{id}/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := docID(r)

	session, err := s.manager.GetOrCreateSession(id)
	if err != nil {
		writeError(w, err)

		return
	}

	entries, transaction, err := session.History(UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	resp := HistoryResponse{
		ID:          id,
		Transaction: transaction,
		Entries:     make([]HistoryEntry, 0, len(entries)),
	}

	for i, e := range entries {
		entry, err := historyEntry(e.Transaction, e.Op, e.Inverse)
		if err != nil {
			writeError(w, fmt.Errorf("entry %d: %w", i, err))

			return
		}

		resp.Entries = append(resp.Entries, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

func historyEntry(transaction int, op, inverse ot.Operation) (HistoryEntry, error) {
	opJSON, err := codec.EncodeOperation(op)
	if err != nil {
		return HistoryEntry{}, err
	}

	inverseJSON, err := codec.EncodeOperation(inverse)
	if err != nil {
		return HistoryEntry{}, err
	}

	patch, err := ot.ToJSONPatch(ot.Ops(op))
	if err != nil {
		return HistoryEntry{}, err
	}

	return HistoryEntry{
		Transaction: transaction,
		Op:          opJSON,
		Inverse:     inverseJSON,
		Patch:       patch,
	}, nil
}
