package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/codec"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
)

// CreateDocumentRequest is the request body for creating a document.
// An empty ID is replaced by a generated one and missing content starts the
// document as an empty mapping.
type CreateDocumentRequest struct {
	ID      string          `json:"id"`
	Content json.RawMessage `json:"content,omitempty"`
}

// CreateDocumentResponse is the response body for creating a document.
type CreateDocumentResponse struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// DocumentResponse is the response body for getting a document.
type DocumentResponse struct {
	ID          string          `json:"id"`
	Content     json.RawMessage `json:"content"`
	Version     int             `json:"version"`
	Transaction int             `json:"transaction"`
	HasUndo     bool            `json:"hasUndo"`
	HasRedo     bool            `json:"hasRedo"`
}

// handleCreateDocument handles POST /documents.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	content := ot.Map(nil)

	if len(req.Content) > 0 {
		decoded, err := codec.DecodeValue(req.Content)
		if err != nil {
			writeError(w, fmt.Errorf("content: %w", err))

			return
		}

		content = decoded
	}

	if err := s.store.CreateDocument(req.ID); err != nil {
		writeError(w, err)

		return
	}

	initial := history.New(content)
	if err := s.store.SaveSnapshot(req.ID, initial); err != nil {
		if delErr := s.store.DeleteDocument(req.ID); delErr != nil {
			log.Printf("document %s: cleanup after failed snapshot: %v", req.ID, delErr)
		}

		writeError(w, err)

		return
	}

	userID := UserIDFromContext(r.Context())
	if s.permStore != nil {
		if err := s.permStore.Grant(req.ID, userID, acl.Owner); err != nil {
			log.Printf("document %s: grant owner to %s: %v", req.ID, userID, err)
		}
	}

	writeJSON(w, http.StatusCreated, CreateDocumentResponse{ID: req.ID, Version: initial.Version})
}

// handleGetDocument handles GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := docID(r)

	session, err := s.manager.GetOrCreateSession(id)
	if err != nil {
		writeError(w, err)

		return
	}

	state, err := session.GetState(UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	resp, err := documentResponse(id, state)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func documentResponse(id string, state collab.DocumentState) (DocumentResponse, error) {
	content, err := codec.EncodeValue(state.Doc)
	if err != nil {
		return DocumentResponse{}, err
	}

	return DocumentResponse{
		ID:          id,
		Content:     content,
		Version:     state.Version,
		Transaction: state.Transaction,
		HasUndo:     state.HasUndo,
		HasRedo:     state.HasRedo,
	}, nil
}

// handleDeleteDocument handles DELETE /documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := docID(r)

	exists, err := s.store.DocumentExists(id)
	if err != nil {
		writeError(w, err)

		return
	}

	if !exists {
		writeError(w, storage.ErrDocumentNotFound)

		return
	}

	if err := s.requirePermission(id, UserIDFromContext(r.Context()), acl.ActionDelete); err != nil {
		writeError(w, err)

		return
	}

	if err := s.manager.DeleteDocument(id); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
