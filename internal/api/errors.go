package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/codec"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/history"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/serroba/docpatch/internal/ws"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrDocumentNotFound),
		errors.Is(err, acl.ErrPermissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, acl.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrDocumentExists),
		errors.Is(err, collab.ErrVersionConflict),
		errors.Is(err, history.ErrNothingToUndo),
		errors.Is(err, history.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, codec.ErrInvalidJSON),
		errors.Is(err, codec.ErrUnknownOp),
		errors.Is(err, codec.ErrInvalidSegment),
		errors.Is(err, ot.ErrEmptyBatch),
		errors.Is(err, acl.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, ot.ErrInvalidPath),
		errors.Is(err, ot.ErrInvalidRangeIndex),
		errors.Is(err, ot.ErrInvalidMove),
		errors.Is(err, ot.ErrUnsupportedOperation),
		errors.Is(err, ot.ErrMissingPrevious),
		errors.Is(err, ot.ErrMergeOnBatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collab.ErrSessionClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode maps domain errors to websocket error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, acl.ErrAccessDenied):
		return ws.ErrorCodeAccessDenied
	case errors.Is(err, collab.ErrVersionConflict):
		return ws.ErrorCodeVersionConflict
	case errors.Is(err, history.ErrNothingToUndo):
		return ws.ErrorCodeNothingToUndo
	case errors.Is(err, history.ErrNothingToRedo):
		return ws.ErrorCodeNothingToRedo
	}

	switch statusFor(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ws.ErrorCodeInvalidOp
	case http.StatusNotFound:
		return ws.ErrorCodeInvalidMessage
	default:
		return ws.ErrorCodeInternalError
	}
}

// writeError writes err with its mapped status. Server errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		http.Error(w, "internal server error", status)

		return
	}

	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
