package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/storage"
)

var errNoPermissionStore = errors.New("permissions are not enabled")

// GrantRequest is the request body of PUT /documents/{id}/permissions/{userId}.
type GrantRequest struct {
	Role *acl.Role `json:"role"`
}

// PermissionsResponse lists the permissions of a document.
type PermissionsResponse struct {
	ID          string           `json:"id"`
	Permissions []acl.Permission `json:"permissions"`
}

// sharing resolves the document of a permissions request and checks that the
// caller may share it.
func (s *Server) sharing(r *http.Request) (string, error) {
	if s.permStore == nil {
		return "", errNoPermissionStore
	}

	id := docID(r)

	exists, err := s.store.DocumentExists(id)
	if err != nil {
		return "", err
	}

	if !exists {
		return "", storage.ErrDocumentNotFound
	}

	if err := s.requirePermission(id, UserIDFromContext(r.Context()), acl.ActionShare); err != nil {
		return "", err
	}

	return id, nil
}

// handleListPermissions handles GET /documents/{id}/permissions.
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := s.sharing(r)
	if err != nil {
		writePermissionError(w, err)

		return
	}

	perms, err := s.permStore.ListPermissions(id)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, PermissionsResponse{ID: id, Permissions: perms})
}

// handleGrantPermission handles PUT /documents/{id}/permissions/{userId}.
func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	id, err := s.sharing(r)
	if err != nil {
		writePermissionError(w, err)

		return
	}

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(acl.ErrUnknownRole, err))

		return
	}

	if req.Role == nil {
		writeError(w, fmt.Errorf("%w: role is required", acl.ErrUnknownRole))

		return
	}

	target := mux.Vars(r)["userId"]

	if err := s.permStore.Grant(id, target, *req.Role); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, acl.Permission{DocID: id, UserID: target, Role: *req.Role})
}

// handleRevokePermission handles DELETE /documents/{id}/permissions/{userId}.
func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	id, err := s.sharing(r)
	if err != nil {
		writePermissionError(w, err)

		return
	}

	if err := s.permStore.Revoke(id, mux.Vars(r)["userId"]); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writePermissionError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNoPermissionStore) {
		http.Error(w, err.Error(), http.StatusNotImplemented)

		return
	}

	writeError(w, err)
}
