package acl

import "fmt"

// Role is a user's access level on one document.
type Role int

const (
	// Viewer may read the document.
	Viewer Role = iota
	// Editor may also patch it, walk its history and undo or redo.
	Editor
	// Owner may also share and delete it.
	Owner
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case Viewer:
		return "viewer"
	case Editor:
		return "editor"
	case Owner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "viewer":
		return Viewer, nil
	case "editor":
		return Editor, nil
	case "owner":
		return Owner, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r < Viewer || r > Owner {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}

	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = role

	return nil
}

// Allows reports whether the role grants action.
func (r Role) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return r >= Viewer
	case ActionEdit, ActionUndo, ActionHistory:
		return r >= Editor
	case ActionShare, ActionDelete:
		return r >= Owner
	default:
		return false
	}
}

// Permission is the role of one user on one document.
type Permission struct {
	DocID  string `json:"docId"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
