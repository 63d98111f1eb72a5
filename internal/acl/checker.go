package acl

import (
	"errors"
	"fmt"
)

// Action is something a user does to a document.
type Action int

const (
	ActionRead Action = iota
	ActionEdit
	ActionUndo
	ActionHistory
	ActionShare
	ActionDelete
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionEdit:
		return "edit"
	case ActionUndo:
		return "undo"
	case ActionHistory:
		return "history"
	case ActionShare:
		return "share"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Checker answers permission questions from a Store.
type Checker struct {
	store Store
}

// NewChecker creates a new permission checker.
func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// CanPerform reports whether userID may perform action on docID.
// Users without a permission may do nothing.
func (c *Checker) CanPerform(docID, userID string, action Action) (bool, error) {
	role, err := c.store.GetRole(docID, userID)

	switch {
	case errors.Is(err, ErrPermissionNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return role.Allows(action), nil
	}
}

// RequirePermission returns ErrAccessDenied unless the action is allowed.
func (c *Checker) RequirePermission(docID, userID string, action Action) error {
	allowed, err := c.CanPerform(docID, userID, action)
	if err != nil {
		return err
	}

	if !allowed {
		return fmt.Errorf("%w: %s may not %s %s", ErrAccessDenied, userID, action, docID)
	}

	return nil
}
