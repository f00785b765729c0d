package entities

import (
	"errors"
	"fmt"
)

// Entity kinds used in error messages and cache keys.
const (
	KindEntry        = "Entry"
	KindTag          = "Tag"
	KindRelationType = "RelationType"
	KindRelation     = "Relation"
	KindTeamTokens   = "TeamTokens"
)

var (
	// ErrNotFound matches every lookup failure, see NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches unique constraint violations, see ConflictError.
	ErrConflict = errors.New("conflict")
	// ErrInconsistent matches relations pointing at entries that no longer exist.
	ErrInconsistent = errors.New("inconsistent graph")
)

// NotFoundError is returned when a row looked up by ID or by name does not exist.
type NotFoundError struct {
	Kind string
	Key  string
}

// NewNotFoundByID creates a NotFoundError for an ID lookup.
func NewNotFoundByID(kind string, id int64) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: fmt.Sprintf("ID: %d", id)}
}

// NewNotFoundByName creates a NotFoundError for a name lookup.
func NewNotFoundByName(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: fmt.Sprintf("name: %s", name)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s row found with %s", e.Kind, e.Key)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a create or update would break a unique name.
type ConflictError struct {
	Kind string
	Key  string
}

// NewConflict creates a ConflictError.
func NewConflict(kind, key string) *ConflictError {
	return &ConflictError{Kind: kind, Key: key}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InconsistentError reports a relation whose endpoint entry is gone.
// It matches both ErrInconsistent and ErrNotFound.
type InconsistentError struct {
	RelationID int64
	EntryID    int64
	Err        error
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("relation %d references missing entry %d: %v", e.RelationID, e.EntryID, e.Err)
}

// Is lets errors.Is(err, ErrInconsistent) match.
func (e *InconsistentError) Is(target error) bool {
	return target == ErrInconsistent
}

// Unwrap exposes the underlying lookup error.
func (e *InconsistentError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NewInUse reports a delete refused because other rows still point at the target.
// It matches ErrConflict.
func NewInUse(kind string, id int64) error {
	return fmt.Errorf("%s with ID: %d is still referenced: %w", kind, id, ErrConflict)
}
