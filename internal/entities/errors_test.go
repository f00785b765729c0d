package entities

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNotFoundByName(KindRelationType, "relation_c"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("not found must not match ErrConflict")
	}
	want := "lookup: no RelationType row found with name: relation_c"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != KindRelationType {
		t.Errorf("errors.As failed or wrong kind: %+v", nf)
	}
}

func TestNotFoundByID(t *testing.T) {
	err := NewNotFoundByID(KindEntry, 42)
	if err.Error() != "no Entry row found with ID: 42" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("create: %w", NewConflict(KindTag, "Robot"))
	if !errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is(err, ErrConflict)")
	}
	if IsNotFound(err) {
		t.Error("conflict must not be a not found")
	}
}

func TestInconsistentError(t *testing.T) {
	err := &InconsistentError{RelationID: 3, EntryID: 9, Err: NewNotFoundByID(KindEntry, 9)}

	if !errors.Is(err, ErrInconsistent) {
		t.Error("expected errors.Is(err, ErrInconsistent)")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected the wrapped not found to match ErrNotFound")
	}
}

func TestNewInUse(t *testing.T) {
	err := NewInUse(KindRelationType, 4)

	if !errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is(err, ErrConflict)")
	}
	want := "RelationType with ID: 4 is still referenced: conflict"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
