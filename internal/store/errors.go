package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is the kind matched by every DuplicateError.
var ErrDuplicate = errors.New("duplicate")

// Fields reported by DuplicateError.
const (
	FieldPhone = "phone"
	FieldEmail = "email"
)

// DuplicateError reports a uniqueness violation. Field names the colliding
// column when it can be determined.
type DuplicateError struct {
	Field string
}

func (e DuplicateError) Error() string {
	if e.Field == "" {
		return "a user with these details already exists"
	}
	return fmt.Sprintf("a user with this %s already exists", e.Field)
}

func (e DuplicateError) Is(target error) bool { return target == ErrDuplicate }
