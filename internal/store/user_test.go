package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestClassifyUniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantOK    bool
		wantField string
	}{
		{name: "phone index", err: &pq.Error{Code: "23505", Constraint: "ix_users_phone"}, wantOK: true, wantField: FieldPhone},
		{name: "email index", err: &pq.Error{Code: "23505", Constraint: "ix_users_email"}, wantOK: true, wantField: FieldEmail},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "users_phone_key"}), wantOK: true, wantField: FieldPhone},
		{name: "unknown constraint", err: &pq.Error{Code: "23505", Constraint: "users_pkey"}, wantOK: true, wantField: ""},
		{name: "other code", err: &pq.Error{Code: "23503", Constraint: "ix_users_phone"}},
		{name: "plain error", err: errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dup, ok := classifyUniqueViolation(tc.err)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v got %v", tc.wantOK, ok)
			}
			if dup.Field != tc.wantField {
				t.Fatalf("expected field %q got %q", tc.wantField, dup.Field)
			}
		})
	}
}

func TestDuplicateErrorMessage(t *testing.T) {
	if got := (DuplicateError{Field: FieldPhone}).Error(); got != "a user with this phone already exists" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(DuplicateError{}, ErrDuplicate) {
		t.Fatal("DuplicateError must match ErrDuplicate")
	}
}
