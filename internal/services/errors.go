package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned for an unknown phone and for a wrong
	// password alike.
	ErrAuthentication = errors.New("incorrect phone number or password")

	// ErrInactiveAccount is returned after a correct credential check when
	// the identity has been deactivated.
	ErrInactiveAccount = errors.New("inactive user")

	// ErrForbidden is returned when a valid caller lacks the privilege for
	// the requested target.
	ErrForbidden = errors.New("the user doesn't have enough privileges")

	// ErrMissingCredentials is returned when a login omits phone or password.
	ErrMissingCredentials = errors.New("phone and password are required")

	// ErrServiceUnavailable wraps infrastructure failures the caller may retry.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrServiceUnavailable, err)
}
