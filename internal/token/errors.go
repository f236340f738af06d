package token

import "errors"

var (
	// ErrInvalidToken is returned for every validation failure: malformed,
	// mis-signed, expired or carrying an unknown role.
	ErrInvalidToken = errors.New("could not validate credentials")

	// ErrUnavailable is returned when a token cannot be signed.
	ErrUnavailable = errors.New("token service unavailable")
)
