package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/warenvoyage/apiserver/internal/services"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/internal/token"
)

// writeServiceError maps the service error taxonomy to a status and a
// detail message. Causes of infrastructure failures are logged, not sent.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation services.ValidationError
		duplicate  store.DuplicateError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, validation.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusBadRequest, duplicate.Error())
	case errors.Is(err, services.ErrAuthentication), errors.Is(err, token.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrInactiveAccount), errors.Is(err, services.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrServiceUnavailable):
		logger.Error("service unavailable", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, services.ErrServiceUnavailable.Error())
	default:
		logger.Error("unhandled error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
