package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/policy"
)

const (
	defaultPage     = 1
	defaultLimit    = 100
	maxLimit        = 100
	maxRequestBytes = 1 << 20
)

type contextKey string

const contextActorKey contextKey = "actor"

// ErrorResponse is the error payload of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func withActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

func actorFromContext(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(contextActorKey).(policy.Actor)
	return actor, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Detail: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// parsePagination accepts either skip/limit or page/limit.
func parsePagination(r *http.Request) (offset, limit int, err error) {
	query := r.URL.Query()
	limit = defaultLimit

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := strings.TrimSpace(query.Get("skip")); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("invalid skip")
		}
		return offset, limit, nil
	}

	page := defaultPage
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 || page-1 > math.MaxInt/limit {
			return 0, 0, errors.New("invalid page")
		}
	}
	return (page - 1) * limit, limit, nil
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, errors.New("invalid user id")
	}
	return id, nil
}
