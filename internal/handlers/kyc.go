package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/warenvoyage/apiserver/internal/services"
)

const (
	formFieldDocument  = "document"
	maxDocumentBytes   = 10 << 20
	maxMultipartMemory = 2 << 20
)

// KYCHandler serves verification document submission and review.
type KYCHandler struct {
	kyc    *services.KYCService
	logger *slog.Logger
}

func NewKYCHandler(kyc *services.KYCService, logger *slog.Logger) *KYCHandler {
	return &KYCHandler{kyc: kyc, logger: logger}
}

// Submit stores the caller's document from the multipart field "document".
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldDocument)
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()
	if header.Size > maxDocumentBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
		return
	}

	user, err := h.kyc.SubmitDocument(r.Context(), actor, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *KYCHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req KYCReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.kyc.Review(r.Context(), actor, id, strings.TrimSpace(req.Status))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *KYCHandler) Download(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.kyc.OpenDocument(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("stream kyc document", slog.String("user_id", id.String()), slog.Any("error", err))
	}
}

type KYCReviewRequest struct {
	Status string `json:"status"`
}
