package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/mq"
	"github.com/warenvoyage/apiserver/internal/policy"
	"github.com/warenvoyage/apiserver/internal/storage"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/types"
)

// DocumentStore keeps one verification document per identity.
type DocumentStore interface {
	PutKYCDocument(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) error
	OpenKYCDocument(ctx context.Context, userID uuid.UUID) (storage.Object, error)
	DeleteKYCDocument(ctx context.Context, userID uuid.UUID) error
}

// KYCService handles verification document submission and review.
type KYCService struct {
	repo   UserRepository
	docs   DocumentStore
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewKYCService builds a KYCService. Without docs every operation reports
// ErrServiceUnavailable.
func NewKYCService(repo UserRepository, docs DocumentStore, events EventPublisher, logger *slog.Logger) *KYCService {
	if events == nil {
		events = mq.NewPublisher(nil, "", logger)
	}
	return &KYCService{
		repo:   repo,
		docs:   docs,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SubmitDocument stores the actor's document and resets verification to pending.
func (s *KYCService) SubmitDocument(ctx context.Context, actor policy.Actor, body io.Reader, size int64, contentType string) (types.User, error) {
	if s.docs == nil {
		return types.User{}, unavailable("submit kyc document", errors.New("document storage is not configured"))
	}
	id := actor.User.ID
	if err := s.docs.PutKYCDocument(ctx, id, body, size, contentType); err != nil {
		return types.User{}, unavailable("store kyc document", err)
	}

	status := types.KYCStatusPending
	verified := false
	user, err := updateUser(ctx, s.repo, id, types.UserPatch{
		KYCDocumentsStatus: &status,
		IsKYCVerified:      &verified,
		ClearKYCVerifiedAt: true,
	})
	if err != nil {
		if delErr := s.docs.DeleteKYCDocument(ctx, id); delErr != nil {
			s.logger.Warn("delete orphaned kyc document", slog.String("user_id", id.String()), slog.Any("error", delErr))
		}
		return types.User{}, err
	}
	s.logger.Info("kyc document submitted", slog.String("user_id", id.String()))
	s.events.Publish(ctx, mq.NewEvent(mq.EventUpdated, user))
	return user, nil
}

// Review records an approval or a rejection of id's submitted document.
func (s *KYCService) Review(ctx context.Context, actor policy.Actor, id uuid.UUID, decision string) (types.User, error) {
	if !policy.CanAccessAny(actor) {
		return types.User{}, deny(s.logger, actor, "review kyc")
	}

	var patch types.UserPatch
	switch decision {
	case types.KYCStatusApproved:
		verified := true
		at := s.now()
		patch = types.UserPatch{IsKYCVerified: &verified, KYCVerifiedAt: &at}
	case types.KYCStatusRejected:
		verified := false
		patch = types.UserPatch{IsKYCVerified: &verified, ClearKYCVerifiedAt: true}
	default:
		return types.User{}, ValidationError{Field: "status", Message: "must be approved or rejected"}
	}
	patch.KYCDocumentsStatus = &decision

	target, err := loadUser(ctx, s.repo, id)
	if err != nil {
		return types.User{}, err
	}
	if target.KYCDocumentsStatus == nil {
		return types.User{}, ValidationError{Field: "status", Message: "no document has been submitted"}
	}

	user, err := updateUser(ctx, s.repo, id, patch)
	if err != nil {
		return types.User{}, err
	}
	s.logger.Info("kyc reviewed",
		slog.String("user_id", id.String()),
		slog.String("status", decision),
		slog.String("by", actor.User.ID.String()),
	)
	s.events.Publish(ctx, mq.NewEvent(mq.EventKYCReviewed, user))
	return user, nil
}

// OpenDocument returns id's stored document. Callers must close the body.
func (s *KYCService) OpenDocument(ctx context.Context, actor policy.Actor, id uuid.UUID) (storage.Object, error) {
	if !policy.CanAccessAny(actor) {
		return storage.Object{}, deny(s.logger, actor, "read kyc document")
	}
	if s.docs == nil {
		return storage.Object{}, unavailable("open kyc document", errors.New("document storage is not configured"))
	}
	if _, err := loadUser(ctx, s.repo, id); err != nil {
		return storage.Object{}, err
	}

	obj, err := s.docs.OpenKYCDocument(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Object{}, store.ErrNotFound
		}
		return storage.Object{}, unavailable("open kyc document", err)
	}
	return obj, nil
}
