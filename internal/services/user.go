package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/credential"
	"github.com/warenvoyage/apiserver/internal/metrics"
	"github.com/warenvoyage/apiserver/internal/mq"
	"github.com/warenvoyage/apiserver/internal/policy"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/types"
)

// UserRepository defines persistence operations for identities.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByPhone(ctx context.Context, phone string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, error)
	Create(ctx context.Context, candidate types.NewUser) (types.User, error)
	Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (types.User, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Ping(ctx context.Context) error
}

// EventPublisher emits identity lifecycle events after a committed change.
type EventPublisher interface {
	Publish(ctx context.Context, event mq.Event)
}

// ProfileUpdate is a self-service partial update. Nil fields are left
// untouched; an empty Email clears the address.
type ProfileUpdate struct {
	Email    *string
	FullName *string
	Password *string
	IsActive *bool
}

// UserService encapsulates identity read, update and delete use-cases.
type UserService struct {
	repo   UserRepository
	hasher *credential.Hasher
	events EventPublisher
	docs   DocumentStore
	logger *slog.Logger
}

// NewUserService builds a UserService. events and docs may be nil.
func NewUserService(repo UserRepository, hasher *credential.Hasher, events EventPublisher, docs DocumentStore, logger *slog.Logger) *UserService {
	if events == nil {
		events = mq.NewPublisher(nil, "", logger)
	}
	return &UserService{repo: repo, hasher: hasher, events: events, docs: docs, logger: logger}
}

// Ping reports whether the identity store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return unavailable("ping store", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (types.User, error) {
	if !policy.CanAccess(actor, id) {
		return types.User{}, deny(s.logger, actor, "get user")
	}
	return loadUser(ctx, s.repo, id)
}

func (s *UserService) List(ctx context.Context, actor policy.Actor, offset, limit int) ([]types.User, error) {
	if !policy.CanAccessAny(actor) {
		return nil, deny(s.logger, actor, "list users")
	}
	users, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// Update applies a profile update to id. Role and KYC fields are never
// touched here.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in ProfileUpdate) (types.User, error) {
	target, err := s.manageable(ctx, actor, id, "update user")
	if err != nil {
		return types.User{}, err
	}

	patch, err := s.profilePatch(in)
	if err != nil {
		return types.User{}, err
	}
	if patch.Empty() {
		return target, nil
	}

	user, err := updateUser(ctx, s.repo, id, patch)
	if err != nil {
		return types.User{}, err
	}
	s.events.Publish(ctx, mq.NewEvent(mq.EventUpdated, user))
	return user, nil
}

// SetRole moves id to role. The actor must be allowed to assign both the
// target's current role and the new one, so operators can only be
// demoted by those who could have promoted them.
func (s *UserService) SetRole(ctx context.Context, actor policy.Actor, id uuid.UUID, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, ValidationError{Field: "role", Message: "unknown role"}
	}
	if !policy.CanAssignRole(actor, role) {
		return types.User{}, deny(s.logger, actor, "assign role")
	}

	target, err := loadUser(ctx, s.repo, id)
	if err != nil {
		return types.User{}, err
	}
	if !policy.CanAssignRole(actor, target.Role) {
		return types.User{}, deny(s.logger, actor, "change operator role")
	}
	if target.Role == role {
		return target, nil
	}

	user, err := updateUser(ctx, s.repo, id, types.UserPatch{Role: &role})
	if err != nil {
		return types.User{}, err
	}
	s.logger.Info("role changed",
		slog.String("user_id", id.String()),
		slog.String("from", target.Role.String()),
		slog.String("to", role.String()),
		slog.String("by", actor.User.ID.String()),
	)
	s.events.Publish(ctx, mq.NewEvent(mq.EventRoleChanged, user))
	return user, nil
}

// Delete hard-deletes id and drops its verification document.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	user, err := s.manageable(ctx, actor, id, "delete user")
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return unavailable("delete user", err)
	}
	if !deleted {
		return store.ErrNotFound
	}

	if s.docs != nil {
		if err := s.docs.DeleteKYCDocument(ctx, id); err != nil {
			s.logger.Warn("delete kyc document", slog.String("user_id", id.String()), slog.Any("error", err))
		}
	}
	s.events.Publish(ctx, mq.NewEvent(mq.EventDeleted, user))
	return nil
}

// manageable loads id if the actor may modify it. Callers without any
// access are refused before the lookup so unknown ids are not revealed.
func (s *UserService) manageable(ctx context.Context, actor policy.Actor, id uuid.UUID, action string) (types.User, error) {
	if !policy.CanAccess(actor, id) {
		return types.User{}, deny(s.logger, actor, action)
	}
	target, err := loadUser(ctx, s.repo, id)
	if err != nil {
		return types.User{}, err
	}
	if !policy.CanManage(actor, target) {
		return types.User{}, deny(s.logger, actor, action)
	}
	return target, nil
}

func (s *UserService) profilePatch(in ProfileUpdate) (types.UserPatch, error) {
	var patch types.UserPatch

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			patch.ClearEmail = true
		} else {
			if err := validateEmail(email); err != nil {
				return types.UserPatch{}, err
			}
			patch.Email = &email
		}
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		patch.DisplayName = &name
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return types.UserPatch{}, err
		}
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return types.UserPatch{}, unavailable("hash password", err)
		}
		patch.HashedPassword = &hashed
	}
	patch.IsActive = in.IsActive
	return patch, nil
}

func loadUser(ctx context.Context, repo UserRepository, id uuid.UUID) (types.User, error) {
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, store.ErrNotFound
		}
		return types.User{}, unavailable("load user", err)
	}
	return user, nil
}

func updateUser(ctx context.Context, repo UserRepository, id uuid.UUID, patch types.UserPatch) (types.User, error) {
	user, err := repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDuplicate) {
			return types.User{}, err
		}
		return types.User{}, unavailable("update user", err)
	}
	return user, nil
}

func deny(logger *slog.Logger, actor policy.Actor, action string) error {
	metrics.RecordAuthzDenial()
	logger.Info("authorization denied",
		slog.String("action", action),
		slog.String("actor_id", actor.User.ID.String()),
		slog.String("role", actor.Claims.Role.String()),
	)
	return ErrForbidden
}
