package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/types"
)

// MemoryUserRepository is an in-process user store with the same uniqueness
// guarantees as the PostgreSQL repository. It backs tests and local runs.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]types.User
	phones  map[string]uuid.UUID
	emails  map[string]uuid.UUID
	order   []uuid.UUID
	nowFunc func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[uuid.UUID]types.User),
		phones:  make(map[string]uuid.UUID),
		emails:  make(map[string]uuid.UUID),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByPhone(_ context.Context, phone string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.phones[phone]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *MemoryUserRepository) List(_ context.Context, offset, limit int) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	users := make([]types.User, 0, limit)
	for i := offset; i < len(r.order) && len(users) < limit; i++ {
		users = append(users, cloneUser(r.users[r.order[i]]))
	}
	return users, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, candidate types.NewUser) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.phones[candidate.Phone]; exists {
		return types.User{}, DuplicateError{Field: FieldPhone}
	}
	if candidate.Email != nil {
		if _, exists := r.emails[*candidate.Email]; exists {
			return types.User{}, DuplicateError{Field: FieldEmail}
		}
	}

	now := r.nowFunc()
	user := cloneUser(types.User{
		ID:             uuid.New(),
		Phone:          candidate.Phone,
		Email:          candidate.Email,
		DisplayName:    candidate.DisplayName,
		HashedPassword: candidate.HashedPassword,
		Role:           candidate.Role,
		IsActive:       true,
		IsSuperuser:    candidate.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	r.users[user.ID] = user
	r.phones[user.Phone] = user.ID
	if user.Email != nil {
		r.emails[*user.Email] = user.ID
	}
	r.order = append(r.order, user.ID)
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id uuid.UUID, patch types.UserPatch) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	if patch.Empty() {
		return cloneUser(current), nil
	}
	if patch.Email != nil && !patch.ClearEmail {
		if owner, exists := r.emails[*patch.Email]; exists && owner != id {
			return types.User{}, DuplicateError{Field: FieldEmail}
		}
	}

	updated := patch.Apply(current)
	updated.UpdatedAt = r.nowFunc()

	if current.Email != nil {
		delete(r.emails, *current.Email)
	}
	if updated.Email != nil {
		r.emails[*updated.Email] = id
	}
	r.users[id] = updated
	return cloneUser(updated), nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, nil
	}
	delete(r.users, id)
	delete(r.phones, user.Phone)
	if user.Email != nil {
		delete(r.emails, *user.Email)
	}
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *MemoryUserRepository) Ping(context.Context) error { return nil }

// cloneUser copies pointer fields so callers never alias stored records.
func cloneUser(u types.User) types.User {
	return types.UserPatch{
		Email:              u.Email,
		ClearEmail:         u.Email == nil,
		DisplayName:        u.DisplayName,
		KYCVerifiedAt:      u.KYCVerifiedAt,
		ClearKYCVerifiedAt: u.KYCVerifiedAt == nil,
		KYCDocumentsStatus: u.KYCDocumentsStatus,
	}.Apply(u)
}
