package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/types"
)

func strPtr(s string) *string { return &s }

func newCandidate(phone string, email *string) types.NewUser {
	return types.NewUser{
		Phone:          phone,
		Email:          email,
		HashedPassword: "$2a$04$hash",
		Role:           types.RoleClient,
	}
}

func TestMemoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	created, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if !created.IsActive || created.IsKYCVerified {
		t.Fatalf("unexpected default flags: %+v", created)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("timestamps not initialised")
	}

	byPhone, err := repo.GetByPhone(ctx, "+22507000001")
	if err != nil || byPhone.ID != created.ID {
		t.Fatalf("get by phone: %v", err)
	}
	byEmail, err := repo.GetByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("get by email: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "A@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("email lookup must be exact, got %v", err)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryCreateDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	if _, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com"))); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := repo.Create(ctx, newCandidate("+22507000001", nil))
	var dup DuplicateError
	if !errors.As(err, &dup) || dup.Field != FieldPhone {
		t.Fatalf("expected phone duplicate, got %v", err)
	}

	_, err = repo.Create(ctx, newCandidate("+22507000002", strPtr("a@example.com")))
	if !errors.As(err, &dup) || dup.Field != FieldEmail {
		t.Fatalf("expected email duplicate, got %v", err)
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate errors must match ErrDuplicate")
	}

	// Missing emails never collide.
	if _, err := repo.Create(ctx, newCandidate("+22507000003", nil)); err != nil {
		t.Fatalf("create without email: %v", err)
	}
	if _, err := repo.Create(ctx, newCandidate("+22507000004", nil)); err != nil {
		t.Fatalf("second create without email: %v", err)
	}
}

func TestMemoryConcurrentCreateSinglePhoneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	const attempts = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newCandidate("+22507000001", strPtr(fmt.Sprintf("u%d@example.com", i))))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicate):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || dupes != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d duplicates", successes, dupes)
	}
	users, err := repo.List(ctx, 0, attempts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one visible user, got %d", len(users))
	}
}

func TestMemoryUpdatePartial(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	user, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := repo.Create(ctx, newCandidate("+22507000002", strPtr("b@example.com")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Aya"
	updated, err := repo.Update(ctx, user.ID, types.UserPatch{DisplayName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName == nil || *updated.DisplayName != name {
		t.Fatal("display name not updated")
	}
	if updated.Email == nil || *updated.Email != "a@example.com" || updated.HashedPassword != user.HashedPassword {
		t.Fatal("unset fields must be untouched")
	}

	if _, err := repo.Update(ctx, other.ID, types.UserPatch{Email: strPtr("a@example.com")}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	if _, err := repo.Update(ctx, user.ID, types.UserPatch{Email: strPtr("c@example.com")}); err != nil {
		t.Fatalf("change email: %v", err)
	}
	if _, err := repo.Update(ctx, other.ID, types.UserPatch{Email: strPtr("a@example.com")}); err != nil {
		t.Fatalf("released email should be reusable: %v", err)
	}

	if _, err := repo.Update(ctx, uuid.New(), types.UserPatch{DisplayName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	user, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := repo.Delete(ctx, user.ID)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	removed, err = repo.Delete(ctx, user.ID)
	if err != nil || removed {
		t.Fatalf("second delete must report false without error, got %v %v", removed, err)
	}
	if _, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com"))); err != nil {
		t.Fatalf("phone and email should be free after delete: %v", err)
	}
}

func TestMemoryListIsStable(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	for i := 0; i < 5; i++ {
		if _, err := repo.Create(ctx, newCandidate(fmt.Sprintf("+2250700000%d", i), nil)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	first, err := repo.List(ctx, 1, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, err := repo.List(ctx, 1, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 users, got %d", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("list order must be stable")
		}
	}
	if first[0].Phone != "+22507000001" {
		t.Fatalf("unexpected first phone %s", first[0].Phone)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	user, err := repo.Create(ctx, newCandidate("+22507000001", strPtr("a@example.com")))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	*user.Email = "mutated@example.com"

	stored, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *stored.Email != "a@example.com" {
		t.Fatal("stored record must not alias returned values")
	}
}
