package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/logging"
	"github.com/warenvoyage/apiserver/internal/mq"
	"github.com/warenvoyage/apiserver/internal/storage"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/types"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestKYCSubmitAndReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.operator(t, "+22507000010", types.RoleAdmin)
	driver := env.register(t, "+22507000001")
	actor := env.actor(t, "+22507000001")
	admin := env.actor(t, "+22507000010")

	var verr ValidationError
	if _, err := env.kyc.Review(ctx, admin, driver.ID, types.KYCStatusApproved); !errors.As(err, &verr) {
		t.Fatalf("review before submission must fail validation, got %v", err)
	}

	submitted, err := env.kyc.SubmitDocument(ctx, actor, stringsReader("licence"), 7, "application/pdf")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.KYCDocumentsStatus == nil || *submitted.KYCDocumentsStatus != types.KYCStatusPending || submitted.IsKYCVerified {
		t.Fatalf("unexpected submission state %+v", submitted)
	}

	if _, err := env.kyc.Review(ctx, actor, driver.ID, types.KYCStatusApproved); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self review must be forbidden, got %v", err)
	}
	if _, err := env.kyc.Review(ctx, admin, driver.ID, "maybe"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	approved, err := env.kyc.Review(ctx, admin, driver.ID, types.KYCStatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsKYCVerified || approved.KYCVerifiedAt == nil || *approved.KYCDocumentsStatus != types.KYCStatusApproved {
		t.Fatalf("unexpected approved state %+v", approved)
	}

	rejected, err := env.kyc.Review(ctx, admin, driver.ID, types.KYCStatusRejected)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.IsKYCVerified || rejected.KYCVerifiedAt != nil || *rejected.KYCDocumentsStatus != types.KYCStatusRejected {
		t.Fatalf("unexpected rejected state %+v", rejected)
	}

	found := false
	for _, typ := range env.events.eventTypes() {
		if typ == mq.EventKYCReviewed {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a kyc reviewed event")
	}
}

func TestKYCOpenDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.operator(t, "+22507000010", types.RoleAdmin)
	user := env.register(t, "+22507000001")
	actor := env.actor(t, "+22507000001")
	admin := env.actor(t, "+22507000010")

	if _, err := env.kyc.OpenDocument(ctx, admin, user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found before submission, got %v", err)
	}
	if _, err := env.kyc.SubmitDocument(ctx, actor, stringsReader("passport"), 8, "image/png"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.kyc.OpenDocument(ctx, actor, user.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	obj, err := env.kyc.OpenDocument(ctx, admin, user.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if string(body) != "passport" || obj.ContentType != "image/png" {
		t.Fatalf("unexpected document %q %q", body, obj.ContentType)
	}
}

func TestKYCWithoutStorageIsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.operator(t, "+22507000010", types.RoleAdmin)
	user := env.register(t, "+22507000001")
	actor := env.actor(t, "+22507000001")
	admin := env.actor(t, "+22507000010")
	kyc := NewKYCService(env.repo, nil, nil, logging.Discard())

	if _, err := kyc.SubmitDocument(context.Background(), actor, stringsReader("x"), 1, ""); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if _, err := kyc.OpenDocument(context.Background(), admin, user.ID); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

type failingUpdateRepo struct {
	*store.MemoryUserRepository
}

func (failingUpdateRepo) Update(context.Context, uuid.UUID, types.UserPatch) (types.User, error) {
	return types.User{}, errors.New("connection reset")
}

func TestKYCSubmitRemovesDocumentWhenStatusUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "+22507000001")
	actor := env.actor(t, "+22507000001")
	kyc := NewKYCService(failingUpdateRepo{env.repo}, env.docs, env.events, logging.Discard())
	ctx := context.Background()

	if _, err := kyc.SubmitDocument(ctx, actor, stringsReader("licence"), 7, "application/pdf"); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if _, err := env.docs.OpenKYCDocument(ctx, user.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("document must not outlive a failed submission, got %v", err)
	}
	stored, err := env.repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.KYCDocumentsStatus != nil {
		t.Fatalf("status must be unchanged, got %q", *stored.KYCDocumentsStatus)
	}
}
