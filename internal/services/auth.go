package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/warenvoyage/apiserver/internal/credential"
	"github.com/warenvoyage/apiserver/internal/metrics"
	"github.com/warenvoyage/apiserver/internal/mq"
	"github.com/warenvoyage/apiserver/internal/policy"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/internal/token"
	"github.com/warenvoyage/apiserver/types"
)

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Phone    string
	Password string
	Email    *string
	FullName *string
}

// DriverRegisterInput registers a driver. FullName is required.
type DriverRegisterInput struct {
	RegisterInput
	Role types.Role
}

// OperatorInput creates an admin or superadmin outside the HTTP surface.
type OperatorInput struct {
	RegisterInput
	Role types.Role
}

// LoginResult is a successful login.
type LoginResult struct {
	Token token.Token
	User  types.User
}

// AuthService runs registration, login and bearer authentication.
type AuthService struct {
	repo   UserRepository
	hasher *credential.Hasher
	tokens *token.Service
	events EventPublisher
	logger *slog.Logger
}

func NewAuthService(repo UserRepository, hasher *credential.Hasher, tokens *token.Service, events EventPublisher, logger *slog.Logger) *AuthService {
	if events == nil {
		events = mq.NewPublisher(nil, "", logger)
	}
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, events: events, logger: logger}
}

// Register creates a client identity.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.register(ctx, in, types.RoleClient, false)
}

// RegisterDriver creates an identity with one of the driver roles.
func (s *AuthService) RegisterDriver(ctx context.Context, in DriverRegisterInput) (types.User, error) {
	if in.FullName == nil || strings.TrimSpace(*in.FullName) == "" {
		return types.User{}, ValidationError{Field: "full_name", Message: "field required"}
	}
	if !in.Role.IsDriver() {
		return types.User{}, ValidationError{Field: "role", Message: "must be driver_individual or driver_company"}
	}
	return s.register(ctx, in.RegisterInput, in.Role, false)
}

// RegisterOperator creates an admin or superadmin. Superadmins are also
// flagged as superusers.
func (s *AuthService) RegisterOperator(ctx context.Context, in OperatorInput) (types.User, error) {
	switch in.Role {
	case types.RoleAdmin:
		return s.register(ctx, in.RegisterInput, in.Role, false)
	case types.RoleSuperadmin:
		return s.register(ctx, in.RegisterInput, in.Role, true)
	case types.RoleClient, types.RoleDriverIndividual, types.RoleDriverCompany:
		return types.User{}, ValidationError{Field: "role", Message: "must be admin or superadmin"}
	default:
		return types.User{}, ValidationError{Field: "role", Message: "unknown role"}
	}
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, role types.Role, superuser bool) (types.User, error) {
	phone := strings.TrimSpace(in.Phone)
	if err := validatePhone(phone); err != nil {
		return types.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return types.User{}, err
	}
	email := normalizeOptional(in.Email)
	if email != nil {
		if err := validateEmail(*email); err != nil {
			return types.User{}, err
		}
	}

	// Lookups short-circuit the common case; the store still settles races.
	if err := s.ensureFree(ctx, s.repo.GetByPhone, phone, store.FieldPhone); err != nil {
		return types.User{}, err
	}
	if email != nil {
		if err := s.ensureFree(ctx, s.repo.GetByEmail, *email, store.FieldEmail); err != nil {
			return types.User{}, err
		}
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, unavailable("hash password", err)
	}

	user, err := s.repo.Create(ctx, types.NewUser{
		Phone:          phone,
		Email:          email,
		DisplayName:    normalizeOptional(in.FullName),
		HashedPassword: hashed,
		Role:           role,
		IsSuperuser:    superuser,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, err
		}
		return types.User{}, unavailable("create user", err)
	}

	metrics.RecordRegistration(role)
	s.logger.Info("identity registered", slog.String("user_id", user.ID.String()), slog.String("role", role.String()))
	s.events.Publish(ctx, mq.NewEvent(mq.EventRegistered, user))
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, lookup func(context.Context, string) (types.User, error), value, field string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return store.DuplicateError{Field: field}
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return unavailable("lookup "+field, err)
	}
}

// Login verifies phone and password and issues a token. An unknown phone
// and a wrong password both return ErrAuthentication; an inactive account
// is only reported once the password has been verified.
func (s *AuthService) Login(ctx context.Context, phone, password string) (LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	user, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			s.logger.Info("login failed", slog.String("reason", "unknown phone"))
			metrics.RecordLogin(metrics.LoginInvalidCredentials)
			return LoginResult{}, ErrAuthentication
		}
		metrics.RecordLogin(metrics.LoginUnavailable)
		return LoginResult{}, unavailable("login lookup", err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.logger.Info("login failed", slog.String("reason", "wrong password"), slog.String("user_id", user.ID.String()))
		metrics.RecordLogin(metrics.LoginInvalidCredentials)
		return LoginResult{}, ErrAuthentication
	}
	if !user.IsActive {
		s.logger.Info("login refused", slog.String("reason", "inactive"), slog.String("user_id", user.ID.String()))
		metrics.RecordLogin(metrics.LoginInactive)
		return LoginResult{}, ErrInactiveAccount
	}

	tok, err := s.tokens.Issue(user)
	if err != nil {
		metrics.RecordLogin(metrics.LoginUnavailable)
		return LoginResult{}, fmt.Errorf("issue token: %w: %w", ErrServiceUnavailable, err)
	}

	metrics.RecordLogin(metrics.LoginSuccess)
	return LoginResult{Token: tok, User: user}, nil
}

// Authenticate validates a bearer token and resolves its subject to the
// current identity.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (policy.Actor, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		metrics.RecordTokenRejection()
		return policy.Actor{}, err
	}

	user, err := s.repo.GetByPhone(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Info("token rejected", slog.String("reason", "subject no longer exists"))
			metrics.RecordTokenRejection()
			return policy.Actor{}, token.ErrInvalidToken
		}
		return policy.Actor{}, unavailable("resolve token subject", err)
	}
	if !user.IsActive {
		return policy.Actor{}, ErrInactiveAccount
	}
	return policy.Actor{Claims: claims, User: user}, nil
}
