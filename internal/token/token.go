package token

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/types"
)

// Type is the token type reported to clients.
const Type = "bearer"

// Claims is the decoded payload of a validated token.
type Claims struct {
	Subject   string
	Role      types.Role
	ExpiresAt time.Time
}

// Token is a freshly issued bearer token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 bearer tokens. The subject is the
// identity's phone number.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg config.AuthConfig, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
		logger: logger,
	}
	if s.ttl <= 0 {
		s.ttl = 30 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for user carrying its phone and current role.
func (s *Service) Issue(user types.User) (Token, error) {
	if len(s.secret) == 0 {
		s.logger.Error("token signing failed", slog.String("reason", "missing secret"))
		return Token{}, ErrUnavailable
	}
	role, err := user.Role.MarshalText()
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}

	expiresAt := jwt.NewNumericDate(s.now().Add(s.ttl))
	claims := jwtClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Phone,
			ExpiresAt: expiresAt,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("token signing failed", slog.Any("error", err))
		return Token{}, ErrUnavailable
	}
	return Token{Value: signed, ExpiresAt: expiresAt.Time}, nil
}

// Validate checks signature and expiry and returns the claims. A token is
// valid strictly before its expiry instant. Every failure returns
// ErrInvalidToken; the cause is only logged.
func (s *Service) Validate(raw string) (Claims, error) {
	if len(s.secret) == 0 {
		s.logger.Error("token validation failed", slog.String("reason", "missing secret"))
		return Claims{}, ErrInvalidToken
	}

	var claims jwtClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, s.reject(err.Error())
	}
	if !parsed.Valid {
		return Claims{}, s.reject("token not valid")
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return Claims{}, s.reject("token expired")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, s.reject("missing subject")
	}
	role, err := types.ParseRole(claims.Role)
	if err != nil {
		return Claims{}, s.reject("unknown role")
	}

	return Claims{
		Subject:   claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) reject(reason string) error {
	s.logger.Info("token rejected", slog.String("reason", reason))
	return ErrInvalidToken
}
