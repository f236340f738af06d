package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/cache"
	"github.com/warenvoyage/apiserver/internal/metrics"
	"github.com/warenvoyage/apiserver/internal/services"
	"github.com/warenvoyage/apiserver/internal/token"
	"github.com/warenvoyage/apiserver/types"
)

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	auth    *services.AuthService
	limiter *cache.LoginLimiter
	logger  *slog.Logger
}

// NewAuthHandler constructs an AuthHandler. limiter may be nil.
func NewAuthHandler(auth *services.AuthService, limiter *cache.LoginLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, limiter: limiter, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, limiter *cache.LoginLimiter, logger *slog.Logger) {
	handler := NewAuthHandler(auth, limiter, logger)

	r.Post("/register", handler.Register)
	r.Post("/register/driver", handler.RegisterDriver)
	r.Post("/login", handler.Login)
}

// RequireAuth resolves the bearer token to an actor and injects it into
// the request context.
func RequireAuth(auth *services.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				metrics.RecordTokenRejection()
				writeServiceError(w, logger, token.ErrInvalidToken)
				return
			}

			actor, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

// Register creates a client identity.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// RegisterDriver creates an identity with an explicit driver role.
func (h *AuthHandler) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req DriverRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := types.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		writeServiceError(w, h.logger, services.ValidationError{Field: "role", Message: "must be driver_individual or driver_company"})
		return
	}

	user, err := h.auth.RegisterDriver(r.Context(), services.DriverRegisterInput{
		RegisterInput: req.input(),
		Role:          role,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and returns a bearer token. Both a JSON body
// and an OAuth2 password form (username carries the phone) are accepted.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseLoginRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	allowed, err := h.limiter.Allow(r.Context(), loginLimitKey(r, req.Phone))
	if err != nil {
		h.logger.Warn("login limiter unavailable", slog.Any("error", err))
	}
	if !allowed {
		metrics.RecordLogin(metrics.LoginRateLimited)
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	result, err := h.auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.Token.Value,
		TokenType:   token.Type,
		Role:        result.User.Role,
		UserID:      result.User.ID,
		ExpiresAt:   result.Token.ExpiresAt,
	})
}

type RegisterRequest struct {
	Phone    string  `json:"phone"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

func (req RegisterRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Phone:    req.Phone,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
	}
}

type DriverRegisterRequest struct {
	RegisterRequest
	Role string `json:"role"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	Role        types.Role `json:"role"`
	UserID      uuid.UUID  `json:"user_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func parseLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var err error
	switch mediaType {
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	case "multipart/form-data":
		err = r.ParseMultipartForm(maxRequestBytes)
	default:
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return LoginRequest{}, errors.New("invalid request body")
		}
		return req, nil
	}
	if err != nil {
		return LoginRequest{}, errors.New("invalid form body")
	}

	phone := r.PostFormValue("username")
	if phone == "" {
		phone = r.PostFormValue("phone")
	}
	return LoginRequest{Phone: phone, Password: r.PostFormValue("password")}, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("invalid authorization")
	}
	return raw, nil
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
// loginLimitKey scopes attempts to a phone from one address, so failures
// from elsewhere cannot lock the account holder out.
func loginLimitKey(r *http.Request, phone string) string {
	ip := clientIP(r)
	if phone = strings.TrimSpace(phone); phone == "" {
		return ip
	}
	return phone + "|" + ip
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
