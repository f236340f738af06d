package handlers

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/warenvoyage/apiserver/internal/cache"
	"github.com/warenvoyage/apiserver/internal/services"
)

// Services bundles what the API routes depend on.
type Services struct {
	Auth    *services.AuthService
	Users   *services.UserService
	KYC     *services.KYCService
	Limiter *cache.LoginLimiter
}

// APIRouter registers the versioned API under r.
func APIRouter(r chi.Router, svc Services, logger *slog.Logger) {
	authMiddleware := RequireAuth(svc.Auth, logger)

	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, svc.Auth, svc.Limiter, logger)
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, svc.Users, svc.KYC, authMiddleware, logger)
	})
}
