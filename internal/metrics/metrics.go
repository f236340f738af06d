// Package metrics exposes Prometheus counters for authentication and
// authorization outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warenvoyage/apiserver/types"
)

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginUnavailable        = "unavailable"
	LoginRateLimited        = "rate_limited"
)

var (
	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warenvoyage_auth_registrations_total",
			Help: "Total number of identities registered, by role",
		},
		[]string{"role"},
	)

	logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warenvoyage_auth_logins_total",
			Help: "Total number of login attempts, by outcome",
		},
		[]string{"outcome"},
	)

	tokenRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warenvoyage_auth_token_rejections_total",
			Help: "Total number of bearer tokens rejected",
		},
	)

	authzDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warenvoyage_authz_denials_total",
			Help: "Total number of requests denied for insufficient privilege",
		},
	)
)

func RecordRegistration(role types.Role) {
	registrations.WithLabelValues(role.String()).Inc()
}

func RecordLogin(outcome string) {
	logins.WithLabelValues(outcome).Inc()
}

func RecordTokenRejection() {
	tokenRejections.Inc()
}

func RecordAuthzDenial() {
	authzDenials.Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
