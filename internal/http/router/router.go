// Package router arma el http.Handler del bridge.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	bridgectl "github.com/dropDatabas3/gmailbridge/internal/http/controllers/bridge"
	healthctl "github.com/dropDatabas3/gmailbridge/internal/http/controllers/health"
	"github.com/dropDatabas3/gmailbridge/internal/http/middlewares"
	"github.com/dropDatabas3/gmailbridge/internal/rate"
)

// Config agrupa lo que el router necesita para montar las rutas.
type Config struct {
	Bridge *bridgectl.Controllers
	Health *healthctl.HealthController

	SessionCookie string
	SessionTTL    time.Duration
	SecureCookies bool

	// Limiter opcional: nil desactiva rate limiting.
	Limiter rate.Limiter
}

// New monta todas las rutas del bridge.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	base := []middlewares.Middleware{
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
	}
	session := append([]middlewares.Middleware{}, base...)
	session = append(session,
		middlewares.WithSession(cfg.SessionCookie, cfg.SessionTTL, cfg.SecureCookies),
		middlewares.NoStore(),
	)
	if cfg.Limiter != nil {
		session = append(session, middlewares.WithRateLimit(cfg.Limiter))
	}

	// Endpoints de soporte, sin sesión.
	r.Method(http.MethodGet, "/__heartbeat__",
		middlewares.ChainFunc(cfg.Health.Handle, base...))
	r.Method(http.MethodGet, "/.well-known/browserid",
		middlewares.ChainFunc(cfg.Bridge.WellKnown.Handle,
			append(append([]middlewares.Middleware{}, base...), middlewares.Revalidate())...))

	// Flujo de identidad, todo atado a la cookie de sesión.
	r.Method(http.MethodGet, "/authenticate/forward",
		middlewares.ChainFunc(cfg.Bridge.Forward.Handle, session...))
	r.Method(http.MethodGet, "/authenticate/verify",
		middlewares.ChainFunc(cfg.Bridge.Verify.Handle, session...))
	r.Method(http.MethodGet, "/provision",
		middlewares.ChainFunc(cfg.Bridge.Provision.Handle, session...))
	r.Method(http.MethodPost, "/provision/certify",
		middlewares.ChainFunc(cfg.Bridge.Certify.Handle, session...))

	return r
}
