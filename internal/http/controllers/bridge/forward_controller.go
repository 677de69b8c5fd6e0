package bridge

import (
	"net/http"

	svc "github.com/dropDatabas3/gmailbridge/internal/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/http/middlewares"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// ForwardController arranca el reclamo y manda al usuario al provider.
type ForwardController struct {
	svc *svc.Service
}

// Handle maneja GET /authenticate/forward?email=...
func (c *ForwardController) Handle(w http.ResponseWriter, r *http.Request) {
	claimed := r.URL.Query().Get("email")
	if claimed == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("email query parameter required"))
		return
	}

	sid := middlewares.GetSessionID(r.Context())
	authURL, err := c.svc.BeginClaim(r.Context(), sid, claimed)
	if err != nil {
		logger.From(r.Context()).Warn("claim rejected", logger.Err(err))
		helpers.WriteError(w, mapError(err))
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}
