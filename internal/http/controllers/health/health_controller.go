// Package health contiene el controller de health check.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/cache"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// HealthController responde el heartbeat.
type HealthController struct {
	cache cache.Client
}

func NewHealthController(c cache.Client) *HealthController {
	return &HealthController{cache: c}
}

// Handle maneja GET /__heartbeat__. Degrada a 503 si el backend de
// sesiones no responde.
func (c *HealthController) Handle(w http.ResponseWriter, r *http.Request) {
	if c.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := c.cache.Ping(ctx)
		cancel()
		if err != nil {
			logger.From(r.Context()).Error("heartbeat: session backend down", logger.Err(err))
			helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
