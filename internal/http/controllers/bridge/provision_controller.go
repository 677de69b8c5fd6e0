package bridge

import (
	"net/http"

	svc "github.com/dropDatabas3/gmailbridge/internal/bridge"
	dto "github.com/dropDatabas3/gmailbridge/internal/http/dto/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/http/middlewares"
)

// ProvisionController expone el claim vigente de la sesión.
type ProvisionController struct {
	svc *svc.Service
}

// Handle maneja GET /provision.
func (c *ProvisionController) Handle(w http.ResponseWriter, r *http.Request) {
	sid := middlewares.GetSessionID(r.Context())
	email, err := c.svc.ClaimedEmail(r.Context(), sid)
	if err != nil {
		helpers.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ProvisionResponse{Email: email})
}
