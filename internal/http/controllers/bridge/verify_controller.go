package bridge

import (
	"net/http"

	svc "github.com/dropDatabas3/gmailbridge/internal/bridge"
	dto "github.com/dropDatabas3/gmailbridge/internal/http/dto/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/http/middlewares"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// VerifyController recibe el callback del provider y cierra el roundtrip.
type VerifyController struct {
	svc *svc.Service
}

// Handle maneja GET /authenticate/verify (callback del provider).
func (c *VerifyController) Handle(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	sid := middlewares.GetSessionID(r.Context())

	res, err := c.svc.CompleteClaim(r.Context(), sid, params.Get("state"), oauth.Callback{
		Code:   params.Get("code"),
		Params: params,
	})
	if err != nil {
		logger.From(r.Context()).Warn("verify failed", logger.Err(err))
		helpers.WriteError(w, mapError(err))
		return
	}

	resp := dto.VerifyResponse{Outcome: string(res.Outcome)}
	switch res.Outcome {
	case svc.VerifyVerified:
		resp.Email = res.Claimed
	case svc.VerifyMismatched:
		resp.Claimed = res.Claimed
		resp.Proven = res.Proven
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
