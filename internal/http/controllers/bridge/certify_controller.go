package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	svc "github.com/dropDatabas3/gmailbridge/internal/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/cert"
	dto "github.com/dropDatabas3/gmailbridge/internal/http/dto/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/http/middlewares"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// CertifyController emite el certificado contra la prueba de la sesión.
type CertifyController struct {
	svc *svc.Service
}

// Handle maneja POST /provision/certify.
func (c *CertifyController) Handle(w http.ResponseWriter, r *http.Request) {
	var req dto.CertifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.WriteError(w, helpers.ErrInvalidJSON)
		return
	}
	if req.Email == "" || len(req.PublicKey) == 0 {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("email and pubkey required"))
		return
	}

	sid := middlewares.GetSessionID(r.Context())
	duration := time.Duration(req.Duration) * time.Second

	crt, err := c.svc.Certify(r.Context(), sid, req.Email, req.PublicKey, duration)
	if err != nil {
		logger.From(r.Context()).Warn("certify rejected", logger.Err(err))
		if errors.Is(err, cert.ErrPubKeySize) || errors.Is(err, cert.ErrPubKeyFormat) {
			helpers.WriteError(w, helpers.ErrPublicKeyInvalid.WithDetail(err.Error()))
			return
		}
		helpers.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CertifyResponse{
		Certificate: crt.Raw,
		KID:         crt.KID,
		IssuedAt:    crt.IssuedAt.Unix(),
		ExpiresAt:   crt.ExpiresAt.Unix(),
	})
}
