package bridge

import (
	"net/http"

	dto "github.com/dropDatabas3/gmailbridge/internal/http/dto/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/keys"
)

// WellKnownController sirve el documento de descubrimiento BrowserID.
type WellKnownController struct {
	keys *keys.Manager
}

// Handle maneja GET /.well-known/browserid.
func (c *WellKnownController) Handle(w http.ResponseWriter, r *http.Request) {
	jwk, err := c.keys.PublicJWK()
	if err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SupportDocument{
		PublicKey:      jwk,
		Authentication: "/authenticate/forward",
		Provisioning:   "/provision",
	})
}
