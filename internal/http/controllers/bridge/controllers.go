// Package bridge contiene los controllers del flujo de identidad.
package bridge

import (
	"errors"

	svc "github.com/dropDatabas3/gmailbridge/internal/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
	"github.com/dropDatabas3/gmailbridge/internal/keys"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
)

// Controllers agrupa todos los controllers del dominio bridge.
type Controllers struct {
	Forward   *ForwardController
	Verify    *VerifyController
	Provision *ProvisionController
	Certify   *CertifyController
	WellKnown *WellKnownController
}

// NewControllers crea el agregador de controllers del bridge.
func NewControllers(s *svc.Service, km *keys.Manager) *Controllers {
	return &Controllers{
		Forward:   &ForwardController{svc: s},
		Verify:    &VerifyController{svc: s},
		Provision: &ProvisionController{svc: s},
		Certify:   &CertifyController{svc: s},
		WellKnown: &WellKnownController{keys: km},
	}
}

// mapError traduce los errores del orquestador a respuestas HTTP.
func mapError(err error) *helpers.HTTPError {
	switch {
	case errors.Is(err, svc.ErrEmailInvalid):
		return helpers.ErrEmailInvalid
	case errors.Is(err, svc.ErrEmailNotAccepted):
		return helpers.ErrEmailNotAccepted
	case errors.Is(err, svc.ErrNoSession):
		return helpers.ErrNoSession
	case errors.Is(err, svc.ErrBadToken):
		return helpers.ErrStaleToken
	case errors.Is(err, svc.ErrNotProven):
		return helpers.ErrNotProven
	case errors.Is(err, svc.ErrEmailNotVerified):
		return helpers.ErrEmailUnverified
	}
	switch oauth.KindOf(err) {
	case oauth.KindNetwork:
		return helpers.ErrProviderUnavailable
	case oauth.KindInvalidResponse:
		return helpers.ErrProviderInvalid
	}
	return helpers.ErrInternalServerError
}
