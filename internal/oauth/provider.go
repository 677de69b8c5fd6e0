// Package oauth define la capacidad mínima que el bridge exige a un
// identity provider: mandar al usuario al provider y resolver el callback
// en un email verificado.
//
// Las implementaciones concretas (google, openid) se inyectan por
// constructor; nunca hay estado global reasignable.
package oauth

import (
	"context"
	"net/url"
)

// Identity es el resultado de un Resolve exitoso.
type Identity struct {
	// Email asserted by the provider. Always syntactically valid.
	Email string
	// Verified indica si el provider da fe del email. Los llamadores deben
	// tratar false igual que un fallo.
	Verified bool
}

// Callback es el payload crudo que el provider mandó de vuelta.
type Callback struct {
	// Code es el authorization code OAuth2 (vacío si no aplica).
	Code string
	// Params es la query completa del callback, para providers que firman
	// la respuesta entera (OpenID 2.0).
	Params url.Values
}

// Provider abstrae el round-trip con el identity provider.
type Provider interface {
	// AuthURL construye la URL de autorización para un email reclamado.
	// state es el token de correlación opaco del caller y debe volver
	// intacto en el callback.
	AuthURL(ctx context.Context, claimedEmail, state string) (string, error)

	// Resolve valida el payload del callback y devuelve el email que el
	// provider asegura. Falla con *Error en vez de devolver resultados de
	// baja confianza.
	Resolve(ctx context.Context, cb Callback) (Identity, error)
}
