// Package cert emite los certificados de identidad: JWTs EdDSA de vida
// acotada que atan un email probado a la clave pública del cliente.
package cert

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/gmailbridge/internal/keys"
)

// Issuer firma certificados con el par del Manager.
type Issuer struct {
	Iss string
	// DefaultDuration es la vida cuando el cliente no pide ninguna.
	DefaultDuration time.Duration
	// MaxDuration acota la vida pedida por el cliente.
	MaxDuration time.Duration
	// ClockSkew se resta del iat para tolerar relojes atrasados en los
	// verificadores.
	ClockSkew time.Duration

	keys *keys.Manager
	now  func() time.Time
}

// NewIssuer crea el emisor. defaultDuration<=0 usa 1h, maxDuration<=0 usa
// 24h; skew<0 usa 10s.
func NewIssuer(iss string, km *keys.Manager, defaultDuration, maxDuration, clockSkew time.Duration) *Issuer {
	if maxDuration <= 0 {
		maxDuration = 24 * time.Hour
	}
	if defaultDuration <= 0 || defaultDuration > maxDuration {
		defaultDuration = min(time.Hour, maxDuration)
	}
	if clockSkew < 0 {
		clockSkew = 10 * time.Second
	}
	return &Issuer{
		Iss:             iss,
		DefaultDuration: defaultDuration,
		MaxDuration:     maxDuration,
		ClockSkew:       clockSkew,
		keys:            km,
		now:             time.Now,
	}
}

// ClampDuration normaliza la duración pedida: <=0 cae al default (no pedir
// nada nunca regala el máximo), y nada supera MaxDuration.
func (i *Issuer) ClampDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return i.DefaultDuration
	}
	if d > i.MaxDuration {
		return i.MaxDuration
	}
	return d
}

// Certificate es el resultado de una emisión.
type Certificate struct {
	Raw       string
	KID       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue firma un certificado para el email dado y la clave del cliente.
// duration se clampa; el certificado queda:
//
//	{ "iss", "iat": now-skew, "exp": now+duration,
//	  "public-key": <raw>, "principal": {"email": email} }
func (i *Issuer) Issue(email string, pk PublicKey, duration time.Duration) (*Certificate, error) {
	priv, err := i.keys.Private()
	if err != nil {
		return nil, fmt.Errorf("cert: signing key: %w", err)
	}
	kid, err := i.keys.KID()
	if err != nil {
		return nil, fmt.Errorf("cert: signing kid: %w", err)
	}

	now := i.now().UTC()
	d := i.ClampDuration(duration)
	iat := now.Add(-i.ClockSkew)
	exp := now.Add(d)

	claims := jwtv5.MapClaims{
		"iss":        i.Iss,
		"iat":        iat.Unix(),
		"exp":        exp.Unix(),
		"public-key": pk.Raw(),
		"principal":  map[string]string{"email": email},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(priv)
	if err != nil {
		return nil, fmt.Errorf("cert: sign: %w", err)
	}
	return &Certificate{Raw: signed, KID: kid, IssuedAt: iat, ExpiresAt: exp}, nil
}
