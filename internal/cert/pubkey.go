package cert

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Límites del blob de clave pública del cliente tal como llega en el
// request de certificación.
const (
	pubKeyMinBytes = 50
	pubKeyMaxBytes = 10240
)

var (
	// ErrPubKeySize: el blob queda fuera de los límites aceptados.
	ErrPubKeySize = errors.New("cert: public key outside accepted size range")
	// ErrPubKeyFormat: el blob no es ninguno de los formatos soportados.
	ErrPubKeyFormat = errors.New("cert: unrecognized public key format")
)

// PublicKey es la clave del cliente ya validada, lista para embeber en el
// certificado tal cual la mandó.
type PublicKey struct {
	raw    json.RawMessage
	Format string // "jwk" | "browserid"
}

// Raw devuelve el JSON original de la clave.
func (p PublicKey) Raw() json.RawMessage { return p.raw }

// ParsePublicKey valida el blob del cliente. Acepta dos formatos:
//
//   - JWK: {"kty":"RSA","n":...,"e":...} o {"kty":"OKP","crv":"Ed25519","x":...}
//   - BrowserID legacy: {"algorithm":"RS","n":...,"e":...} o {"algorithm":"DS",...}
//
// No verifica criptográficamente la clave; el certificado la transporta
// opaca y son los verificadores downstream quienes la usan.
func ParsePublicKey(raw []byte) (PublicKey, error) {
	if len(raw) < pubKeyMinBytes || len(raw) > pubKeyMaxBytes {
		return PublicKey{}, ErrPubKeySize
	}

	var probe struct {
		Kty       string `json:"kty"`
		Crv       string `json:"crv"`
		N         string `json:"n"`
		E         string `json:"e"`
		X         string `json:"x"`
		Algorithm string `json:"algorithm"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrPubKeyFormat, err)
	}

	switch {
	case probe.Kty == "RSA":
		if probe.N == "" || probe.E == "" {
			return PublicKey{}, fmt.Errorf("%w: RSA JWK without n/e", ErrPubKeyFormat)
		}
		return PublicKey{raw: json.RawMessage(raw), Format: "jwk"}, nil
	case probe.Kty == "OKP":
		if probe.Crv != "Ed25519" || probe.X == "" {
			return PublicKey{}, fmt.Errorf("%w: OKP JWK must be Ed25519 with x", ErrPubKeyFormat)
		}
		return PublicKey{raw: json.RawMessage(raw), Format: "jwk"}, nil
	case probe.Kty != "":
		return PublicKey{}, fmt.Errorf("%w: unsupported kty %q", ErrPubKeyFormat, probe.Kty)
	case probe.Algorithm == "RS" || probe.Algorithm == "DS":
		return PublicKey{raw: json.RawMessage(raw), Format: "browserid"}, nil
	case probe.Algorithm != "":
		return PublicKey{}, fmt.Errorf("%w: unsupported algorithm %q", ErrPubKeyFormat, probe.Algorithm)
	default:
		return PublicKey{}, fmt.Errorf("%w: neither JWK nor browserid key", ErrPubKeyFormat)
	}
}
