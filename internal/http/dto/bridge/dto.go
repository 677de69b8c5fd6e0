// Package bridge define los DTOs del API del bridge.
package bridge

import "encoding/json"

// VerifyResponse es el cierre del roundtrip con el provider.
// Con mismatch viajan las dos direcciones para el diagnóstico: la que el
// usuario reclamó y la que el provider realmente verificó.
type VerifyResponse struct {
	Outcome string `json:"outcome"` // verified | mismatched | cancelled
	Email   string `json:"email,omitempty"`
	Claimed string `json:"claimed,omitempty"`
	Proven  string `json:"proven,omitempty"`
}

// ProvisionResponse repuebla la UI de provisioning.
type ProvisionResponse struct {
	Email string `json:"email"`
}

// CertifyRequest es el pedido de certificado.
type CertifyRequest struct {
	Email     string          `json:"email"`
	PublicKey json.RawMessage `json:"pubkey"`
	// Duration pedida en segundos. 0 usa el default del server.
	Duration int64 `json:"duration,omitempty"`
}

// CertifyResponse transporta el certificado firmado.
type CertifyResponse struct {
	Certificate string `json:"cert"`
	KID         string `json:"kid"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// SupportDocument es el documento de descubrimiento BrowserID.
type SupportDocument struct {
	PublicKey      map[string]string `json:"public-key"`
	Authentication string            `json:"authentication"`
	Provisioning   string            `json:"provisioning"`
}
