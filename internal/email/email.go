// Package email valida direcciones y decide si dos direcciones nombran la
// misma cuenta bajo las reglas de alias de Gmail.
//
// La forma canónica es solo para comparación de igualdad: nunca se muestra
// ni se firma en certificados.
package email

import (
	"regexp"
	"strings"
)

const (
	maxTotalLen = 254
	maxLocalLen = 64
	maxHostLen  = 253
)

// addressRe is the HTML5-inspired grammar the original bridge enforced:
// restricted local-part charset, dot-separated labels on the host.
var addressRe = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$")

// Valid reporta si addr es una dirección bien formada dentro de los límites
// de longitud (local ≤ 64, host ≤ 253, total ≤ 254).
func Valid(addr string) bool {
	if addr == "" || len(addr) > maxTotalLen {
		return false
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at != strings.LastIndexByte(addr, '@') {
		return false
	}
	local, host := addr[:at], addr[at+1:]
	if len(local) > maxLocalLen || len(host) > maxHostLen {
		return false
	}
	return addressRe.MatchString(addr)
}

// Normalizer canonicaliza direcciones bajo una política de dominio.
type Normalizer struct {
	// restrict limita el dominio canónico aceptado ("gmail.com" en el
	// despliegue histórico). Vacío acepta cualquier dominio, aplicando el
	// folding de Gmail solo de forma oportunista.
	restrict string
}

// New crea un Normalizer. restrictToDomain vacío desactiva la restricción.
func New(restrictToDomain string) *Normalizer {
	return &Normalizer{restrict: strings.ToLower(strings.TrimSpace(restrictToDomain))}
}

// Canonicalize devuelve la forma canónica de addr y si es válida.
// Una forma inválida nunca es igual a nada, ni siquiera a sí misma;
// los llamadores deben chequear ok antes de comparar.
func (n *Normalizer) Canonicalize(addr string) (string, bool) {
	if !Valid(addr) {
		return "", false
	}
	s := strings.ToLower(addr)
	at := strings.IndexByte(s, '@')
	lhs, rhs := s[:at], s[at+1:]

	// googlemail.com es un alias histórico de gmail.com.
	if rhs == "googlemail.com" {
		rhs = "gmail.com"
	}

	// Las cuentas Gmail ignoran puntos y sufijos +alias en el local part.
	if rhs == "gmail.com" {
		lhs = strings.ReplaceAll(lhs, ".", "")
		if i := strings.IndexByte(lhs, '+'); i >= 0 {
			lhs = lhs[:i]
		}
		if lhs == "" {
			return "", false
		}
	}

	if n.restrict != "" && rhs != n.restrict {
		return "", false
	}
	return lhs + "@" + rhs, true
}

// Same reporta si a y b nombran la misma identidad: ambas válidas y con la
// misma forma canónica. Dos direcciones inválidas nunca comparan iguales.
func (n *Normalizer) Same(a, b string) bool {
	ca, ok := n.Canonicalize(a)
	if !ok {
		return false
	}
	cb, ok := n.Canonicalize(b)
	if !ok {
		return false
	}
	return ca == cb
}

// IsAccepted reporta si addr canonicaliza a una forma válida bajo la
// política de dominio vigente.
func (n *Normalizer) IsAccepted(addr string) bool {
	_, ok := n.Canonicalize(addr)
	return ok
}
