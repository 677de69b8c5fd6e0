package oauth

import (
	"errors"
	"fmt"
)

// Kind clasifica los fallos del provider.
type Kind string

const (
	// KindCancelled: el usuario canceló en el provider. Benigno.
	KindCancelled Kind = "cancelled"
	// KindNetwork: no se pudo hablar con el provider (timeout incluido).
	KindNetwork Kind = "network_error"
	// KindInvalidResponse: el provider respondió algo inusable o no firmado.
	KindInvalidResponse Kind = "invalid_response"
)

// Error es el único tipo de error que cruza el boundary del provider.
// Envuelve la causa para logging pero los llamadores solo deciden por Kind.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// E construye un *Error con causa opcional.
func E(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, cause: cause}
}

// KindOf extrae el Kind de un error de provider; "" si no lo es.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsCancelled reporta si err es una cancelación del usuario.
func IsCancelled(err error) bool { return KindOf(err) == KindCancelled }
