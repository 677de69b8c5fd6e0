// Package proof mantiene el estado de prueba de identidad de cada sesión:
// qué email se reclamó, el token de correlación del roundtrip al provider y
// qué email quedó probado. El estado vive en cache con TTL y se quema en el
// primer intento de certificación, tenga éxito o no.
package proof

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/cache"
	"github.com/dropDatabas3/gmailbridge/internal/email"
)

// tokenBytes es el tamaño del token de correlación antes de base64url.
const tokenBytes = 32

var (
	// ErrNoSession: no hay estado para la sesión (nunca empezó o expiró).
	ErrNoSession = errors.New("proof: no session state")
	// ErrBadToken: el token del callback no coincide o ya fue usado.
	ErrBadToken = errors.New("proof: correlation token invalid or already used")
	// ErrNotProven: se pidió certificar un email que la sesión no probó.
	ErrNotProven = errors.New("proof: email not proven for this session")
)

// Outcome es el resultado de cerrar el roundtrip con el provider.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeMismatched Outcome = "mismatched"
)

// state es el registro serializado en cache por sesión.
// Claimed y Proven guardan las direcciones tal cual llegaron (del usuario y
// del provider): la forma canónica es solo para comparar, nunca se persiste.
type state struct {
	Claimed   string    `json:"claimed,omitempty"`
	Token     string    `json:"token,omitempty"`
	Proven    string    `json:"proven,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Store gestiona el estado de prueba sobre un cache.Client.
type Store struct {
	cache cache.Client
	norm  *email.Normalizer
	ttl   time.Duration
	locks *keyedMutex
}

// New crea el store. ttl acota la vida de cada roundtrip pendiente.
func New(c cache.Client, norm *email.Normalizer, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{
		cache: c,
		norm:  norm,
		ttl:   ttl,
		locks: newKeyedMutex(),
	}
}

func key(sessionID string) string { return "proof:" + sessionID }

// newToken genera el token de correlación (base64url sin padding).
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("proof: token generation: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*state, error) {
	raw, err := s.cache.Get(ctx, key(sessionID))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("proof: load: %w", err)
	}
	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("proof: corrupt state: %w", err)
	}
	return &st, nil
}

func (s *Store) save(ctx context.Context, sessionID string, st *state) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("proof: encode state: %w", err)
	}
	if err := s.cache.Set(ctx, key(sessionID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("proof: save: %w", err)
	}
	return nil
}

// Begin registra el email reclamado y abre un roundtrip nuevo.
// Cualquier roundtrip anterior de la sesión queda invalidado: el token
// devuelto es el único que Complete aceptará.
func (s *Store) Begin(ctx context.Context, sessionID, claimed string) (string, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	token, err := newToken()
	if err != nil {
		return "", err
	}
	st := &state{
		Claimed:   claimed,
		Token:     token,
		StartedAt: time.Now().UTC(),
	}
	if err := s.save(ctx, sessionID, st); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeToken valida y quema el token de correlación del callback, antes
// de cualquier otra cosa: el token es de un solo uso pase lo que pase
// después (verificación, mismatch, cancelación). Devuelve el email
// reclamado tal cual lo dio el usuario.
func (s *Store) ConsumeToken(ctx context.Context, sessionID, token string) (string, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if st.Token == "" || subtle.ConstantTimeCompare([]byte(st.Token), []byte(token)) != 1 {
		return "", ErrBadToken
	}
	st.Token = ""
	if err := s.save(ctx, sessionID, st); err != nil {
		return "", err
	}
	return st.Claimed, nil
}

// Prove registra el email que el provider verificó y lo compara con el
// reclamado (comparación canónica, almacenamiento literal). Con mismatch
// el claimed se conserva para que el caller pueda reintentar el flujo sin
// volver a pedir el email.
func (s *Store) Prove(ctx context.Context, sessionID, verifiedEmail string) (Outcome, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if s.norm.Same(st.Claimed, verifiedEmail) {
		st.Proven = verifiedEmail
		if err := s.save(ctx, sessionID, st); err != nil {
			return "", err
		}
		return OutcomeVerified, nil
	}

	st.Proven = ""
	if err := s.save(ctx, sessionID, st); err != nil {
		return "", err
	}
	return OutcomeMismatched, nil
}

// Claimed devuelve el email reclamado por la sesión, si hay estado.
func (s *Store) Claimed(ctx context.Context, sessionID string) (string, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return st.Claimed, nil
}

// ConsumeForCertify entrega el email probado si equivale al asserted y
// SIEMPRE quema el estado de la sesión: éxito, mismatch o sesión sin
// prueba, el siguiente intento parte de cero.
func (s *Store) ConsumeForCertify(ctx context.Context, sessionID, asserted string) (string, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if derr := s.cache.Delete(ctx, key(sessionID)); derr != nil {
		return "", fmt.Errorf("proof: burn: %w", derr)
	}
	if st.Proven == "" {
		return "", ErrNotProven
	}
	if !s.norm.Same(st.Proven, asserted) {
		return "", ErrNotProven
	}
	return st.Proven, nil
}
