// Package bridge orquesta el flujo completo: reclamo de email, roundtrip
// al provider, y emisión del certificado contra el estado probado.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/gmailbridge/internal/cert"
	"github.com/dropDatabas3/gmailbridge/internal/email"
	"github.com/dropDatabas3/gmailbridge/internal/metrics"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
	"github.com/dropDatabas3/gmailbridge/internal/proof"
)

var (
	// ErrEmailInvalid: el email reclamado no es sintácticamente válido.
	ErrEmailInvalid = errors.New("bridge: email address invalid")
	// ErrEmailNotAccepted: el dominio no es de los que el bridge certifica.
	ErrEmailNotAccepted = errors.New("bridge: email domain not handled by this bridge")
	// ErrNoSession: la sesión no tiene roundtrip pendiente.
	ErrNoSession = errors.New("bridge: no pending authentication for session")
	// ErrBadToken: el token de correlación no coincide o ya se usó.
	ErrBadToken = errors.New("bridge: stale or invalid correlation token")
	// ErrNotProven: se pidió certificar un email que la sesión no probó.
	ErrNotProven = errors.New("bridge: email not proven by this session")
	// ErrEmailNotVerified: el provider devolvió el email sin verificar.
	ErrEmailNotVerified = errors.New("bridge: provider reports email unverified")
)

// VerifyOutcome resume el cierre del roundtrip para el caller HTTP.
type VerifyOutcome string

const (
	VerifyVerified   VerifyOutcome = "verified"
	VerifyMismatched VerifyOutcome = "mismatched"
	VerifyCancelled  VerifyOutcome = "cancelled"
)

// Verification es el cierre del roundtrip. Claimed y Proven llevan las
// direcciones tal cual las dieron el usuario y el provider, para que el
// caller pueda mostrarlas; con mismatch viajan las dos.
type Verification struct {
	Outcome VerifyOutcome
	Claimed string
	Proven  string
}

// Recorder recibe los eventos de auditoría del flujo. audit.* implementa.
type Recorder interface {
	Record(ctx context.Context, event, sessionID, email, detail string)
}

// Metrics son los contadores que el flujo alimenta. metrics.* implementa.
type Metrics interface {
	ForwardStarted()
	VerifyFinished(outcome string)
	CertIssued()
	ProviderError(kind string)
}

// Service es el orquestador.
type Service struct {
	norm     *email.Normalizer
	provider oauth.Provider
	proofs   *proof.Store
	certs    *cert.Issuer
	audit    Recorder
	metrics  Metrics
	log      *zap.Logger
}

func New(norm *email.Normalizer, p oauth.Provider, ps *proof.Store, ci *cert.Issuer, rec Recorder, m Metrics) *Service {
	return &Service{
		norm:     norm,
		provider: p,
		proofs:   ps,
		certs:    ci,
		audit:    rec,
		metrics:  m,
		log:      logger.Named("bridge"),
	}
}

// BeginClaim valida el email reclamado, abre el roundtrip y devuelve la
// URL del provider a la que mandar al usuario.
func (s *Service) BeginClaim(ctx context.Context, sessionID, claimed string) (string, error) {
	if !email.Valid(claimed) {
		return "", ErrEmailInvalid
	}
	if !s.norm.IsAccepted(claimed) {
		return "", ErrEmailNotAccepted
	}

	// Se guarda la forma literal: la canónica es solo para comparar.
	token, err := s.proofs.Begin(ctx, sessionID, claimed)
	if err != nil {
		return "", fmt.Errorf("bridge: begin claim: %w", err)
	}

	start := time.Now()
	authURL, err := s.provider.AuthURL(ctx, claimed, token)
	metrics.ObserveProviderCall("auth_url", time.Since(start))
	if err != nil {
		s.metrics.ProviderError(string(oauth.KindOf(err)))
		return "", fmt.Errorf("bridge: provider auth url: %w", err)
	}

	s.metrics.ForwardStarted()
	s.audit.Record(ctx, "claim_started", sessionID, claimed, "")
	s.log.Info("claim started",
		logger.SessionID(sessionID), logger.Email(claimed))
	return authURL, nil
}

// CompleteClaim cierra el roundtrip con el callback del provider. El token
// de correlación se valida y se quema ANTES de resolver el callback: una
// cancelación o un email sin verificar también lo consumen, así un replay
// del mismo callback ve ErrBadToken.
// Una cancelación del usuario no es error: sale como VerifyCancelled.
func (s *Service) CompleteClaim(ctx context.Context, sessionID, token string, cb oauth.Callback) (Verification, error) {
	claimed, err := s.proofs.ConsumeToken(ctx, sessionID, token)
	switch {
	case errors.Is(err, proof.ErrNoSession):
		return Verification{}, ErrNoSession
	case errors.Is(err, proof.ErrBadToken):
		return Verification{}, ErrBadToken
	case err != nil:
		return Verification{}, fmt.Errorf("bridge: complete claim: %w", err)
	}

	start := time.Now()
	id, err := s.provider.Resolve(ctx, cb)
	metrics.ObserveProviderCall("resolve", time.Since(start))
	if err != nil {
		if oauth.IsCancelled(err) {
			s.metrics.VerifyFinished(string(VerifyCancelled))
			s.audit.Record(ctx, "claim_cancelled", sessionID, claimed, "")
			s.log.Info("claim cancelled by user", logger.SessionID(sessionID))
			return Verification{Outcome: VerifyCancelled, Claimed: claimed}, nil
		}
		s.metrics.ProviderError(string(oauth.KindOf(err)))
		return Verification{}, fmt.Errorf("bridge: provider resolve: %w", err)
	}
	if !id.Verified {
		s.metrics.ProviderError(string(oauth.KindInvalidResponse))
		s.audit.Record(ctx, "claim_unverified", sessionID, id.Email, "")
		return Verification{}, ErrEmailNotVerified
	}

	out, err := s.proofs.Prove(ctx, sessionID, id.Email)
	switch {
	case errors.Is(err, proof.ErrNoSession):
		return Verification{}, ErrNoSession
	case err != nil:
		return Verification{}, fmt.Errorf("bridge: complete claim: %w", err)
	}

	res := Verification{Claimed: claimed, Proven: id.Email}
	switch out {
	case proof.OutcomeVerified:
		res.Outcome = VerifyVerified
		s.metrics.VerifyFinished(string(VerifyVerified))
		s.audit.Record(ctx, "claim_verified", sessionID, id.Email, "")
		s.log.Info("claim verified",
			logger.SessionID(sessionID), logger.Email(id.Email))
	default:
		res.Outcome = VerifyMismatched
		s.metrics.VerifyFinished(string(VerifyMismatched))
		s.audit.Record(ctx, "claim_mismatched", sessionID, id.Email, "provider identity differs from claim")
		s.log.Warn("claim mismatched",
			logger.SessionID(sessionID), logger.Email(id.Email))
	}
	return res, nil
}

// ClaimedEmail devuelve el email reclamado por la sesión, para repoblar
// la UI de provisioning.
func (s *Service) ClaimedEmail(ctx context.Context, sessionID string) (string, error) {
	claimed, err := s.proofs.Claimed(ctx, sessionID)
	if errors.Is(err, proof.ErrNoSession) {
		return "", ErrNoSession
	}
	return claimed, err
}

// Certify consume la prueba de la sesión y emite el certificado. El
// estado se quema en el intento: un segundo Certify para la misma sesión
// parte sin prueba, haya salido bien o mal el primero.
// El principal del certificado es el email tal cual lo asertó el cliente;
// la prueba solo exige que equivalga canónicamente al probado.
func (s *Service) Certify(ctx context.Context, sessionID, asserted string, rawPubKey []byte, duration time.Duration) (*cert.Certificate, error) {
	pk, err := cert.ParsePublicKey(rawPubKey)
	if err != nil {
		return nil, err
	}

	_, err = s.proofs.ConsumeForCertify(ctx, sessionID, asserted)
	switch {
	case errors.Is(err, proof.ErrNoSession):
		return nil, ErrNoSession
	case errors.Is(err, proof.ErrNotProven):
		s.audit.Record(ctx, "certify_rejected", sessionID, asserted, "email not proven")
		return nil, ErrNotProven
	case err != nil:
		return nil, fmt.Errorf("bridge: certify: %w", err)
	}

	c, err := s.certs.Issue(asserted, pk, duration)
	if err != nil {
		return nil, err
	}

	s.metrics.CertIssued()
	s.audit.Record(ctx, "cert_issued", sessionID, asserted, c.KID)
	s.log.Info("certificate issued",
		logger.SessionID(sessionID), logger.Email(asserted), logger.KID(c.KID),
		zap.Time("expires_at", c.ExpiresAt))
	return c, nil
}
