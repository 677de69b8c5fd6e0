// Package keys gestiona el par Ed25519 con el que se firman los
// certificados. Carga claves PEM del disco si existen; si no, genera un
// par efímero y lo publica en well-known.json para que el resto del
// deployment pueda descubrirlo mientras el proceso viva.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
	"github.com/dropDatabas3/gmailbridge/internal/util/atomicwrite"
)

const wellKnownFile = "well-known.json"

// Config indica dónde viven las claves persistentes y dónde publicar el
// par efímero si hay que generarlo.
type Config struct {
	PublicPath   string
	PrivatePath  string
	WellKnownDir string
}

// Manager expone el par de firma. Cargar es lazy y sucede una sola vez.
type Manager struct {
	cfg Config

	once sync.Once
	err  error

	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	kid       string
	ephemeral bool
}

// NewManager crea el manager sin tocar el disco todavía.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) init() {
	m.once.Do(func() { m.err = m.load() })
}

// Private devuelve la clave de firma, cargando o generando si hace falta.
func (m *Manager) Private() (ed25519.PrivateKey, error) {
	m.init()
	if m.err != nil {
		return nil, m.err
	}
	return m.priv, nil
}

// Public devuelve la clave pública.
func (m *Manager) Public() (ed25519.PublicKey, error) {
	m.init()
	if m.err != nil {
		return nil, m.err
	}
	return m.pub, nil
}

// KID identifica el par activo (hash corto de la pública).
func (m *Manager) KID() (string, error) {
	m.init()
	if m.err != nil {
		return "", m.err
	}
	return m.kid, nil
}

// Ephemeral reporta si el par fue generado en memoria en vez de cargado.
func (m *Manager) Ephemeral() bool {
	m.init()
	return m.err == nil && m.ephemeral
}

// PublicJWK serializa la clave pública como JWK OKP/Ed25519.
func (m *Manager) PublicJWK() (map[string]string, error) {
	pub, err := m.Public()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"kty": "OKP",
		"crv": "Ed25519",
		"alg": "EdDSA",
		"use": "sig",
		"kid": m.kid,
		"x":   base64.RawURLEncoding.EncodeToString(pub),
	}, nil
}

func (m *Manager) load() error {
	priv, pub, err := readPEMPair(m.cfg.PrivatePath, m.cfg.PublicPath)
	switch {
	case err == nil:
		m.priv, m.pub = priv, pub
		m.kid = kidFor(pub)
		logger.L().Info("signing keys loaded from disk",
			logger.KID(m.kid),
			zap.String("private_path", m.cfg.PrivatePath))
		return nil
	case errors.Is(err, os.ErrNotExist):
		// Sin claves en disco: par efímero. Sirve para dev y para
		// single-instance; en multi-instance hay que provisionar PEMs.
		pub, priv, gerr := ed25519.GenerateKey(rand.Reader)
		if gerr != nil {
			return fmt.Errorf("keys: generate ephemeral pair: %w", gerr)
		}
		m.priv, m.pub = priv, pub
		m.kid = kidFor(pub)
		m.ephemeral = true
		logger.L().Warn("no signing keys on disk, generated ephemeral pair",
			logger.KID(m.kid))
		if m.cfg.WellKnownDir != "" {
			if perr := m.publishWellKnown(); perr != nil {
				return perr
			}
		}
		return nil
	default:
		return err
	}
}

// kidFor deriva un identificador estable de la clave pública.
func kidFor(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}

func readPEMPair(privPath, pubPath string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	privRaw, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, err
	}
	pubRaw, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, err
	}

	block, _ := pem.Decode(privRaw)
	if block == nil {
		return nil, nil, fmt.Errorf("keys: %s: not PEM", privPath)
	}
	anyPriv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("keys: parse private key: %w", err)
	}
	priv, ok := anyPriv.(ed25519.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("keys: %s: not an Ed25519 private key", privPath)
	}

	block, _ = pem.Decode(pubRaw)
	if block == nil {
		return nil, nil, fmt.Errorf("keys: %s: not PEM", pubPath)
	}
	anyPub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("keys: parse public key: %w", err)
	}
	pub, ok := anyPub.(ed25519.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("keys: %s: not an Ed25519 public key", pubPath)
	}

	if !priv.Public().(ed25519.PublicKey).Equal(pub) {
		return nil, nil, fmt.Errorf("keys: key pair mismatch between %s and %s", privPath, pubPath)
	}
	return priv, pub, nil
}

// publishWellKnown escribe la pública efímera donde los demás componentes
// la esperan. Escritura atómica para no dejar JSON a medias.
func (m *Manager) publishWellKnown() error {
	jwk, err := m.PublicJWK()
	if err != nil {
		return err
	}
	doc, err := json.MarshalIndent(map[string]any{"public-key": jwk}, "", "  ")
	if err != nil {
		return fmt.Errorf("keys: encode well-known: %w", err)
	}
	path := filepath.Join(m.cfg.WellKnownDir, wellKnownFile)
	if err := atomicwrite.AtomicWriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("keys: publish well-known: %w", err)
	}
	logger.L().Info("ephemeral public key published", zap.String("path", path))
	return nil
}

// Shutdown retira la publicación efímera. Con claves persistentes no hace
// nada.
func (m *Manager) Shutdown() {
	if !m.Ephemeral() || m.cfg.WellKnownDir == "" {
		return
	}
	path := filepath.Join(m.cfg.WellKnownDir, wellKnownFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.L().Warn("could not remove ephemeral well-known file",
			zap.String("path", path), logger.Err(err))
		return
	}
	logger.L().Info("ephemeral well-known file removed", zap.String("path", path))
}

// WritePEMPair genera un par nuevo y lo persiste en los paths dados.
// Lo usa el CLI de claves, no el server.
func WritePEMPair(privPath, pubPath string) (kid string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("keys: generate: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("keys: marshal private: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("keys: marshal public: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	if err := atomicwrite.AtomicWriteFile(privPath, privPEM, 0600); err != nil {
		return "", fmt.Errorf("keys: write private: %w", err)
	}
	if err := atomicwrite.AtomicWriteFile(pubPath, pubPEM, 0644); err != nil {
		return "", fmt.Errorf("keys: write public: %w", err)
	}
	return kidFor(pub), nil
}
