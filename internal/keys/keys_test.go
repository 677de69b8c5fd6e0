package keys

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenLoadPEMPair(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key.priv.pem")
	pubPath := filepath.Join(dir, "key.pub.pem")

	kid, err := WritePEMPair(privPath, pubPath)
	require.NoError(t, err)
	require.NotEmpty(t, kid)

	m := NewManager(Config{PublicPath: pubPath, PrivatePath: privPath})
	priv, err := m.Private()
	require.NoError(t, err)
	pub, err := m.Public()
	require.NoError(t, err)
	require.True(t, pub.Equal(priv.Public().(ed25519.PublicKey)))

	gotKID, err := m.KID()
	require.NoError(t, err)
	require.Equal(t, kid, gotKID)
	require.False(t, m.Ephemeral())
}

func TestEphemeralPairPublishesWellKnown(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{
		PublicPath:   filepath.Join(dir, "missing.pub.pem"),
		PrivatePath:  filepath.Join(dir, "missing.priv.pem"),
		WellKnownDir: dir,
	})

	_, err := m.Private()
	require.NoError(t, err)
	require.True(t, m.Ephemeral())

	raw, err := os.ReadFile(filepath.Join(dir, "well-known.json"))
	require.NoError(t, err)

	var doc struct {
		PublicKey map[string]string `json:"public-key"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "OKP", doc.PublicKey["kty"])
	require.Equal(t, "Ed25519", doc.PublicKey["crv"])
	require.NotEmpty(t, doc.PublicKey["x"])

	m.Shutdown()
	_, err = os.Stat(filepath.Join(dir, "well-known.json"))
	require.True(t, os.IsNotExist(err))
}

func TestShutdownKeepsWellKnownForPersistentKeys(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key.priv.pem")
	pubPath := filepath.Join(dir, "key.pub.pem")
	_, err := WritePEMPair(privPath, pubPath)
	require.NoError(t, err)

	wk := filepath.Join(dir, "well-known.json")
	require.NoError(t, os.WriteFile(wk, []byte("{}"), 0644))

	m := NewManager(Config{PublicPath: pubPath, PrivatePath: privPath, WellKnownDir: dir})
	_, err = m.Private()
	require.NoError(t, err)

	m.Shutdown()
	_, err = os.Stat(wk)
	require.NoError(t, err)
}

func TestMismatchedPairRejected(t *testing.T) {
	dir := t.TempDir()
	privA := filepath.Join(dir, "a.priv.pem")
	pubA := filepath.Join(dir, "a.pub.pem")
	privB := filepath.Join(dir, "b.priv.pem")
	pubB := filepath.Join(dir, "b.pub.pem")

	_, err := WritePEMPair(privA, pubA)
	require.NoError(t, err)
	_, err = WritePEMPair(privB, pubB)
	require.NoError(t, err)

	m := NewManager(Config{PublicPath: pubB, PrivatePath: privA})
	_, err = m.Private()
	require.Error(t, err)
	require.Contains(t, err.Error(), "mismatch")
}

func TestPublicJWK(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key.priv.pem")
	pubPath := filepath.Join(dir, "key.pub.pem")
	kid, err := WritePEMPair(privPath, pubPath)
	require.NoError(t, err)

	m := NewManager(Config{PublicPath: pubPath, PrivatePath: privPath})
	jwk, err := m.PublicJWK()
	require.NoError(t, err)
	require.Equal(t, kid, jwk["kid"])
	require.Equal(t, "EdDSA", jwk["alg"])
	require.Equal(t, "sig", jwk["use"])
}
