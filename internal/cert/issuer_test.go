package cert

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gmailbridge/internal/keys"
)

const rsaClientKey = `{"kty":"RSA","n":"0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECP","e":"AQAB"}`

func testIssuer(t *testing.T, maxDur, skew time.Duration) *Issuer {
	t.Helper()
	dir := t.TempDir()
	privPath := filepath.Join(dir, "k.priv.pem")
	pubPath := filepath.Join(dir, "k.pub.pem")
	_, err := keys.WritePEMPair(privPath, pubPath)
	require.NoError(t, err)
	km := keys.NewManager(keys.Config{PublicPath: pubPath, PrivatePath: privPath})
	return NewIssuer("bridge.example", km, time.Hour, maxDur, skew)
}

func TestIssueProducesVerifiableJWT(t *testing.T) {
	iss := testIssuer(t, 24*time.Hour, 10*time.Second)
	pk, err := ParsePublicKey([]byte(rsaClientKey))
	require.NoError(t, err)

	c, err := iss.Issue("alice@gmail.com", pk, time.Hour)
	require.NoError(t, err)
	require.Len(t, strings.Split(c.Raw, "."), 3)
	require.NotEmpty(t, c.KID)

	pub, err := iss.keys.Public()
	require.NoError(t, err)

	parsed, err := jwtv5.Parse(c.Raw, func(tk *jwtv5.Token) (any, error) {
		require.Equal(t, "EdDSA", tk.Method.Alg())
		require.Equal(t, c.KID, tk.Header["kid"])
		return pub, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwtv5.MapClaims)
	require.Equal(t, "bridge.example", claims["iss"])

	principal, ok := claims["principal"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice@gmail.com", principal["email"])

	// La clave del cliente viaja intacta dentro del certificado.
	embedded, err := json.Marshal(claims["public-key"])
	require.NoError(t, err)
	var want, got map[string]any
	require.NoError(t, json.Unmarshal([]byte(rsaClientKey), &want))
	require.NoError(t, json.Unmarshal(embedded, &got))
	require.Equal(t, want, got)
}

func TestIssueBackdatesIssuedAt(t *testing.T) {
	iss := testIssuer(t, 24*time.Hour, 10*time.Second)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return fixed }

	pk, err := ParsePublicKey([]byte(rsaClientKey))
	require.NoError(t, err)
	c, err := iss.Issue("alice@gmail.com", pk, time.Hour)
	require.NoError(t, err)

	require.Equal(t, fixed.Add(-10*time.Second), c.IssuedAt)
	require.Equal(t, fixed.Add(time.Hour), c.ExpiresAt)
}

func TestClampDuration(t *testing.T) {
	iss := testIssuer(t, 24*time.Hour, 10*time.Second)

	// No pedir duración (o pedir una negativa) cae al default, nunca al
	// máximo: el máximo hay que pedirlo explícitamente.
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, time.Hour},
		{-time.Minute, time.Hour},
		{time.Minute, time.Minute},
		{24 * time.Hour, 24 * time.Hour},
		{48 * time.Hour, 24 * time.Hour},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, iss.ClampDuration(tc.in), "in=%v", tc.in)
	}
}

func TestDefaultDurationNeverExceedsMax(t *testing.T) {
	iss := testIssuer(t, 30*time.Minute, 10*time.Second)

	require.Equal(t, 30*time.Minute, iss.DefaultDuration)
	require.Equal(t, 30*time.Minute, iss.ClampDuration(0))
}

func TestParsePublicKey(t *testing.T) {
	okp := `{"kty":"OKP","crv":"Ed25519","x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`
	browserid := `{"algorithm":"RS","n":"1234567890123456789012345678901234567890","e":"65537"}`
	browserDS := `{"algorithm":"DS","y":"abc","p":"def","q":"ghi","g":"jkl","pad":"0000000000"}`

	t.Run("rsa jwk", func(t *testing.T) {
		pk, err := ParsePublicKey([]byte(rsaClientKey))
		require.NoError(t, err)
		require.Equal(t, "jwk", pk.Format)
	})
	t.Run("okp jwk", func(t *testing.T) {
		pk, err := ParsePublicKey([]byte(okp))
		require.NoError(t, err)
		require.Equal(t, "jwk", pk.Format)
	})
	t.Run("browserid rs", func(t *testing.T) {
		pk, err := ParsePublicKey([]byte(browserid))
		require.NoError(t, err)
		require.Equal(t, "browserid", pk.Format)
	})
	t.Run("browserid ds", func(t *testing.T) {
		pk, err := ParsePublicKey([]byte(browserDS))
		require.NoError(t, err)
		require.Equal(t, "browserid", pk.Format)
	})
	t.Run("too small", func(t *testing.T) {
		_, err := ParsePublicKey([]byte(`{"kty":"RSA"}`))
		require.ErrorIs(t, err, ErrPubKeySize)
	})
	t.Run("too big", func(t *testing.T) {
		big := `{"kty":"RSA","e":"AQAB","n":"` + strings.Repeat("A", 11000) + `"}`
		_, err := ParsePublicKey([]byte(big))
		require.ErrorIs(t, err, ErrPubKeySize)
	})
	t.Run("not json", func(t *testing.T) {
		_, err := ParsePublicKey([]byte(strings.Repeat("x", 100)))
		require.ErrorIs(t, err, ErrPubKeyFormat)
	})
	t.Run("unknown kty", func(t *testing.T) {
		_, err := ParsePublicKey([]byte(`{"kty":"EC","crv":"P-256","x":"aaaa","y":"bbbb","pad":"123"}`))
		require.ErrorIs(t, err, ErrPubKeyFormat)
	})
	t.Run("rsa jwk missing exponent", func(t *testing.T) {
		_, err := ParsePublicKey([]byte(`{"kty":"RSA","n":"123456789012345678901234567890123456"}`))
		require.ErrorIs(t, err, ErrPubKeyFormat)
	})
}
