// Package google implementa la variante OAuth2 del provider: authorization
// code + userinfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/email"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
)

const discoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// emailScope es el único scope que el bridge necesita.
const emailScope = "https://www.googleapis.com/auth/userinfo.email"

type discoveryDoc struct {
	Issuer           string `json:"issuer"`
	AuthEndpoint     string `json:"authorization_endpoint"`
	TokenEndpoint    string `json:"token_endpoint"`
	UserinfoEndpoint string `json:"userinfo_endpoint"`
}

// OAuth habla el flujo authorization-code contra Google.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// DiscoveryURL permite apuntar a otro discovery document (tests).
	// Vacío usa el de Google.
	DiscoveryURL string

	http *http.Client

	mu    sync.RWMutex
	disc  *discoveryDoc
	discU time.Time
}

// New crea el provider OAuth. timeout acota cada llamada HTTP al provider.
func New(clientID, clientSecret, redirectURL string, timeout time.Duration) *OAuth {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuth{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: timeout},
	}
}

func (g *OAuth) discovery(ctx context.Context) (*discoveryDoc, error) {
	g.mu.RLock()
	disc := g.disc
	stale := time.Since(g.discU) > 24*time.Hour
	g.mu.RUnlock()
	if disc != nil && !stale {
		return disc, nil
	}

	target := g.DiscoveryURL
	if target == "" {
		target = discoveryURL
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, oauth.E(oauth.KindNetwork, "discovery fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, oauth.E(oauth.KindInvalidResponse, fmt.Sprintf("discovery http %d", resp.StatusCode), nil)
	}
	var dd discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, oauth.E(oauth.KindInvalidResponse, "discovery decode failed", err)
	}
	if dd.AuthEndpoint == "" || dd.TokenEndpoint == "" || dd.UserinfoEndpoint == "" {
		return nil, oauth.E(oauth.KindInvalidResponse, "discovery document incomplete", nil)
	}

	g.mu.Lock()
	g.disc = &dd
	g.discU = time.Now()
	g.mu.Unlock()
	return &dd, nil
}

// AuthURL construye la URL de autorización con login_hint y state.
func (g *OAuth) AuthURL(ctx context.Context, claimedEmail, state string) (string, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(disc.AuthEndpoint)
	if err != nil {
		return "", oauth.E(oauth.KindInvalidResponse, "bad authorization endpoint", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", emailScope)
	q.Set("state", state)
	q.Set("login_hint", claimedEmail)
	q.Set("access_type", "online")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

func (g *OAuth) exchangeCode(ctx context.Context, disc *discoveryDoc, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, disc.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, oauth.E(oauth.KindNetwork, "code exchange failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, oauth.E(oauth.KindInvalidResponse,
			fmt.Sprintf("token http %d: %s %s", resp.StatusCode, body.Error, body.ErrorDescription), nil)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, oauth.E(oauth.KindInvalidResponse, "token decode failed", err)
	}
	if tr.AccessToken == "" {
		return nil, oauth.E(oauth.KindInvalidResponse, "token response without access_token", nil)
	}
	return &tr, nil
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	// Legacy v2 field name; Google has answered with both over the years.
	VerifiedEmail *bool `json:"verified_email,omitempty"`
}

func (g *OAuth) fetchUserInfo(ctx context.Context, disc *discoveryDoc, accessToken string) (*userInfo, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, disc.UserinfoEndpoint, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, oauth.E(oauth.KindNetwork, "userinfo fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, oauth.E(oauth.KindInvalidResponse, fmt.Sprintf("userinfo http %d", resp.StatusCode), nil)
	}
	var ui userInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, oauth.E(oauth.KindInvalidResponse, "userinfo decode failed", err)
	}
	if ui.VerifiedEmail != nil {
		ui.EmailVerified = *ui.VerifiedEmail
	}
	return &ui, nil
}

// Resolve intercambia el code y consulta userinfo.
// Un callback sin code se trata como cancelación del usuario.
func (g *OAuth) Resolve(ctx context.Context, cb oauth.Callback) (oauth.Identity, error) {
	if cb.Code == "" {
		return oauth.Identity{}, oauth.E(oauth.KindCancelled, "authentication cancelled", nil)
	}
	disc, err := g.discovery(ctx)
	if err != nil {
		return oauth.Identity{}, err
	}
	tr, err := g.exchangeCode(ctx, disc, cb.Code)
	if err != nil {
		return oauth.Identity{}, err
	}
	ui, err := g.fetchUserInfo(ctx, disc, tr.AccessToken)
	if err != nil {
		return oauth.Identity{}, err
	}
	if !email.Valid(ui.Email) {
		return oauth.Identity{}, oauth.E(oauth.KindInvalidResponse, "userinfo email missing or malformed", nil)
	}
	return oauth.Identity{Email: ui.Email, Verified: ui.EmailVerified}, nil
}
