package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/oauth"
)

// fakeGoogle sirve discovery, token y userinfo en un solo server.
func fakeGoogle(t *testing.T, verified bool, userEmail string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":          userEmail,
			"email_verified": verified,
		})
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *OAuth {
	p := New("client-1", "secret-1", "https://bridge.example/authenticate/verify", 5*time.Second)
	p.DiscoveryURL = srv.URL + "/.well-known/openid-configuration"
	return p
}

func TestAuthURLCarriesHintAndState(t *testing.T) {
	srv := fakeGoogle(t, true, "alice@gmail.com")
	p := newTestProvider(srv)

	raw, err := p.AuthURL(context.Background(), "alice@gmail.com", "tok-abc")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("login_hint") != "alice@gmail.com" {
		t.Errorf("login_hint = %q", q.Get("login_hint"))
	}
	if q.Get("state") != "tok-abc" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("response_type") != "code" || q.Get("client_id") != "client-1" {
		t.Errorf("unexpected query: %v", q)
	}
	if !strings.Contains(q.Get("scope"), "userinfo.email") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestResolveSuccess(t *testing.T) {
	srv := fakeGoogle(t, true, "alice@gmail.com")
	p := newTestProvider(srv)

	id, err := p.Resolve(context.Background(), oauth.Callback{Code: "good-code"})
	if err != nil {
		t.Fatal(err)
	}
	if id.Email != "alice@gmail.com" || !id.Verified {
		t.Errorf("Resolve = %+v", id)
	}
}

func TestResolveUnverifiedEmail(t *testing.T) {
	srv := fakeGoogle(t, false, "alice@gmail.com")
	p := newTestProvider(srv)

	id, err := p.Resolve(context.Background(), oauth.Callback{Code: "good-code"})
	if err != nil {
		t.Fatal(err)
	}
	if id.Verified {
		t.Error("expected Verified=false to surface to the caller")
	}
}

func TestResolveWithoutCodeIsCancelled(t *testing.T) {
	srv := fakeGoogle(t, true, "alice@gmail.com")
	p := newTestProvider(srv)

	_, err := p.Resolve(context.Background(), oauth.Callback{})
	if !oauth.IsCancelled(err) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestResolveBadCode(t *testing.T) {
	srv := fakeGoogle(t, true, "alice@gmail.com")
	p := newTestProvider(srv)

	_, err := p.Resolve(context.Background(), oauth.Callback{Code: "wrong"})
	if oauth.KindOf(err) != oauth.KindInvalidResponse {
		t.Fatalf("expected invalid_response, got %v", err)
	}
}

func TestResolveMalformedEmail(t *testing.T) {
	srv := fakeGoogle(t, true, "not-an-email")
	p := newTestProvider(srv)

	_, err := p.Resolve(context.Background(), oauth.Callback{Code: "good-code"})
	if oauth.KindOf(err) != oauth.KindInvalidResponse {
		t.Fatalf("expected invalid_response for malformed email, got %v", err)
	}
}
