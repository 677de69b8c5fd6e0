package openid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/oauth"
)

func fakeOP(t *testing.T, isValid bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.Form.Get("openid.mode") != "check_authentication" {
			http.Error(w, "unexpected mode", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, "ns:%s\nis_valid:%v\n", nsOpenID, isValid)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assertionParams(email string, signEmail bool) url.Values {
	signed := "op_endpoint,claimed_id,identity,return_to,response_nonce,assoc_handle"
	if signEmail {
		signed += ",ns.ext1,ext1.mode,ext1.type.email,ext1.value.email"
	}
	v := url.Values{}
	v.Set("openid.ns", nsOpenID)
	v.Set("openid.mode", "id_res")
	v.Set("openid.claimed_id", "https://www.google.com/accounts/o8/id?id=xyz")
	v.Set("openid.signed", signed)
	v.Set("openid.sig", "c2ln")
	v.Set("openid.ns.ext1", nsAX)
	v.Set("openid.ext1.mode", "fetch_response")
	v.Set("openid.ext1.type.email", axEmailType)
	v.Set("openid.ext1.value.email", email)
	return v
}

func TestAuthURLShape(t *testing.T) {
	rp := New("https://op.example/ud", "https://bridge.example/authenticate/verify", 5*time.Second)

	raw, err := rp.AuthURL(context.Background(), "alice@gmail.com", "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("openid.mode") != "checkid_setup" {
		t.Errorf("mode = %q", q.Get("openid.mode"))
	}
	if q.Get("openid.ax.required") != "email" {
		t.Errorf("ax.required = %q", q.Get("openid.ax.required"))
	}
	rt, err := url.Parse(q.Get("openid.return_to"))
	if err != nil {
		t.Fatal(err)
	}
	if rt.Query().Get("state") != "tok-1" {
		t.Errorf("return_to state = %q", rt.Query().Get("state"))
	}
}

func TestResolveValidAssertion(t *testing.T) {
	srv := fakeOP(t, true)
	rp := New(srv.URL, "https://bridge.example/authenticate/verify", 5*time.Second)

	params := assertionParams("alice@gmail.com", true)
	params.Set("openid.op_endpoint", srv.URL)

	id, err := rp.Resolve(context.Background(), oauth.Callback{Params: params})
	if err != nil {
		t.Fatal(err)
	}
	if id.Email != "alice@gmail.com" || !id.Verified {
		t.Errorf("Resolve = %+v", id)
	}
}

func TestResolveCancel(t *testing.T) {
	rp := New("https://op.example/ud", "https://bridge.example/cb", 5*time.Second)
	params := url.Values{}
	params.Set("openid.mode", "cancel")

	_, err := rp.Resolve(context.Background(), oauth.Callback{Params: params})
	if !oauth.IsCancelled(err) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestResolveUnsignedEmailRejected(t *testing.T) {
	srv := fakeOP(t, true)
	rp := New(srv.URL, "https://bridge.example/cb", 5*time.Second)

	params := assertionParams("alice@gmail.com", false)
	params.Set("openid.op_endpoint", srv.URL)

	_, err := rp.Resolve(context.Background(), oauth.Callback{Params: params})
	if oauth.KindOf(err) != oauth.KindInvalidResponse {
		t.Fatalf("expected invalid_response for unsigned email, got %v", err)
	}
}

func TestResolveRejectsForeignOPEndpoint(t *testing.T) {
	// Un server controlado por el atacante que valida cualquier cosa.
	attacker := fakeOP(t, true)
	rp := New("https://www.google.com/accounts/o8/ud", "https://bridge.example/cb", 5*time.Second)

	// La assertion nombra al atacante como op_endpoint: la verificación
	// tiene que ir al endpoint configurado, no al que diga el callback.
	params := assertionParams("victim@gmail.com", true)
	params.Set("openid.op_endpoint", attacker.URL)

	_, err := rp.Resolve(context.Background(), oauth.Callback{Params: params})
	if oauth.KindOf(err) != oauth.KindInvalidResponse {
		t.Fatalf("expected invalid_response for foreign op_endpoint, got %v", err)
	}
}

func TestResolveProviderRejectsAssertion(t *testing.T) {
	srv := fakeOP(t, false)
	rp := New(srv.URL, "https://bridge.example/cb", 5*time.Second)

	params := assertionParams("alice@gmail.com", true)
	params.Set("openid.op_endpoint", srv.URL)

	_, err := rp.Resolve(context.Background(), oauth.Callback{Params: params})
	if oauth.KindOf(err) != oauth.KindInvalidResponse {
		t.Fatalf("expected invalid_response, got %v", err)
	}
}
