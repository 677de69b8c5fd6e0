// Package openid implementa la variante OpenID 2.0 del provider:
// verificación stateless de la assertion firmada + attribute exchange para
// obtener el email. Es el transporte que usaba el bridge original contra
// el endpoint federado de Google.
package openid

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/gmailbridge/internal/email"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
)

const (
	nsOpenID         = "http://specs.openid.net/auth/2.0"
	nsAX             = "http://openid.net/srv/ax/1.0"
	nsUI             = "http://specs.openid.net/extensions/ui/1.0"
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"
	axEmailType      = "http://axschema.org/contact/email"

	// Google's federated login endpoint for OpenID 2.0.
	defaultOPEndpoint = "https://www.google.com/accounts/o8/ud"
)

// RP es un relying party OpenID 2.0 en modo stateless: cada assertion se
// re-valida contra el provider con check_authentication en vez de mantener
// asociaciones.
type RP struct {
	// OPEndpoint es el server endpoint del provider.
	OPEndpoint string
	// ReturnTo es la URL de callback del bridge.
	ReturnTo string

	http *http.Client
}

// New crea el relying party. opEndpoint vacío usa el endpoint de Google.
func New(opEndpoint, returnTo string, timeout time.Duration) *RP {
	if opEndpoint == "" {
		opEndpoint = defaultOPEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RP{
		OPEndpoint: opEndpoint,
		ReturnTo:   returnTo,
		http:       &http.Client{Timeout: timeout},
	}
}

// AuthURL construye el redirect checkid_setup con AX email requerido y la
// extensión UI en modo popup. El state del caller viaja en el return_to.
func (rp *RP) AuthURL(_ context.Context, _ string, state string) (string, error) {
	returnTo, err := url.Parse(rp.ReturnTo)
	if err != nil {
		return "", oauth.E(oauth.KindInvalidResponse, "bad return_to", err)
	}
	rq := returnTo.Query()
	rq.Set("state", state)
	returnTo.RawQuery = rq.Encode()

	u, err := url.Parse(rp.OPEndpoint)
	if err != nil {
		return "", oauth.E(oauth.KindInvalidResponse, "bad op endpoint", err)
	}
	q := u.Query()
	q.Set("openid.ns", nsOpenID)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.claimed_id", identifierSelect)
	q.Set("openid.identity", identifierSelect)
	q.Set("openid.return_to", returnTo.String())
	q.Set("openid.ns.ax", nsAX)
	q.Set("openid.ax.mode", "fetch_request")
	q.Set("openid.ax.type.email", axEmailType)
	q.Set("openid.ax.required", "email")
	q.Set("openid.ns.ui", nsUI)
	q.Set("openid.ui.mode", "popup")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resolve valida la assertion del callback.
// Pasos: modo cancel → Cancelled; el atributo email debe estar dentro del
// field set firmado; check_authentication contra el provider debe devolver
// is_valid:true.
func (rp *RP) Resolve(ctx context.Context, cb oauth.Callback) (oauth.Identity, error) {
	params := cb.Params
	switch params.Get("openid.mode") {
	case "cancel":
		return oauth.Identity{}, oauth.E(oauth.KindCancelled, "authentication cancelled", nil)
	case "id_res":
	default:
		return oauth.Identity{}, oauth.E(oauth.KindInvalidResponse,
			fmt.Sprintf("unexpected openid.mode %q", params.Get("openid.mode")), nil)
	}

	addr, err := signedEmail(params)
	if err != nil {
		return oauth.Identity{}, err
	}

	if err := rp.checkAuthentication(ctx, params); err != nil {
		return oauth.Identity{}, err
	}

	if !email.Valid(addr) {
		return oauth.Identity{}, oauth.E(oauth.KindInvalidResponse, "asserted email malformed", nil)
	}
	// Una assertion firmada y válida equivale a email verificado.
	return oauth.Identity{Email: addr, Verified: true}, nil
}

// signedEmail localiza el alias AX y exige que el atributo email forme
// parte del field set firmado. Un email fuera de la firma no prueba nada.
func signedEmail(params url.Values) (string, error) {
	alias := ""
	for key, vals := range params {
		if strings.HasPrefix(key, "openid.ns.") && len(vals) > 0 && vals[0] == nsAX {
			alias = strings.TrimPrefix(key, "openid.ns.")
			break
		}
	}
	if alias == "" {
		return "", oauth.E(oauth.KindInvalidResponse, "no attribute exchange namespace in response", nil)
	}

	signed := map[string]bool{}
	for _, f := range strings.Split(params.Get("openid.signed"), ",") {
		signed[strings.TrimSpace(f)] = true
	}

	for _, field := range []string{
		alias + ".value.email",
		alias + ".value.email.1",
	} {
		v := params.Get("openid." + field)
		if v == "" {
			continue
		}
		if !signed["ns."+alias] || !signed[field] {
			return "", oauth.E(oauth.KindInvalidResponse, "email attribute not covered by signature", nil)
		}
		return v, nil
	}
	return "", oauth.E(oauth.KindInvalidResponse, "no email attribute in assertion", nil)
}

// checkAuthentication re-manda la assertion completa al provider con
// mode=check_authentication (verificación stateless, OpenID 2.0 §11.4.2).
// El POST va SIEMPRE al endpoint configurado: el openid.op_endpoint del
// callback es dato del atacante, y aceptarlo permitiría validar la
// assertion contra un server que responde is_valid:true a todo.
func (rp *RP) checkAuthentication(ctx context.Context, params url.Values) error {
	if ep := params.Get("openid.op_endpoint"); ep != "" && ep != rp.OPEndpoint {
		return oauth.E(oauth.KindInvalidResponse, "assertion op_endpoint does not match configured provider", nil)
	}

	form := url.Values{}
	for key, vals := range params {
		if strings.HasPrefix(key, "openid.") && len(vals) > 0 {
			form.Set(key, vals[0])
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, rp.OPEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := rp.http.Do(req)
	if err != nil {
		return oauth.E(oauth.KindNetwork, "check_authentication failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return oauth.E(oauth.KindInvalidResponse, fmt.Sprintf("check_authentication http %d", resp.StatusCode), nil)
	}

	// Respuesta key-value directa: "ns:...\nis_valid:true\n"
	valid := false
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if k, v, ok := strings.Cut(line, ":"); ok && k == "is_valid" {
			valid = strings.TrimSpace(v) == "true"
		}
	}
	if err := sc.Err(); err != nil {
		return oauth.E(oauth.KindInvalidResponse, "check_authentication read failed", err)
	}
	if !valid {
		return oauth.E(oauth.KindInvalidResponse, "assertion rejected by provider", nil)
	}
	return nil
}
