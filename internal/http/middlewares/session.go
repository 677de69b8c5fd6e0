package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gmailbridge/internal/http/helpers"
)

// WithSession asegura que el request tenga cookie de sesión. Si no llega
// una, se genera un UUID nuevo y se setea en la respuesta. El session ID
// queda en el contexto para los controllers.
func WithSession(cookieName string, ttl time.Duration, secure bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, helpers.BuildCookie(cookieName, sid, "lax", secure, ttl))
			}
			next.ServeHTTP(w, r.WithContext(setSessionID(r.Context(), sid)))
		})
	}
}
