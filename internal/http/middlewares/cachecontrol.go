package middlewares

import "net/http"

// NoStore marca la respuesta como no cacheable. Todo lo que toca estado
// de sesión o emite certificados pasa por acá.
func NoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}

// Revalidate permite cachear pero obliga a revalidar. Para documentos de
// soporte como el de descubrimiento.
func Revalidate() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=60, must-revalidate")
			next.ServeHTTP(w, r)
		})
	}
}
