package mw

import "net/http"

// Browser clients call the API from arbitrary origins; access control
// happens at persistence time via owner scoping, never at the network
// layer. The allowed-header list is fixed and matches what the web
// client sends.
const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	allowMethods = "GET, POST, DELETE, OPTIONS"
)

// CORS sets permissive cross-origin headers on every response and
// answers preflight OPTIONS requests with 200 and no body.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
