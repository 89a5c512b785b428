package middleware

import (
	"net/http"
	"strings"
)

// SessionHeader is the header the wizard uses to address its onboarding session.
const SessionHeader = "X-Onboarding-Session"

// DefaultCORS allows any origin. Use CORS with an explicit list outside local development.
func DefaultCORS() func(http.Handler) http.Handler {
	return CORS(nil)
}

// CORS answers preflight requests and sets the allow headers for the onboarding API.
// An empty origins list allows every origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowed) == 0:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "":
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,"+SessionHeader)
			w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
