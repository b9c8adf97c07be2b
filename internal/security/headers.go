// Package security holds the hardening middleware applied in front of the
// API: response headers, CORS allowlisting, and request body limits.
package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers toggles the standard hardening headers on responses.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Enable {
			h.apply(w, r)
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) apply(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("X-Frame-Options", "DENY")
	hdr.Set("Referrer-Policy", "no-referrer")
	hdr.Set("Permissions-Policy", "geolocation=(), microphone=()")

	// HSTS only makes sense on a TLS connection.
	if !h.EnableHSTS || r.TLS == nil {
		return
	}
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	value := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	hdr.Set("Strict-Transport-Security", value)
}

// AllowCORS builds middleware that enforces an origin allowlist. The POS
// front end sends the session id header on every cart call, so it has to
// be both allowed and exposed.
func AllowCORS(originsCSV string) func(http.Handler) http.Handler {
	allowed, wildcard := parseOrigins(originsCSV)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))

			granted := false
			switch {
			case origin == "":
				// Same-origin or non-browser client, nothing to grant.
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Del("Access-Control-Allow-Credentials")
				granted = true
			default:
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					granted = true
				}
			}
			if granted {
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept, X-Session-ID, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Expose-Headers", "X-Session-ID, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				if granted || (origin == "" && wildcard) {
					w.WriteHeader(http.StatusNoContent)
				} else {
					http.Error(w, "cors origin not allowed", http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseOrigins(csv string) (map[string]struct{}, bool) {
	allowed := map[string]struct{}{}
	wildcard := false
	for _, origin := range strings.Split(csv, ",") {
		switch trimmed := strings.TrimSpace(origin); trimmed {
		case "":
		case "*":
			wildcard = true
		default:
			allowed[trimmed] = struct{}{}
		}
	}
	return allowed, wildcard
}
