package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"cattube/internal/logger"
)

// AllowedHosts rejects requests whose Host header is not in hosts.
// A leading "." matches the domain and every subdomain; "*" matches anything.
func AllowedHosts(hosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hostAllowed(r.Host, hosts) {
				logger.Warnf("invalid Host header %q", r.Host)
				http.Error(w, "Bad Request (400)", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostAllowed(host string, allowed []string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	for _, pattern := range allowed {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

// TrustedOrigins rejects unsafe cross-origin requests. The Origin header, or
// the Referer when Origin is absent, must match the request's own origin or
// one of origins.
func TrustedOrigins(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				if ref, err := url.Parse(r.Referer()); err == nil && ref.Host != "" {
					origin = ref.Scheme + "://" + ref.Host
				}
			}

			if origin != "" && !originTrusted(origin, r, origins) {
				logger.Warnf("origin %s not trusted for %s %s", origin, r.Method, r.URL.Path)
				http.Error(w, "Forbidden (403): origin checking failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originTrusted(origin string, r *http.Request, trusted []string) bool {
	if origin == RequestScheme(r)+"://"+r.Host {
		return true
	}
	for _, t := range trusted {
		if strings.EqualFold(origin, t) {
			return true
		}
	}
	return false
}

// RequestScheme reports "https" when the request arrived over TLS or through
// a proxy that sets X-Forwarded-Proto: https.
func RequestScheme(r *http.Request) string {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

// Security sets the standard hardening headers.
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// NoCache marks responses as never cacheable. The watch page polls through it.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
