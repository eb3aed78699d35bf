package httputil

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/cors"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	AllowedOrigins  []string
	AllowCloudflare bool
	Production      bool
}

// Allowed reports whether origin may make credentialed requests. An empty
// origin (same-origin or non-browser clients) is always allowed.
func (p OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range p.AllowedOrigins {
		if matchOrigin(allowed, origin) {
			return true
		}
	}
	if p.AllowCloudflare || p.Production {
		host := originHost(origin)
		if strings.HasSuffix(host, ".workers.dev") || strings.HasSuffix(host, ".pages.dev") {
			return true
		}
	}
	if !p.Production {
		host := originHost(origin)
		if host == "localhost" || host == "127.0.0.1" {
			return true
		}
	}
	return false
}

// matchOrigin treats * as a wildcard anchored at the start of the origin and
// otherwise compares by prefix.
func matchOrigin(pattern, origin string) bool {
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return strings.HasPrefix(origin, pattern)
	}
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*"))
	if err != nil {
		return false
	}
	return re.MatchString(origin)
}

// originHost returns the hostname of an origin such as https://app.example.com:8443.
func originHost(origin string) string {
	host := origin
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	host, _, _ = strings.Cut(host, "/")
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
	}
	host, _, _ = strings.Cut(host, ":")
	return strings.ToLower(host)
}

// CORS returns middleware that applies the policy returned by policy on every
// request, so reloaded settings take effect without a restart.
func CORS(policy func() OriginPolicy) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return policy().Allowed(origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept-Language"},
		ExposedHeaders:   []string{"Content-Type", "Cache-Control", "Connection"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}
