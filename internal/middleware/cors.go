package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows every origin and the usual methods.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderXRequestID},
		MaxAge:       86400,
	}
}

// CORS request types used as metric labels.
const (
	corsPreflight = "preflight"
	corsActual    = "actual"
	corsRejected  = "rejected"
)

// corsPolicy holds the pre-computed header values of a CORSConfig.
type corsPolicy struct {
	origins          map[string]struct{}
	suffixes         []string
	anyOrigin        bool
	allowMethods     string
	allowHeaders     string
	exposeHeaders    string
	maxAge           string
	allowCredentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:          make(map[string]struct{}, len(cfg.AllowOrigins)),
		allowMethods:     strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:     strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders:    strings.Join(cfg.ExposeHeaders, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	for _, origin := range cfg.AllowOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			p.anyOrigin = true
		case strings.HasPrefix(origin, "*."):
			// "*.example.com" keeps ".example.com"
			p.suffixes = append(p.suffixes, origin[1:])
		case origin != "":
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.anyOrigin {
		return true
	}
	if _, ok := p.origins[origin]; ok {
		return true
	}

	host := origin
	if i := strings.Index(host, "://"); i != -1 {
		host = host[i+3:]
	}
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	for _, suffix := range p.suffixes {
		if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) apply(h http.Header, origin string, preflight bool) {
	h.Add("Vary", HeaderOrigin)
	h.Set("Access-Control-Allow-Origin", origin)
	if p.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	if !preflight {
		if p.exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", p.exposeHeaders)
		}
		return
	}

	if p.allowMethods != "" {
		h.Set("Access-Control-Allow-Methods", p.allowMethods)
	}
	if p.allowHeaders != "" {
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// CORS returns a middleware that answers preflight requests with 204
// and decorates actual requests from allowed origins. Requests without
// an Origin header pass through untouched.
func CORS(cfg CORSConfig) Middleware {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			preflight := r.Method == http.MethodOptions &&
				r.Header.Get("Access-Control-Request-Method") != ""

			mm := GetMiddlewareMetrics()
			if !policy.allows(origin) {
				mm.corsRequestsTotal.WithLabelValues(corsRejected).Inc()
				if preflight {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			policy.apply(w.Header(), origin, preflight)
			if preflight {
				mm.corsRequestsTotal.WithLabelValues(corsPreflight).Inc()
				w.WriteHeader(http.StatusNoContent)
				return
			}

			mm.corsRequestsTotal.WithLabelValues(corsActual).Inc()
			next.ServeHTTP(w, r)
		})
	}
}
