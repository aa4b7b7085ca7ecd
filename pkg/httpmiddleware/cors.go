package httpmiddleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Origins is an allow-list of browser origins (scheme://host[:port]). An
// empty list or the entry "*" allows every origin.
type Origins struct {
	any     bool
	allowed map[string]string // normalized -> as configured
}

// ParseOrigins builds an allow-list from configuration values.
func ParseOrigins(list []string) Origins {
	o := Origins{any: len(list) == 0, allowed: make(map[string]string, len(list))}
	for _, v := range list {
		if v == "*" {
			o.any = true
			continue
		}
		if n := normalizeOrigin(v); n != "" {
			o.allowed[n] = strings.TrimRight(v, "/")
		}
	}
	return o
}

// Any reports whether every origin is allowed.
func (o Origins) Any() bool { return o.any }

// Match returns the configured spelling of origin and whether it is allowed.
// With a wildcard list the origin is returned as is.
func (o Origins) Match(origin string) (string, bool) {
	if o.any {
		return origin, true
	}
	v, ok := o.allowed[normalizeOrigin(origin)]
	return v, ok
}

// CheckOrigin has the signature of websocket.Upgrader.CheckOrigin. Requests
// without an Origin header come from non-browser clients and are accepted.
func (o Origins) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := o.Match(origin)
	return ok
}

func normalizeOrigin(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins []string
	// AllowMethods defaults to the methods the API routes use.
	AllowMethods []string
	// AllowHeaders, when empty, echoes Access-Control-Request-Headers.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials lets browsers send the session cookie. The wildcard
	// is never sent together with credentials; the request origin is echoed.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Preflights are detected by the Access-Control-Request-Method header and
// answered with 204 without reaching the router.
func CORS(cfg CORSConfig) Middleware {
	origins := ParseOrigins(cfg.AllowOrigins)
	wildcard := origins.Any() && !cfg.AllowCredentials

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	if allowMethods == "" {
		allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !wildcard {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin, ok := origins.Match(origin)
			if wildcard {
				allowOrigin = "*"
			}
			if ok {
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if !preflight {
				if ok && exposeHeaders != "" {
					h.Set("Access-Control-Expose-Headers", exposeHeaders)
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if ok {
				h.Set("Access-Control-Allow-Methods", allowMethods)
				switch {
				case allowHeaders != "":
					h.Set("Access-Control-Allow-Headers", allowHeaders)
				case r.Header.Get("Access-Control-Request-Headers") != "":
					h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
