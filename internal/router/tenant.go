package router

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
)

type tenantCtxKey struct{}

// WithTenant stamps the resolved tenant id onto the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantFromContext returns the tenant id resolved for this request.
func TenantFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantCtxKey{}).(string)
	return id, ok && id != ""
}

// ResolveTenant extracts the tenant id from a request. Sources are checked
// in a fixed priority order so a request carrying several identifications is
// deterministic: header, then subdomain, then path prefix, then query
// parameter, then the configured default.
func ResolveTenant(r *http.Request, cfg *config.Config) (string, bool) {
	if id := r.Header.Get(cfg.TenantHeader); id != "" {
		return id, true
	}

	if cfg.BaseDomain != "" {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if suffix := "." + cfg.BaseDomain; strings.HasSuffix(host, suffix) {
			label := strings.TrimSuffix(host, suffix)
			if label != "" && !strings.Contains(label, ".") && !reservedSubdomain(cfg, label) {
				return label, true
			}
		}
	}

	if rest, ok := strings.CutPrefix(r.URL.Path, "/t/"); ok {
		if id, _, _ := strings.Cut(rest, "/"); id != "" {
			return id, true
		}
	}

	if id := r.URL.Query().Get("tenant"); id != "" {
		return id, true
	}

	if cfg.DefaultTenant != "" {
		return cfg.DefaultTenant, true
	}
	return "", false
}

func reservedSubdomain(cfg *config.Config, label string) bool {
	for _, reserved := range cfg.ReservedSubdomains {
		if strings.EqualFold(label, reserved) {
			return true
		}
	}
	return false
}

// tenantResolver resolves the tenant once per request and stores it on the
// context for the procedure handlers.
func tenantResolver(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := ResolveTenant(r, cfg); ok {
				r = r.WithContext(WithTenant(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
