package app

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/astromeet/astromeet/internal/observability"
	"github.com/astromeet/astromeet/internal/shared"
)

// userIDHeader carries the identity resolved by the upstream gateway.
// Authentication itself is out of scope for this engine.
const userIDHeader = "X-User-ID"

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the default middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	identityMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(userIDHeader); raw != "" {
				if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
					r = r.WithContext(shared.ContextWithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}

	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		secureMiddleware.Handler,
		identityMiddleware,
	}
	if cfg.Config != nil {
		stack = append(stack,
			middleware.Timeout(cfg.Config.AppRequestTimeout),
			httprate.LimitByIP(cfg.Config.RateLimitRequests, cfg.Config.RateLimitWindow),
		)
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}
