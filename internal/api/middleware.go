package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"craftbridge/internal/auth"

	"github.com/go-chi/httprate"
)

type ContextKey string

const ClientContextKey ContextKey = "client"

func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClientContextKey).(*auth.Claims)
	return claims
}

// AuthMiddleware accepts a bearer token or a ?token= query parameter, the
// latter for websocket clients that cannot set headers.
func AuthMiddleware(secret, requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			if parts := strings.Fields(r.Header.Get("Authorization")); len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
				return
			}

			claims, err := auth.ParseToken(secret, tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			if requiredRole == auth.RoleOperator && claims.Role != auth.RoleOperator {
				writeError(w, http.StatusForbidden, "forbidden", "operator role required")
				return
			}

			ctx := context.WithValue(r.Context(), ClientContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newCommandLimiter bounds console commands per client. The same limiter
// guards the HTTP command route and commands sent over the event socket.
func newCommandLimiter(limit int, window time.Duration) *httprate.RateLimiter {
	return httprate.NewRateLimiter(
		limit,
		window,
		httprate.WithKeyFuncs(commandKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many commands, slow down")
		}),
	)
}

func commandKey(r *http.Request) (string, error) {
	if claims := ClaimsFrom(r.Context()); claims != nil && claims.Subject != "" {
		return claims.Subject, nil
	}
	return httprate.KeyByIP(r)
}

// headerSink lets the limiter set its rate headers when there is no HTTP
// response to write them to.
type headerSink http.Header

func (h headerSink) Header() http.Header       { return http.Header(h) }
func (h headerSink) Write(b []byte) (int, error) { return len(b), nil }
func (h headerSink) WriteHeader(int)             {}

// socketGate charges commands sent over the websocket of r to the same
// per-client budget as POST /server/command.
func socketGate(limiter *httprate.RateLimiter, r *http.Request) func() bool {
	key, err := commandKey(r)
	if err != nil {
		return func() bool { return false }
	}
	req := r.Clone(context.Background())
	return func() bool {
		return !limiter.OnLimit(headerSink{}, req, key)
	}
}
