package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/metrics"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

// UserFromContext returns the identity attached by the auth gate.
func UserFromContext(ctx context.Context) (*models.PublicUser, bool) {
	u, ok := ctx.Value(userKey).(*models.PublicUser)
	return u, ok && u != nil
}

// UserLoader resolves a token subject to a sanitized identity.
type UserLoader interface {
	CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
}

// tokenFromRequest prefers the access token cookie over the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get(common.AuthorizationHeaderName)
	if strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	}
	return ""
}

// RequireAuth validates the access token statelessly, then attaches the
// subject's identity to the request context. Every failure past a missing
// token yields the same response.
func RequireAuth(issuer *auth.Issuer, users UserLoader, l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeError(w, r, l, common.Unauthorized("Unauthorized: Token missing"))
				return
			}

			claims, err := issuer.VerifyAccessToken(token)
			if err != nil {
				logging.FromContext(r.Context(), l).Debug(r.Context(), "access token rejected", "reason", err.Error())
				writeError(w, r, l, common.Unauthorized("Unauthorized: Invalid token"))
				return
			}

			user, err := users.CurrentUser(r.Context(), claims.Subject)
			if err != nil {
				if common.KindOf(err) == common.KindNotFound {
					writeError(w, r, l, common.Unauthorized("Unauthorized: Invalid token"))
					return
				}
				writeError(w, r, l, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger stores a request-scoped logger in the context and logs one
// line per request. It also feeds the latency histogram.
func requestLogger(l logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			rl := l.With("request_id", middleware.GetReqID(r.Context()))
			ctx := logging.WithLogger(r.Context(), rl)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			dur := time.Since(start)

			m.ObserveHTTP(r.Method, route, status, dur)
			rl.Info(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", dur.Milliseconds(),
			)
		})
	}
}

// recoverer turns a handler panic into the JSON error envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func recoverer(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context(), l).Error(r.Context(), "panic recovered",
					"panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				writeError(w, r, l, common.Internal("panic", nil))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
