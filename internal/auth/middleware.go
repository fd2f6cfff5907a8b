package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
)

type ctxKey struct{}

// WithUsername returns a copy of ctx carrying the verified username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKey{}, username)
}

// UsernameFromContext returns the username attached by RequireAuthenticated.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ctxKey{}).(string)
	return username, ok && username != ""
}

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// RequireAuthenticated rejects requests without a valid bearer token with
// 401 and attaches the token's username to the request context.
func RequireAuthenticated(v Verifier, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Debugw("missing bearer token", "path", r.URL.Path)
				apierror.Write(w, logger, apierror.Authentication("Unauthorized"))
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				logger.Debugw("token rejected", "path", r.URL.Path, "err", err)
				apierror.Write(w, logger, apierror.Authentication("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), claims.Username)))
		})
	}
}

// RequireSameUser rejects with 403 unless the authenticated username equals
// the path value named param. It must run after RequireAuthenticated.
func RequireSameUser(param string, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := UsernameFromContext(r.Context())
			if !ok {
				apierror.Write(w, logger, apierror.Authentication("Unauthorized"))
				return
			}
			if target := r.PathValue(param); target != username {
				logger.Debugw("cross-user access denied", "user", username, "target", target, "path", r.URL.Path)
				apierror.Write(w, logger, apierror.Authorization("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("bearer "):])
	return token, token != ""
}
