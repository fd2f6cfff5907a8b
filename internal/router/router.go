package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestIDMiddleware keeps an incoming X-Request-Id or assigns a KSUID, and
// echoes it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if id == "" || len(id) > 128 {
				id = utilities.NewKSUID()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the services the routes are built on.
type Deps struct {
	Books        *book.Service
	Users        *user.UserService
	Messages     *message.Service
	Tokens       *auth.TokenService
	LoginLimiter *ratelimit.FixedWindowLimiter
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// books
	books := book.NewHandler(deps.Books, logger)
	mux.HandleFunc("GET /books", books.List)
	mux.HandleFunc("GET /books/{$}", books.List)
	mux.HandleFunc("POST /books", books.Create)
	mux.HandleFunc("POST /books/{$}", books.Create)
	mux.HandleFunc("GET /books/{isbn}", books.Get)
	mux.HandleFunc("PUT /books/{isbn}", books.Update)
	mux.HandleFunc("DELETE /books/{isbn}", books.Delete)

	// auth
	authHandler := auth.NewHandler(deps.Users, deps.Tokens, logger)
	limited := ratelimit.Middleware(deps.LoginLimiter, "login", logger)
	mux.Handle("POST /login", limited(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /register", limited(http.HandlerFunc(authHandler.Register)))

	authenticated := auth.RequireAuthenticated(deps.Tokens, logger)
	sameUser := auth.RequireSameUser("username", logger)

	// users
	users := user.NewHandler(deps.Users, logger)
	mux.Handle("GET /users", authenticated(http.HandlerFunc(users.List)))
	mux.Handle("GET /users/{$}", authenticated(http.HandlerFunc(users.List)))
	mux.Handle("GET /users/{username}", authenticated(http.HandlerFunc(users.Get)))
	mux.Handle("GET /users/{username}/to", chain(http.HandlerFunc(users.MessagesTo), authenticated, sameUser))
	mux.Handle("GET /users/{username}/from", chain(http.HandlerFunc(users.MessagesFrom), authenticated, sameUser))

	// messages
	messages := message.NewHandler(deps.Messages, logger)
	mux.Handle("POST /messages", authenticated(http.HandlerFunc(messages.Create)))
	mux.Handle("POST /messages/{$}", authenticated(http.HandlerFunc(messages.Create)))
	mux.Handle("GET /messages/{id}", chain(http.HandlerFunc(messages.Get), authenticated, message.RequireParticipant(deps.Messages, logger)))
	mux.Handle("POST /messages/{id}/read", chain(http.HandlerFunc(messages.MarkRead), authenticated, message.RequireRecipient(deps.Messages, logger)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, logger, apierror.NotFound("Not Found"))
	})

	return chain(mux, RequestIDMiddleware(), LoggingMiddleware(logger), SecurityHeadersMiddleware())
}
