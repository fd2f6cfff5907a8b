package message

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
)

type ctxKey struct{}

// FromContext returns the message loaded by a guard.
func FromContext(ctx context.Context) (*entity.Detail, bool) {
	d, ok := ctx.Value(ctxKey{}).(*entity.Detail)
	return d, ok
}

// RequireParticipant lets the request through only when the authenticated
// user sent or received the message in path value "id".
func RequireParticipant(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return guard(svc, logger, func(username string, d *entity.Detail) bool {
		return username == d.FromUser.Username || username == d.ToUser.Username
	})
}

// RequireRecipient lets the request through only when the authenticated user
// received the message in path value "id".
func RequireRecipient(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return guard(svc, logger, func(username string, d *entity.Detail) bool {
		return username == d.ToUser.Username
	})
}

func guard(svc *Service, logger *zap.SugaredLogger, allowed func(string, *entity.Detail) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := auth.UsernameFromContext(r.Context())
			if !ok {
				apierror.Write(w, logger, apierror.Authentication("Unauthorized"))
				return
			}
			id, err := ParseID(r.PathValue("id"))
			if err != nil {
				apierror.Write(w, logger, err)
				return
			}
			d, err := svc.Get(r.Context(), id)
			if err != nil {
				apierror.Write(w, logger, err)
				return
			}
			if !allowed(username, d) {
				logger.Debugw("message access denied", "user", username, "message_id", id.String())
				apierror.Write(w, logger, apierror.Authorization("Cannot access this message"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, d)))
		})
	}
}
