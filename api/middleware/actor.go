package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/google/uuid"
)

// Actor attribution rides in on trusted headers set by the gateway in
// front of this service. It is used for created_by stamping only; no
// authorization decision is made here.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type actorIDKey struct{}
type actorRoleKey struct{}

func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get(actorIDHeader)); raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					ctx = context.WithValue(ctx, actorIDKey{}, actorID)
					if logg != nil {
						ctx = logg.WithActorID(ctx, actorID.String())
					}
				}
			}
			if role := strings.TrimSpace(r.Header.Get(actorRoleHeader)); role != "" {
				ctx = context.WithValue(ctx, actorRoleKey{}, role)
				if logg != nil {
					ctx = logg.WithActorRole(ctx, role)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorIDFromContext returns the acting user's id, if one was supplied.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorIDKey{}).(uuid.UUID)
	return id, ok
}

// ActorRoleFromContext returns the acting user's role, if one was supplied.
func ActorRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(actorRoleKey{}).(string)
	return role, ok
}
