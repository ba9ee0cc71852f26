package httpapi

import (
	"context"
	"net/http"
	"strings"

	"citymap-backend-go/internal/services"
)

type contextKey string

const ctxActor contextKey = "actor"

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func WithAuth(tokens services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			actor, ok := tokens.ActorFromToken(raw)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxActor, actor)))
		})
	}
}

// OptionalAuth attaches the actor when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := bearerToken(r); raw != "" {
				if actor, ok := tokens.ActorFromToken(raw); ok {
					r = r.WithContext(context.WithValue(r.Context(), ctxActor, actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CurrentActor(r *http.Request) services.Actor {
	if actor, ok := r.Context().Value(ctxActor).(services.Actor); ok {
		return actor
	}
	return services.Actor{}
}

func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentActor(r).IsModerator() {
			WriteError(w, http.StatusForbidden, "Not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}
