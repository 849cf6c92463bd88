package identity

import (
	"net/http"
	"strings"

	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

// Middleware resolves the actor for every request. A request without a
// bearer token continues as the anonymous actor so that authorization stays
// with the handlers; a token that fails verification is rejected with 401.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(ContextWithActor(ctx, Actor{})))
				return
			}
			claims, err := v.Verify(raw)
			if err != nil {
				cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "Unauthorized", err)
				return
			}
			actor := ResolveActor(claims)
			clog.AddAttributes(ctx, map[string]any{
				"actor.id":   actor.ID,
				"actor.role": string(actor.Role),
			})
			next.ServeHTTP(w, r.WithContext(ContextWithActor(ctx, actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuthenticated rejects anonymous actors with 401.
func RequireAuthenticated(r *http.Request) (Actor, bool) {
	actor := ActorFromContext(r.Context())
	if !actor.Authenticated() {
		cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "Unauthorized", nil)
		return actor, false
	}
	return actor, true
}

// RequireAdmin rejects everyone but admins; anonymous actors get 401.
func RequireAdmin(r *http.Request) (Actor, bool) {
	actor, ok := RequireAuthenticated(r)
	if !ok {
		return actor, false
	}
	if !actor.IsAdmin() {
		cerr.SetNewJSONError(r.Context(), cerr.PermissionDenied, "Admin role required", nil)
		return actor, false
	}
	return actor, true
}
