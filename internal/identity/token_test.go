package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := NewVerifier("secret", "taskdesk")
	token, err := v.Issue(Actor{ID: "admin-1", Email: "a@example.com", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "admin-1", Email: "a@example.com", Role: RoleAdmin}, ResolveActor(claims))
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret", "taskdesk")
	actor := Actor{ID: "u1", Role: RoleMember}

	other, err := NewVerifier("other-secret", "taskdesk").Issue(actor, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewVerifier("secret", "someone-else").Issue(actor, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := NewVerifier("secret", "taskdesk")
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := past.Issue(actor, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret", "")
	var seen Actor
	h := cerr.NewJSONChiMiddleware()(Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
		cerr.SetJSONResponse(r.Context(), map[string]string{"id": seen.ID})
	})))

	t.Run("anonymous", func(t *testing.T) {
		seen = Actor{ID: "stale"}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, Actor{}, seen)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := v.Issue(Actor{ID: "m-1", Role: RoleMember}, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, RoleMember, seen.Role)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"code":"unauthenticated","message":"Unauthorized"}`, rec.Body.String())
	})
}
