package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveActor(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   Actor
	}{
		{
			name:   "admin",
			claims: Claims{"sub": "admin-1", "email": "a@example.com", "role": "admin"},
			want:   Actor{ID: "admin-1", Email: "a@example.com", Role: RoleAdmin},
		},
		{
			name:   "provider custom attribute",
			claims: Claims{"sub": "m-1", "custom:role": "Member"},
			want:   Actor{ID: "m-1", Role: RoleMember},
		},
		{
			name:   "unknown role",
			claims: Claims{"sub": "x", "role": "superuser"},
			want:   Actor{ID: "x", Role: RoleUnknown},
		},
		{
			name:   "malformed claim types",
			claims: Claims{"sub": 42, "role": []string{"admin"}},
			want:   Actor{},
		},
		{
			name:   "nil claims",
			claims: nil,
			want:   Actor{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveActor(tt.claims))
		})
	}
}

func TestActorContext(t *testing.T) {
	assert.Equal(t, Actor{}, ActorFromContext(context.Background()))

	ctx := ContextWithActor(context.Background(), Actor{ID: "u1", Role: RoleMember})
	got := ActorFromContext(ctx)
	assert.True(t, got.Authenticated())
	assert.False(t, got.IsAdmin())
}
