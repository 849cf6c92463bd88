// Package identity turns the verified claims of an inbound request into the
// acting user.
package identity

import (
	"context"
	"strings"
)

type Role string

const (
	// RoleUnknown is used when the claims carry no recognizable role. It is
	// never granted anything.
	RoleUnknown Role = ""
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
)

func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleMember:
		return RoleMember
	default:
		return RoleUnknown
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// Claims are verified identity claims as decoded from the token payload.
type Claims map[string]any

// roleClaims lists where identity providers put the role, in lookup order.
var roleClaims = []string{"role", "custom:role"}

// ResolveActor extracts the actor from verified claims. Missing or malformed
// claims degrade to an anonymous actor with RoleUnknown.
func ResolveActor(claims Claims) Actor {
	var a Actor
	if claims == nil {
		return a
	}
	a.ID = stringClaim(claims, "sub")
	a.Email = stringClaim(claims, "email")
	for _, key := range roleClaims {
		if role := ParseRole(stringClaim(claims, key)); role != RoleUnknown {
			a.Role = role
			break
		}
	}
	return a
}

func stringClaim(claims Claims, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored by the middleware, or the
// anonymous actor.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
