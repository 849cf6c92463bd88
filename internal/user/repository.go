package user

import "context"

// Repository is the user directory. Get returns a cerr NotFound error for
// unknown ids.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
}
