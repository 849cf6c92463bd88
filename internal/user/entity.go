package user

import (
	"time"

	"github.com/kazz187/taskdesk/internal/identity"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// User is a directory entry. The task workflow only reads it.
type User struct {
	ID        string        `yaml:"id" json:"userId"`
	Email     string        `yaml:"email" json:"email"`
	Name      string        `yaml:"name" json:"name,omitempty"`
	Role      identity.Role `yaml:"role" json:"role"`
	Status    Status        `yaml:"status" json:"status"`
	CreatedAt time.Time     `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `yaml:"updated_at" json:"updatedAt"`
}

func (u *User) Active() bool {
	return u.Status == StatusActive
}
