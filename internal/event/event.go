package event

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/identity"
)

type Type string

const (
	TaskCreated            Type = "task.created"
	TaskStatusChanged      Type = "task.status_changed"
	TaskCommented          Type = "task.commented"
	TaskNotificationFailed Type = "task.notification_failed"
)

// Event is one change to a task. Audience lists the users besides admins
// that may observe it.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	ResourceID string            `json:"resourceId"`
	ActorID    string            `json:"actorId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Audience   []string          `json:"-"`
}

func New(typ Type, resourceID, actorID string, audience []string, metadata map[string]string) *Event {
	return &Event{
		ID:         ulid.Make().String(),
		Type:       typ,
		ResourceID: resourceID,
		ActorID:    actorID,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
		Audience:   audience,
	}
}

func (e *Event) VisibleTo(actor identity.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Authenticated() && slices.Contains(e.Audience, actor.ID)
}

// Publisher accepts events. Publish must not block.
type Publisher interface {
	Publish(e *Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*Event) {}

// Discard drops every event.
var Discard Publisher = nopPublisher{}
