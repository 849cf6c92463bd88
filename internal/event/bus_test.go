package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/identity"
)

func TestBus_PublishReachesEverySubscriber(t *testing.T) {
	b := NewBus()
	id1, ch1 := b.Subscribe(1)
	id2, ch2 := b.Subscribe(1)
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	e := New(TaskCreated, "task-1", "admin-1", []string{"user-1"}, nil)
	b.Publish(e)

	assert.Same(t, e, <-ch1)
	assert.Same(t, e, <-ch2)
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe(1)
	defer b.Unsubscribe(id)

	b.Publish(New(TaskCreated, "task-1", "", nil, nil))
	b.Publish(New(TaskCreated, "task-2", "", nil, nil))

	got := <-ch
	assert.Equal(t, "task-1", got.ResourceID)
	assert.Empty(t, ch)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe(1)
	require.Equal(t, 1, b.Subscribers())

	b.Unsubscribe(id)
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, b.Subscribers())
}

func TestEvent_VisibleTo(t *testing.T) {
	e := New(TaskStatusChanged, "task-1", "user-1", []string{"user-1", "user-2"}, nil)

	assert.True(t, e.VisibleTo(identity.Actor{ID: "boss", Role: identity.RoleAdmin}))
	assert.True(t, e.VisibleTo(identity.Actor{ID: "user-2", Role: identity.RoleMember}))
	assert.False(t, e.VisibleTo(identity.Actor{ID: "user-3", Role: identity.RoleMember}))
	assert.False(t, e.VisibleTo(identity.Actor{}))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Publish(New(TaskCreated, "task-1", "", nil, nil))
	})
}
