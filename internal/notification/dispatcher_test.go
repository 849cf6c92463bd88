package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/pushnotification"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []Message
	fail  map[string]error
	panic map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg Message) (string, error) {
	if m.panic[msg.To] {
		panic("smtp exploded")
	}
	if err := m.fail[msg.To]; err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return "id-" + msg.To, nil
}

type fakePusher struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (p *fakePusher) SendToUser(_ context.Context, userID string, _ *pushnotification.NotificationPayload) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

func users(ids ...string) []*user.User {
	out := make([]*user.User, len(ids))
	for i, id := range ids {
		out[i] = &user.User{ID: id, Email: id + "@example.com"}
	}
	return out
}

func newDispatcher(t *testing.T, m Mailer, p Pusher) *Dispatcher {
	t.Helper()
	tmpl, err := NewTemplates("", "http://localhost")
	require.NoError(t, err)
	return NewDispatcher(m, tmpl, p, 2)
}

func TestNotifySendsOnePerAssignee(t *testing.T) {
	m := &fakeMailer{}
	p := &fakePusher{}
	d := newDispatcher(t, m, p)

	err := d.Notify(context.Background(), sampleTask(task.PriorityNormal), users("u1", "u2", "u3"))
	require.NoError(t, err)

	var to []string
	for _, msg := range m.sent {
		to = append(to, msg.To)
	}
	assert.ElementsMatch(t, []string{"u1@example.com", "u2@example.com", "u3@example.com"}, to)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, p.users)
}

func TestNotifyAggregatesFailures(t *testing.T) {
	boom := errors.New("mailbox unavailable")
	m := &fakeMailer{
		fail:  map[string]error{"u2@example.com": boom},
		panic: map[string]bool{"u3@example.com": true},
	}
	p := &fakePusher{}
	d := newDispatcher(t, m, p)

	err := d.Notify(context.Background(), sampleTask(task.PriorityHigh), users("u1", "u2", "u3"))
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"u2", "u3"}, de.FailedUserIDs())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "smtp exploded")

	require.Len(t, m.sent, 1)
	assert.Equal(t, "u1@example.com", m.sent[0].To)
	assert.Equal(t, []string{"u1"}, p.users, "push only follows a delivered email")
}

func TestNotifyWithoutPusher(t *testing.T) {
	m := &fakeMailer{}
	d := newDispatcher(t, m, nil)

	require.NoError(t, d.Notify(context.Background(), sampleTask(task.PriorityUrgent), users("u1")))
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Subject, "Urgent")
}

func TestNotifyIgnoresPushFailures(t *testing.T) {
	m := &fakeMailer{}
	p := &fakePusher{err: errors.New("push service unavailable")}
	d := newDispatcher(t, m, p)

	err := d.Notify(context.Background(), sampleTask(task.PriorityNormal), users("u1", "u2"))
	require.NoError(t, err)

	var to []string
	for _, msg := range m.sent {
		to = append(to, msg.To)
	}
	assert.ElementsMatch(t, []string{"u1@example.com", "u2@example.com"}, to)
	assert.ElementsMatch(t, []string{"u1", "u2"}, p.users)
}
