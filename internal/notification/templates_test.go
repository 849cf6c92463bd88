package notification

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
)

func sampleTask(p task.Priority) *task.Task {
	due := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	return &task.Task{ID: "01TASK", Title: "Ship release", Description: "Tag and publish", Priority: p, DueDate: &due}
}

var alice = &user.User{ID: "user1", Email: "alice@example.com", Name: "Alice"}

func TestRenderSubjectsByPriority(t *testing.T) {
	tmpl, err := NewTemplates("", "https://tasks.example.com/")
	require.NoError(t, err)

	urgent, err := tmpl.Render(sampleTask(task.PriorityUrgent), alice)
	require.NoError(t, err)
	assert.Contains(t, urgent.Subject, "🚨")
	assert.Contains(t, urgent.Subject, "Urgent")
	assert.Contains(t, urgent.Subject, "Ship release")

	high, err := tmpl.Render(sampleTask(task.PriorityHigh), alice)
	require.NoError(t, err)
	assert.Equal(t, "High priority task assigned: Ship release", high.Subject)

	for _, p := range []task.Priority{task.PriorityNormal, task.PriorityLow} {
		msg, err := tmpl.Render(sampleTask(p), alice)
		require.NoError(t, err)
		assert.Equal(t, "New task assigned: Ship release", msg.Subject)
		assert.NotContains(t, msg.Subject, "Urgent")
		assert.NotContains(t, msg.Subject, "🚨")
	}
}

func TestRenderBody(t *testing.T) {
	tmpl, err := NewTemplates("", "https://tasks.example.com/")
	require.NoError(t, err)

	msg, err := tmpl.Render(sampleTask(task.PriorityNormal), alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.Body, "Hello Alice,")
	assert.Contains(t, msg.Body, "Due:      2026-11-02")
	assert.Contains(t, msg.Body, "Tag and publish")
	assert.Contains(t, msg.Body, "https://tasks.example.com/tasks/01TASK")
}

func TestTemplateOverrideAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.subject.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Todo: {{.Task.Title}}"), 0o644))

	tmpl, err := NewTemplates(dir, "http://localhost")
	require.NoError(t, err)

	msg, err := tmpl.Render(sampleTask(task.PriorityNormal), alice)
	require.NoError(t, err)
	assert.Equal(t, "Todo: Ship release", msg.Subject)

	urgent, err := tmpl.Render(sampleTask(task.PriorityUrgent), alice)
	require.NoError(t, err)
	assert.Equal(t, "🚨 Urgent: Ship release", urgent.Subject, "classes without overrides keep the defaults")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tmpl.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("Assigned: {{.Task.Title}}"), 0o644))
	assert.Eventually(t, func() bool {
		msg, err := tmpl.Render(sampleTask(task.PriorityNormal), alice)
		return err == nil && msg.Subject == "Assigned: Ship release"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestBrokenOverrideKeepsPreviousTemplates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.subject.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Todo: {{.Task.Title}}"), 0o644))
	tmpl, err := NewTemplates(dir, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("Todo: {{.Task.Title"), 0o644))
	require.Error(t, tmpl.Reload())

	msg, err := tmpl.Render(sampleTask(task.PriorityNormal), alice)
	require.NoError(t, err)
	assert.Equal(t, "Todo: Ship release", msg.Subject)
}
