package event

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

func newStreamServer(t *testing.T, bus *Bus, actor identity.Actor) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(cerr.NewJSONChiMiddleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.ContextWithActor(r.Context(), actor)))
		})
	})
	NewServer(bus).Mount(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

// nextData returns the payload of the next "data:" line in the stream.
func nextData(t *testing.T, sc *bufio.Scanner) string {
	t.Helper()
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			return data
		}
	}
	require.NoError(t, sc.Err())
	t.Fatal("stream ended")
	return ""
}

func TestSubscribeEvents_StreamsVisibleEvents(t *testing.T) {
	bus := NewBus()
	member := identity.Actor{ID: "user-1", Role: identity.RoleMember}
	ts := newStreamServer(t, bus, member)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?type=task.status_changed", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Equal(t, 1, bus.Subscribers())

	bus.Publish(New(TaskStatusChanged, "task-hidden", "admin", []string{"user-2"}, nil))
	bus.Publish(New(TaskCommented, "task-1", "admin", []string{"user-1"}, nil))
	bus.Publish(New(TaskStatusChanged, "task-1", "admin", []string{"user-1"}, map[string]string{"status": "Completed"}))

	var got Event
	require.NoError(t, json.Unmarshal([]byte(nextData(t, bufio.NewScanner(resp.Body))), &got))
	assert.Equal(t, TaskStatusChanged, got.Type)
	assert.Equal(t, "task-1", got.ResourceID)
	assert.Equal(t, "Completed", got.Metadata["status"])
	assert.Nil(t, got.Audience)
}

func TestSubscribeEvents_RequiresAuthentication(t *testing.T) {
	bus := NewBus()
	ts := newStreamServer(t, bus, identity.Actor{})

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, bus.Subscribers())
}

func TestSubscribeEvents_UnsubscribesOnDisconnect(t *testing.T) {
	bus := NewBus()
	ts := newStreamServer(t, bus, identity.Actor{ID: "boss", Role: identity.RoleAdmin})

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 1, bus.Subscribers())

	cancel()
	resp.Body.Close()

	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
