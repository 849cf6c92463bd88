package task_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	userrepo "github.com/kazz187/taskdesk/internal/user/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

// storedFixture runs the task flows against YAML repositories on local
// storage instead of the in-memory fakes.
type storedFixture struct {
	storage storage.Storage
	tasks   *taskrepo.YAMLRepository
	mailer  *recordingMailer
	wf      *task.CreateWorkflow
}

func newStoredFixture(t *testing.T, users ...*user.User) *storedFixture {
	t.Helper()
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	dir := userrepo.NewYAMLRepository(s)
	for _, u := range users {
		require.NoError(t, dir.Create(ctx, u))
	}
	tmpl, err := notification.NewTemplates("", "http://localhost:5173")
	require.NoError(t, err)
	f := &storedFixture{storage: s, tasks: taskrepo.NewYAMLRepository(s), mailer: &recordingMailer{}}
	f.wf = task.NewCreateWorkflow(
		f.tasks,
		user.NewResolver(dir, 4),
		notification.NewDispatcher(f.mailer, tmpl, nil, 4),
		task.NewValidator(),
	)
	return f
}

func (f *storedFixture) taskCount(t *testing.T) int {
	t.Helper()
	paths, err := f.storage.List(context.Background(), "tasks")
	require.NoError(t, err)
	return len(paths)
}

func TestCreateRejectsPathLikeAssignees(t *testing.T) {
	f := newStoredFixture(t, activeUser("user1"))

	_, err := f.wf.Create(context.Background(), admin,
		[]byte(`{"title":"Test","assignedTo":["user1","../users/user1","./user1"]}`))
	ce := requireCode(t, err, cerr.InvalidArgument, "Invalid assignees")
	assert.Equal(t, []string{"../users/user1", "./user1"}, ce.Details)
	assert.Zero(t, f.taskCount(t))
	assert.Empty(t, f.mailer.recipients())

	_, err = f.wf.Create(context.Background(), admin,
		[]byte(`{"title":"Test","assignedTo":["../../../etc/nope"]}`))
	requireCode(t, err, cerr.InvalidArgument, "Invalid assignees")
	assert.Zero(t, f.taskCount(t))
}

func TestCreateOnStorageSendsOneEmailPerUser(t *testing.T) {
	f := newStoredFixture(t, activeUser("user1"), activeUser("user2"))

	got, err := f.wf.Create(context.Background(), admin,
		[]byte(`{"title":"Test","assignedTo":["user1","user2","user1"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2"}, got.AssignedTo)
	assert.ElementsMatch(t, []string{"user1@example.com", "user2@example.com"}, f.mailer.recipients())
	assert.Equal(t, 1, f.taskCount(t))
}

// send is safe to call from several goroutines.
func send(t *testing.T, h http.Handler, actor identity.Actor, method, target, body string) int {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	raw, err := json.Marshal(actor)
	if !assert.NoError(t, err) {
		return 0
	}
	req.Header.Set("X-Test-Actor", string(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestConcurrentCommentsAreAllStored(t *testing.T) {
	ctx := context.Background()
	f := newStoredFixture(t, activeUser("user1"))
	created, err := f.wf.Create(ctx, admin, []byte(`{"title":"Shared","assignedTo":["user1"]}`))
	require.NoError(t, err)
	api := mountAPI(t, task.NewServer(f.tasks, f.wf, task.NewValidator(), nil))

	const writers = 30
	target := "/tasks/" + created.ID + "/comments"
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := member
			if i%2 == 0 {
				actor = admin
			}
			code := send(t, api.router, actor, http.MethodPost, target, fmt.Sprintf(`{"text":"comment %d"}`, i))
			assert.Equal(t, http.StatusCreated, code)
		}()
	}
	wg.Wait()

	stored, err := f.tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, writers)
	texts := make([]string, 0, writers)
	for _, c := range stored.Comments {
		texts = append(texts, c.Text)
	}
	for i := range writers {
		assert.Contains(t, texts, fmt.Sprintf("comment %d", i))
	}
}

func TestConcurrentStatusAndCommentKeepBoth(t *testing.T) {
	ctx := context.Background()
	f := newStoredFixture(t, activeUser("user1"))
	created, err := f.wf.Create(ctx, admin, []byte(`{"title":"Shared","assignedTo":["user1"]}`))
	require.NoError(t, err)
	api := mountAPI(t, task.NewServer(f.tasks, f.wf, task.NewValidator(), nil))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		code := send(t, api.router, member, http.MethodPatch, "/tasks/"+created.ID+"/status", `{"status":"Completed"}`)
		assert.Equal(t, http.StatusOK, code)
	}()
	go func() {
		defer wg.Done()
		code := send(t, api.router, admin, http.MethodPost, "/tasks/"+created.ID+"/comments", `{"text":"ship it"}`)
		assert.Equal(t, http.StatusCreated, code)
	}()
	wg.Wait()

	stored, err := f.tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "ship it", stored.Comments[0].Text)
}
