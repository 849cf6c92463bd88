package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewYAMLRepository(s)

	for i, owner := range []string{"user1", "user2", "user1"} {
		require.NoError(t, repo.Create(ctx, &pushsubscription.Subscription{
			ID:        string(rune('a' + i)),
			UserID:    owner,
			Endpoint:  "https://push.example.com/" + string(rune('a'+i)),
			CreatedAt: time.Now(),
		}))
	}

	subs, err := repo.ListByUser(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a", subs[0].ID)
	assert.Equal(t, "c", subs[1].ID)

	found, err := repo.FindByEndpoint(ctx, "https://push.example.com/b")
	require.NoError(t, err)
	assert.Equal(t, "user2", found.UserID)

	require.NoError(t, repo.Delete(ctx, "b"))
	_, err = repo.FindByEndpoint(ctx, "https://push.example.com/b")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "b"), cerr.NotFound))
}
