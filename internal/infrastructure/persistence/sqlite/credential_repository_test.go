package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
)

func newTestRepo(t *testing.T) *CredentialRepository {
	t.Helper()

	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return NewRepositories(db).Credential
}

func TestCredentialRepository_SaveAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &repository.CredentialRecord{
		RoutingKey:     "support",
		SlackToken:     "xoxb-support",
		SigningSecret:  "s1",
		WelcomeMessage: "Hello!",
	}))

	rec, err := repo.FindByRoutingKey(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-support", rec.SlackToken)
	assert.Equal(t, "s1", rec.SigningSecret)
	assert.Equal(t, "Hello!", rec.WelcomeMessage)
	assert.Empty(t, rec.LoadingMessage)
}

func TestCredentialRepository_SaveReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &repository.CredentialRecord{RoutingKey: "support", SlackToken: "old", SigningSecret: "s1"}))
	require.NoError(t, repo.Save(ctx, &repository.CredentialRecord{RoutingKey: "support", SlackToken: "new", SigningSecret: "s2"}))

	rec, err := repo.FindByRoutingKey(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.SlackToken)
	assert.Equal(t, "s2", rec.SigningSecret)
}

func TestCredentialRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByRoutingKey(context.Background(), "unknown")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, repo.Ping(context.Background()))
}
