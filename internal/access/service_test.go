// Project access tests in Tracker.

package access

import (
	"Tracker/internal/entity"
	"Tracker/internal/test"
	"Tracker/pkg/log"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func seedProject(t *testing.T, repo Repository) {
	t.Helper()
	logger := log.NewNop()
	require.NoError(t, repo.SetProject(ctx, logger, entity.Project{ID: "1", Name: "Tracker", OwnerID: 10}))
	require.NoError(t, repo.AddMember(ctx, logger, "1", 11))
	require.NoError(t, repo.SetProject(ctx, logger, entity.Project{ID: "2", Name: "Other", OwnerID: 20}))
}

func TestAuthorize(t *testing.T) {
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	seedProject(t, repo)
	svc := NewService(repo, log.NewNop())

	tests := map[string]struct {
		user  entity.UserID
		group entity.GroupKey
		want  bool
	}{
		"owner":              {10, entity.GroupFor("1"), true},
		"member":             {11, entity.GroupFor("1"), true},
		"stranger":           {12, entity.GroupFor("1"), false},
		"member elsewhere":   {11, entity.GroupFor("2"), false},
		"missing project":    {10, entity.GroupFor("99"), false},
		"malformed group":    {10, "1", false},
		"anonymous identity": {0, entity.GroupFor("1"), false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			allowed, err := svc.Authorize(ctx, entity.Identity{ID: tc.user}, tc.group)
			require.NoError(t, err)
			assert.Equal(t, tc.want, allowed)
		})
	}
}

func TestAuthorizeAfterMembershipChange(t *testing.T) {
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	seedProject(t, repo)
	svc := NewService(repo, log.NewNop())

	require.NoError(t, repo.RemoveMember(ctx, log.NewNop(), "1", 11))
	allowed, err := svc.Authorize(ctx, entity.Identity{ID: 11}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, repo.AddMember(ctx, log.NewNop(), "2", 11))
	allowed, err = svc.Authorize(ctx, entity.Identity{ID: 11}, entity.GroupFor("2"))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAuthorizeLookupError(t *testing.T) {
	client, server := test.MockRedis(t)
	repo := NewRepository(client)
	seedProject(t, repo)
	server.Close()

	allowed, err := NewService(repo, log.NewNop()).Authorize(ctx, entity.Identity{ID: 10}, entity.GroupFor("1"))
	assert.ErrorIs(t, err, ErrLookup)
	assert.False(t, allowed)
}

func TestHasProject(t *testing.T) {
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	seedProject(t, repo)

	ok, err := repo.HasProject(ctx, log.NewNop(), "1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.HasProject(ctx, log.NewNop(), "3")
	require.NoError(t, err)
	assert.False(t, ok)
}
