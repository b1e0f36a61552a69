package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tangled-dev/tangled/shared/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tangled.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Cleanup() })
	return s
}

func TestThreads(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	owner := "u1"

	firstID, err := s.CreateThread(ctx, domain.Thread{Body: "first", CreatedTime: base})
	require.NoError(t, err)
	secondID, err := s.CreateThread(ctx, domain.Thread{
		Body: "second", CreatedTime: base.Add(time.Minute), Image: "https://x/a.png",
		OwnerId: &owner, LikedBy: []domain.UserId{},
	})
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	threads, err := s.RecentThreads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, domain.Thread{
		Id: secondID, Body: "second", CreatedTime: base.Add(time.Minute), Image: "https://x/a.png",
		OwnerId: &owner, LikesCount: 0, LikedBy: []domain.UserId{},
	}, threads[0])
	assert.Equal(t, domain.Thread{Id: firstID, Body: "first", CreatedTime: base}, threads[1])

	limited, err := s.RecentThreads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, secondID, limited[0].Id)
}

func TestRecentThreadsEmpty(t *testing.T) {
	threads, err := newTestStorage(t).RecentThreads(context.Background(), 5)

	require.NoError(t, err)
	assert.NotNil(t, threads)
	assert.Empty(t, threads)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.PutProfile(ctx, "u1", domain.Profile{DisplayName: "Ada", AvatarURL: "https://a/1.png"}))
	require.NoError(t, s.PutProfile(ctx, "u1", domain.Profile{DisplayName: "Ada L.", AvatarURL: "https://a/2.png"}))

	p, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{DisplayName: "Ada L.", AvatarURL: "https://a/2.png"}, p)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tangled.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.CreateThread(ctx, domain.Thread{Body: "persisted", CreatedTime: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.Cleanup())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Cleanup()
	threads, err := s.RecentThreads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "persisted", threads[0].Body)
}
