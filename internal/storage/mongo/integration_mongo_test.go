package mongo

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var storage *Storage

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to obtain connection string: %s", err)
	}

	cfg := &config.Config{
		Public:  config.Public{Mongo: config.Defaults().Mongo},
		Private: config.Private{MongoURI: uri},
	}
	storage, err = New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to mongo container: %s", err)
	}

	exitCode := m.Run()

	if err := storage.Cleanup(); err != nil {
		log.Printf("failed to disconnect: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(exitCode)
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if storage == nil {
		t.Skip("integration test skipped in short mode")
	}
}

func TestCreateThread(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond)
	owner := "u1"

	t.Run("document fields", func(t *testing.T) {
		id, err := storage.CreateThread(ctx, domain.Thread{
			Body: "hello", CreatedTime: created, Image: "https://x/i.png", OwnerId: &owner, LikedBy: []domain.UserId{},
		})
		require.NoError(t, err)

		oid, err := bson.ObjectIDFromHex(id)
		require.NoError(t, err)
		var raw bson.M
		require.NoError(t, storage.threads.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&raw))

		assert.Equal(t, "hello", raw["body"])
		assert.Equal(t, "https://x/i.png", raw["image"])
		assert.Equal(t, "u1", raw["owner_id"])
		assert.EqualValues(t, 0, raw["likes_count"])
		likedBy, hasLikedBy := raw["liked_by"]
		assert.True(t, hasLikedBy)
		assert.Empty(t, likedBy)
	})

	t.Run("anonymous without liked_by", func(t *testing.T) {
		id, err := storage.CreateThread(ctx, domain.Thread{Body: "anon", CreatedTime: created})
		require.NoError(t, err)

		oid, err := bson.ObjectIDFromHex(id)
		require.NoError(t, err)
		var raw bson.M
		require.NoError(t, storage.threads.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&raw))

		assert.Nil(t, raw["owner_id"])
		_, hasLikedBy := raw["liked_by"]
		assert.False(t, hasLikedBy)
		assert.Equal(t, "", raw["image"])
	})
}

func TestRecentThreads(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	newestID, err := storage.CreateThread(ctx, domain.Thread{Body: "newest", CreatedTime: future})
	require.NoError(t, err)

	threads, err := storage.RecentThreads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, newestID, threads[0].Id)
	assert.True(t, threads[0].CreatedTime.Equal(future))
	assert.Nil(t, threads[0].OwnerId)
	assert.Nil(t, threads[0].LikedBy)
}

func TestProfiles(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	p, err := storage.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, storage.PutProfile(ctx, "u7", domain.Profile{DisplayName: "Mia", AvatarURL: "https://a/m.png"}))
	p, err = storage.GetProfile(ctx, "u7")
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{DisplayName: "Mia", AvatarURL: "https://a/m.png"}, p)
}
