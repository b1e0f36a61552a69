package pg

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tangled-dev/tangled/shared/domain"
)

func newMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateThread(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	insert := regexp.QuoteMeta("INSERT INTO threads (id, body, created_time, image, owner_id, likes_count, liked_by)")

	t.Run("anonymous without liked_by", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(insert).
			WithArgs(sqlmock.AnyArg(), "hello", created, "", nil, 0, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("8d6f..."))

		id, err := s.CreateThread(ctx, domain.Thread{Body: "hello", CreatedTime: created})

		require.NoError(t, err)
		assert.Equal(t, "8d6f...", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner and empty liked_by", func(t *testing.T) {
		s, mock := newMock(t)
		owner := "u1"
		mock.ExpectQuery(insert).
			WithArgs(sqlmock.AnyArg(), "hi", created, "https://x/img", "u1", 0, "{}").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-2"))

		_, err := s.CreateThread(ctx, domain.Thread{
			Body: "hi", CreatedTime: created, Image: "https://x/img",
			OwnerId: &owner, LikedBy: []domain.UserId{},
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(insert).WillReturnError(errors.New("disk full"))

		_, err := s.CreateThread(ctx, domain.Thread{Body: "x", CreatedTime: created})

		assert.ErrorContains(t, err, "disk full")
	})
}

func TestRecentThreads(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "body", "created_time", "image", "owner_id", "likes_count", "liked_by"}).
		AddRow("a", "newest", now, "", "u1", 3, "{u2}").
		AddRow("b", "older", now.Add(-time.Hour), "https://x/i", nil, 0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM threads")).WithArgs(10).WillReturnRows(rows)

	threads, err := s.RecentThreads(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "newest", threads[0].Body)
	require.NotNil(t, threads[0].OwnerId)
	assert.Equal(t, "u1", *threads[0].OwnerId)
	assert.Equal(t, []domain.UserId{"u2"}, threads[0].LikedBy)
	assert.Nil(t, threads[1].OwnerId)
	assert.Nil(t, threads[1].LikedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile(t *testing.T) {
	query := regexp.QuoteMeta("SELECT user_name, image FROM users WHERE id = $1")

	t.Run("found", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"user_name", "image"}).AddRow("Ada", "https://a/ada.png"))

		p, err := s.GetProfile(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, &domain.Profile{DisplayName: "Ada", AvatarURL: "https://a/ada.png"}, p)
	})

	t.Run("absent", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

		p, err := s.GetProfile(context.Background(), "nobody")

		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("error", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(query).WithArgs("u1").WillReturnError(errors.New("conn reset"))

		_, err := s.GetProfile(context.Background(), "u1")

		assert.Error(t, err)
	})
}

func TestPutProfile(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, user_name, image)")).
		WithArgs("u1", "Ada", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.PutProfile(context.Background(), "u1", domain.Profile{DisplayName: "Ada"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS threads")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
