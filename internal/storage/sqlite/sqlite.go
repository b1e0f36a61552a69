// Package sqlite stores threads and profiles in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tangled-dev/tangled/shared/domain"
	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id           TEXT PRIMARY KEY,
	body         TEXT NOT NULL,
	created_time INTEGER NOT NULL,
	image        TEXT NOT NULL DEFAULT '',
	owner_id     TEXT,
	likes_count  INTEGER NOT NULL DEFAULT 0,
	liked_by     TEXT
);
CREATE INDEX IF NOT EXISTS threads_created_time_idx ON threads (created_time DESC);
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	user_name TEXT NOT NULL DEFAULT '',
	image     TEXT NOT NULL DEFAULT ''
);`

type Storage struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" works for tests.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	// one connection: pragmas apply to it and writers never contend
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) CreateThread(ctx context.Context, thread domain.Thread) (domain.ThreadId, error) {
	likedBy, err := encodeLikedBy(thread.LikedBy)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, body, created_time, image, owner_id, likes_count, liked_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, thread.Body, thread.CreatedTime.UnixMilli(), thread.Image,
		nullString(thread.OwnerId), thread.LikesCount, likedBy,
	)
	if err != nil {
		return "", fmt.Errorf("insert thread: %w", err)
	}
	return id, nil
}

func (s *Storage) RecentThreads(ctx context.Context, limit int) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, created_time, image, owner_id, likes_count, liked_by
		FROM threads
		ORDER BY created_time DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var (
			t       domain.Thread
			created int64
			owner   sql.NullString
			likedBy sql.NullString
		)
		if err := rows.Scan(&t.Id, &t.Body, &created, &t.Image, &owner, &t.LikesCount, &likedBy); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		t.CreatedTime = time.UnixMilli(created).UTC()
		if owner.Valid {
			t.OwnerId = &owner.String
		}
		if likedBy.Valid {
			if err := json.Unmarshal([]byte(likedBy.String), &t.LikedBy); err != nil {
				return nil, fmt.Errorf("decode liked_by of %s: %w", t.Id, err)
			}
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

func (s *Storage) GetProfile(ctx context.Context, id domain.UserId) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx, `SELECT user_name, image FROM users WHERE id = ?`, id).
		Scan(&p.DisplayName, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return &p, nil
}

func (s *Storage) PutProfile(ctx context.Context, id domain.UserId, profile domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, user_name, image) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET user_name = excluded.user_name, image = excluded.image`,
		id, profile.DisplayName, profile.AvatarURL)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// encodeLikedBy keeps the difference between a missing field (NULL) and an empty set ("[]").
func encodeLikedBy(ids []domain.UserId) (sql.NullString, error) {
	if ids == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode liked_by: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
