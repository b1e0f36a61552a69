// Package pg stores threads and profiles in PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id           UUID PRIMARY KEY,
	body         TEXT NOT NULL,
	created_time TIMESTAMPTZ NOT NULL,
	image        TEXT NOT NULL DEFAULT '',
	owner_id     TEXT,
	likes_count  INTEGER NOT NULL DEFAULT 0,
	liked_by     TEXT[]
);
CREATE INDEX IF NOT EXISTS threads_created_time_idx ON threads (created_time DESC);
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	user_name TEXT NOT NULL DEFAULT '',
	image     TEXT NOT NULL DEFAULT ''
);`

// ConnectionConfig holds database connection pool settings.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// LightweightConnectionConfig suits one-shot CLI commands.
func LightweightConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

type Storage struct {
	db *sql.DB
}

func New(ctx context.Context, cfg *config.Config, connCfg ConnectionConfig) (*Storage, error) {
	logger.Log.Info("connecting to postgres", "host", cfg.Private.Pg.Host, "dbname", cfg.Private.Pg.Dbname)
	db, err := Connect(ctx, cfg, connCfg)
	if err != nil {
		return nil, err
	}
	s := NewWithDB(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Log.Info("connected to postgres")
	return s, nil
}

// NewWithDB wraps an open connection without touching the schema.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func Connect(ctx context.Context, cfg *config.Config, connCfg ConnectionConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Private.Pg.Host, cfg.Private.Pg.Port,
		cfg.Private.Pg.User, cfg.Private.Pg.Password,
		cfg.Private.Pg.Dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(connCfg.MaxOpenConns)
	db.SetMaxIdleConns(connCfg.MaxIdleConns)
	db.SetConnMaxLifetime(connCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(connCfg.ConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) CreateThread(ctx context.Context, thread domain.Thread) (domain.ThreadId, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO threads (id, body, created_time, image, owner_id, likes_count, liked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		uuid.NewString(), thread.Body, thread.CreatedTime, thread.Image,
		nullString(thread.OwnerId), thread.LikesCount, pq.Array(thread.LikedBy),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert thread: %w", err)
	}
	return id, nil
}

func (s *Storage) RecentThreads(ctx context.Context, limit int) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, created_time, image, owner_id, likes_count, liked_by
		FROM threads
		ORDER BY created_time DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var (
			t       domain.Thread
			owner   sql.NullString
			likedBy pq.StringArray
		)
		if err := rows.Scan(&t.Id, &t.Body, &t.CreatedTime, &t.Image, &owner, &t.LikesCount, &likedBy); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		if owner.Valid {
			t.OwnerId = &owner.String
		}
		if likedBy != nil {
			t.LikedBy = []domain.UserId(likedBy)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}
	return threads, nil
}

// GetProfile returns (nil, nil) when the user has no profile row.
func (s *Storage) GetProfile(ctx context.Context, id domain.UserId) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx, `SELECT user_name, image FROM users WHERE id = $1`, id).
		Scan(&p.DisplayName, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return &p, nil
}

func (s *Storage) PutProfile(ctx context.Context, id domain.UserId, profile domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, user_name, image) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET user_name = EXCLUDED.user_name, image = EXCLUDED.image`,
		id, profile.DisplayName, profile.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
