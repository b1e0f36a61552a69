// Package storage opens the document store selected by store.driver.
package storage

import (
	"context"
	"fmt"

	"github.com/tangled-dev/tangled/internal/storage/mongo"
	"github.com/tangled-dev/tangled/internal/storage/pg"
	"github.com/tangled-dev/tangled/internal/storage/sqlite"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
)

// Documents is the document database: the threads collection and the
// users collection.
type Documents interface {
	CreateThread(ctx context.Context, thread domain.Thread) (domain.ThreadId, error)
	RecentThreads(ctx context.Context, limit int) ([]domain.Thread, error)
	GetProfile(ctx context.Context, id domain.UserId) (*domain.Profile, error)
	PutProfile(ctx context.Context, id domain.UserId, profile domain.Profile) error
	Cleanup() error
}

var (
	_ Documents = (*mongo.Storage)(nil)
	_ Documents = (*pg.Storage)(nil)
	_ Documents = (*sqlite.Storage)(nil)
)

// Open connects to the configured driver. lightweight picks a small
// connection pool for short-lived CLI commands.
func Open(ctx context.Context, cfg *config.Config, lightweight bool) (Documents, error) {
	var (
		docs Documents
		err  error
	)
	switch cfg.Public.Store.Driver {
	case config.DriverMongo:
		docs, err = mongo.New(ctx, cfg)
	case config.DriverPostgres:
		connCfg := pg.DefaultConnectionConfig()
		if lightweight {
			connCfg = pg.LightweightConnectionConfig()
		}
		docs, err = pg.New(ctx, cfg, connCfg)
	case config.DriverSQLite:
		docs, err = sqlite.Open(ctx, cfg.Public.Sqlite.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Public.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}
