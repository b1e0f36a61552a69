package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/tangled-dev/tangled/internal/composer"
	"github.com/tangled-dev/tangled/internal/feed"
	"github.com/tangled-dev/tangled/internal/handler"
	"github.com/tangled-dev/tangled/internal/markdown"
	"github.com/tangled-dev/tangled/internal/storage"
	"github.com/tangled-dev/tangled/internal/storage/fs"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/jwt"
	mw "github.com/tangled-dev/tangled/shared/middleware"
	"github.com/tangled-dev/tangled/shared/middleware/ratelimiter"
)

var (
	_ composer.ObjectStore   = (*fs.Storage)(nil)
	_ composer.ObjectDeleter = (*fs.Storage)(nil)
	_ handler.MediaStore     = (*fs.Storage)(nil)
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config        *config.Config
	Store         storage.Documents
	Media         *fs.Storage
	Feed          *feed.Feed
	Bus           *feed.Bus
	Jwt           jwt.JwtService
	Auth          *mw.Auth
	Sessions      *composer.Sessions
	Handler       *handler.Handler
	SubmitLimiter *ratelimiter.KeyedLimiter // nil when submissions are not limited
}

// SetupCore opens the stores and the thread feed. CLI commands that only
// post or read use it with lightweight set.
func SetupCore(ctx context.Context, cfg *config.Config, lightweight bool) (*Dependencies, error) {
	store, err := storage.Open(ctx, cfg, lightweight)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Public.Store.Driver, err)
	}

	media, err := fs.New(cfg.Public.Media.Root, cfg.Public.Http.PublicURL)
	if err != nil {
		store.Cleanup()
		return nil, fmt.Errorf("open media root: %w", err)
	}

	rdb := feed.NewRedisClient(cfg.Public.Redis.Addr, cfg.Private.RedisPassword)
	bus := feed.NewBus(rdb, cfg.Public.Redis.Channel)

	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())

	return &Dependencies{
		Config: cfg,
		Store:  store,
		Media:  media,
		Feed:   feed.New(store, cfg.Public.Feed.Limit, bus),
		Bus:    bus,
		Jwt:    jwtService,
		Auth:   mw.NewAuth(jwtService),
	}, nil
}

// SetupDependencies initializes all dependencies required by the server.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps, err := SetupCore(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	deps.Sessions = composer.NewSessions(cfg.Public.Composer.SessionTTL, cfg.Public.Composer.MaxSessions, func() *composer.Composer {
		return deps.NewComposer(nil)
	})
	if n := cfg.Public.RateLimit.SubmitsPerMinute; n > 0 {
		deps.SubmitLimiter = ratelimiter.PerMinute(n)
	}
	deps.Handler = handler.New(deps.Sessions, deps.Feed, deps.Media, markdown.New(), cfg.Public)
	return deps, nil
}

// NewComposer builds a composer over the configured stores. picker may be
// nil when files are handed to SelectImage directly.
func (d *Dependencies) NewComposer(picker composer.FilePicker) *composer.Composer {
	cc := d.Config.Public.Composer
	profiles := composer.NewProfileResolver(cc.ProfileSource, d.Store)
	return composer.New(d.Store, d.Media, profiles, d.Feed.Refresh, composer.Options{
		KeyPrefix:   d.Config.Public.Media.KeyPrefix,
		InitLikedBy: cc.InitLikedBy,
		UploadWait:  cc.UploadWait,
		Picker:      picker,
	})
}

// Close releases everything SetupCore and SetupDependencies opened.
func (d *Dependencies) Close() error {
	if d.Sessions != nil {
		d.Sessions.Stop()
	}
	if d.SubmitLimiter != nil {
		d.SubmitLimiter.Stop()
	}
	return errors.Join(d.Bus.Close(), d.Store.Cleanup())
}
