package composer

import (
	"context"

	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
)

// ProfileResolver supplies the name and avatar shown at the top of the form.
type ProfileResolver interface {
	Resolve(ctx context.Context, user *domain.User) *domain.Profile
}

// ContextProfiles uses the profile claims of the identity already in the
// request. Nothing is fetched.
type ContextProfiles struct{}

func (ContextProfiles) Resolve(_ context.Context, user *domain.User) *domain.Profile {
	return user.Profile()
}

type ProfileReader interface {
	GetProfile(ctx context.Context, id domain.UserId) (*domain.Profile, error)
}

// StoreProfiles reads the users document of the signed-in user.
// Failures and missing documents are logged and yield nil.
type StoreProfiles struct {
	Store ProfileReader
}

func (s StoreProfiles) Resolve(ctx context.Context, user *domain.User) *domain.Profile {
	if user == nil {
		return nil
	}
	profile, err := s.Store.GetProfile(ctx, user.Id)
	if err != nil {
		logger.Log.Error("failed to read profile", "user_id", user.Id, "error", err)
		return nil
	}
	if profile == nil {
		logger.Log.Info("no profile for user", "user_id", user.Id)
	}
	return profile
}

// NewProfileResolver picks the strategy named by composer.profile_source.
func NewProfileResolver(source string, store ProfileReader) ProfileResolver {
	if source == config.ProfileFromStore {
		return StoreProfiles{Store: store}
	}
	return ContextProfiles{}
}
