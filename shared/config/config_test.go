package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600))
	return dir
}

func TestMustLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, "store:\n  driver: sqlite\n", "jwt_key: 'k'\n")

	cfg := MustLoad(dir)

	assert.Equal(t, DriverSQLite, cfg.Public.Store.Driver)
	assert.Equal(t, "tangled.db", cfg.Public.Sqlite.Path)
	assert.Equal(t, "/images/", cfg.Public.Media.KeyPrefix)
	assert.Equal(t, ProfileFromContext, cfg.Public.Composer.ProfileSource)
	assert.Equal(t, 30*time.Second, cfg.Public.Composer.UploadWait)
	assert.Equal(t, "k", cfg.JwtKey())
}

func TestMustLoad_OverridesFromYaml(t *testing.T) {
	public := `
store:
  driver: sqlite
composer:
  profile_source: store
  init_liked_by: true
  upload_wait: 5s
  session_ttl: 10m
  max_sessions: 3
feed:
  limit: 7
allowed_image_mime_types: ["image/png"]
`
	dir := writeConfig(t, public, "jwt_key: 'k'\n")

	cfg := MustLoad(dir)

	assert.Equal(t, ProfileFromStore, cfg.Public.Composer.ProfileSource)
	assert.True(t, cfg.Public.Composer.InitLikedBy)
	assert.Equal(t, 5*time.Second, cfg.Public.Composer.UploadWait)
	assert.Equal(t, 10*time.Minute, cfg.Public.Composer.SessionTTL)
	assert.Equal(t, 3, cfg.Public.Composer.MaxSessions)
	assert.Equal(t, 7, cfg.Public.Feed.Limit)
	assert.Equal(t, []string{"image/png"}, cfg.Public.AllowedImageMimeTypes)
}

func TestMustLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "store:\n  driver: mongo\n", "jwt_key: 'from-file'\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TANGLED_MONGO_URI=mongodb://dotenv:27017\n"), 0o600))
	t.Setenv("TANGLED_JWT_KEY", "from-env")
	t.Setenv("PORT", "9999")
	t.Cleanup(func() { os.Unsetenv("TANGLED_MONGO_URI") })

	cfg := MustLoad(dir)

	assert.Equal(t, "from-env", cfg.Private.JwtKey)
	assert.Equal(t, "mongodb://dotenv:27017", cfg.Private.MongoURI)
	assert.Equal(t, ":9999", cfg.Public.Http.Addr)
}

func TestMustLoad_RequiredFields(t *testing.T) {
	t.Run("missing jwt key", func(t *testing.T) {
		dir := writeConfig(t, "store:\n  driver: sqlite\n", "# jwt_key is intentionally missing\n")
		assert.Panics(t, func() { MustLoad(dir) })
	})

	t.Run("mongo driver without uri", func(t *testing.T) {
		dir := writeConfig(t, "store:\n  driver: mongo\n", "jwt_key: 'k'\n")
		assert.Panics(t, func() { MustLoad(dir) })
	})

	t.Run("unknown driver", func(t *testing.T) {
		dir := writeConfig(t, "store:\n  driver: cassandra\n", "jwt_key: 'k'\n")
		assert.Panics(t, func() { MustLoad(dir) })
	})

	t.Run("unknown profile source", func(t *testing.T) {
		dir := writeConfig(t, "store:\n  driver: sqlite\ncomposer:\n  profile_source: ldap\n", "jwt_key: 'k'\n")
		assert.Panics(t, func() { MustLoad(dir) })
	})

	t.Run("missing files", func(t *testing.T) {
		assert.Panics(t, func() { MustLoad(t.TempDir()) })
	})
}
