package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProfileFromContext = "context"
	ProfileFromStore   = "store"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Http      Http      `yaml:"http" validate:"required"`
	Store     Store     `yaml:"store" validate:"required"`
	Mongo     Mongo     `yaml:"mongo"`
	Sqlite    Sqlite    `yaml:"sqlite"`
	Media     Media     `yaml:"media" validate:"required"`
	Composer  Composer  `yaml:"composer" validate:"required"`
	Feed      Feed      `yaml:"feed"`
	Redis     Redis     `yaml:"redis"`
	Log       Log       `yaml:"log"`
	RateLimit RateLimit `yaml:"ratelimit"`

	// lifetime of tokens issued by "tangled token"
	JwtTTL time.Duration `yaml:"jwt_ttl" validate:"gt=0"`

	MaxImageSize          int64    `yaml:"max_image_size" validate:"required,gt=0"`
	AllowedImageMimeTypes []string `yaml:"allowed_image_mime_types" validate:"required,min=1"`
}

type Http struct {
	Addr          string `yaml:"addr" validate:"required"`
	PublicURL     string `yaml:"public_url" validate:"required,url"`
	SecureCookies bool   `yaml:"secure_cookies"`
	// origins allowed to call /api from a browser
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Store struct {
	Driver string `yaml:"driver" validate:"required,oneof=mongo postgres sqlite"`
}

type Mongo struct {
	Database          string `yaml:"database"`
	ThreadsCollection string `yaml:"threads_collection"`
	UsersCollection   string `yaml:"users_collection"`
}

type Sqlite struct {
	Path string `yaml:"path"`
}

type Media struct {
	Root      string `yaml:"root" validate:"required"`
	KeyPrefix string `yaml:"key_prefix" validate:"required,startswith=/"`
}

type Composer struct {
	ProfileSource string        `yaml:"profile_source" validate:"required,oneof=context store"`
	InitLikedBy   bool          `yaml:"init_liked_by"`
	UploadWait    time.Duration `yaml:"upload_wait"`    // how long Submit waits for pending uploads, 0 = until request ends
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"required,gt=0"`
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=0"` // 0 = unlimited
}

type Feed struct {
	Limit int `yaml:"limit" validate:"gte=0"`
}

type Redis struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type RateLimit struct {
	SubmitsPerMinute float64 `yaml:"submits_per_minute" validate:"gte=0"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Private struct {
	JwtKey        string `yaml:"jwt_key" validate:"required"`
	MongoURI      string `yaml:"mongo_uri"`
	Pg            Pg     `yaml:"pg"`
	RedisPassword string `yaml:"redis_password"`
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func (s *Config) JwtTTL() time.Duration {
	return s.Public.JwtTTL
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	if err = yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file: " + err.Error())
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder, applies
// TANGLED_* environment overrides (a .env file in the folder is loaded
// first if present) and validates the result. It panics on any problem.
func MustLoad(configFolder string) *Config {
	if err := godotenv.Load(path.Join(configFolder, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic("can't load .env: " + err.Error())
	}

	cfg := &Config{Public: Defaults()}
	mustLoadPath(path.Join(configFolder, "public.yaml"), &cfg.Public)
	mustLoadPath(path.Join(configFolder, "private.yaml"), &cfg.Private)

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}
	return cfg
}

// Defaults returns the values used for keys missing from public.yaml.
func Defaults() Public {
	return Public{
		Http:  Http{Addr: ":8080", PublicURL: "http://localhost:8080"},
		Store: Store{Driver: DriverMongo},
		Mongo: Mongo{Database: "tangled", ThreadsCollection: "threads", UsersCollection: "users"},
		Sqlite: Sqlite{Path: "tangled.db"},
		Media: Media{Root: "media", KeyPrefix: "/images/"},
		Composer: Composer{
			ProfileSource: ProfileFromContext,
			UploadWait:    30 * time.Second,
			SessionTTL:    time.Hour,
			MaxSessions:   10000,
		},
		Feed:                  Feed{Limit: 50},
		Redis:                 Redis{Channel: "tangled:threads:refresh"},
		JwtTTL:                30 * 24 * time.Hour,
		Log:                   Log{Level: "info"},
		MaxImageSize:          10 << 20,
		AllowedImageMimeTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TANGLED_JWT_KEY", &cfg.Private.JwtKey)
	setString("TANGLED_MONGO_URI", &cfg.Private.MongoURI)
	setString("TANGLED_PG_HOST", &cfg.Private.Pg.Host)
	setString("TANGLED_PG_USER", &cfg.Private.Pg.User)
	setString("TANGLED_PG_PASSWORD", &cfg.Private.Pg.Password)
	setString("TANGLED_PG_DBNAME", &cfg.Private.Pg.Dbname)
	setString("TANGLED_REDIS_ADDR", &cfg.Public.Redis.Addr)
	setString("TANGLED_REDIS_PASSWORD", &cfg.Private.RedisPassword)
	setString("TANGLED_STORE_DRIVER", &cfg.Public.Store.Driver)
	setString("TANGLED_MEDIA_ROOT", &cfg.Public.Media.Root)
	setString("TANGLED_PUBLIC_URL", &cfg.Public.Http.PublicURL)

	if v := os.Getenv("TANGLED_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Private.Pg.Port = port
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Public.Http.Addr = ":" + v
	}
}

// Validate checks struct tags and the settings each store driver needs.
func (s *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(s); err != nil {
		return err
	}

	switch s.Public.Store.Driver {
	case DriverMongo:
		if s.Private.MongoURI == "" {
			return fmt.Errorf("mongo_uri is required for store driver %q", DriverMongo)
		}
		if s.Public.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required")
		}
	case DriverPostgres:
		if s.Private.Pg.Host == "" || s.Private.Pg.Dbname == "" {
			return fmt.Errorf("pg.host and pg.dbname are required for store driver %q", DriverPostgres)
		}
	case DriverSQLite:
		if s.Public.Sqlite.Path == "" {
			return fmt.Errorf("sqlite.path is required for store driver %q", DriverSQLite)
		}
	}
	return nil
}
