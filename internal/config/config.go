package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"paper-builder"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Store    Store
	Postgres Postgres
	Redis    Redis
	Security Security
	Bank     Bank
	Drafts   Drafts
	CORS     CORS
}

// Store selects the paper database.
type Store struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/papers.db"`
}

// Postgres captures connection info for the SQL database. Only read when
// STORE_DRIVER is postgres.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds draft state and bank cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret        string        `env:"JWT_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:""`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// Bank configures where question banks come from and how long they are cached.
type Bank struct {
	Source       string        `env:"BANK_SOURCE" envDefault:"http"`
	URL          string        `env:"BANK_URL" envDefault:"http://localhost:9000/banks"`
	FetchTimeout time.Duration `env:"BANK_FETCH_TIMEOUT" envDefault:"5s"`
	CacheTTL     time.Duration `env:"BANK_CACHE_TTL" envDefault:"10m"`
	PrefetchSize int           `env:"BANK_PREFETCH_QUEUE" envDefault:"32"`

	MongoURI        string `env:"BANK_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string `env:"BANK_MONGO_DATABASE" envDefault:"question_bank"`
	MongoCollection string `env:"BANK_MONGO_COLLECTION" envDefault:"classes"`
}

// Drafts governs how long editing sessions live in Redis.
type Drafts struct {
	TTL     time.Duration `env:"DRAFT_TTL" envDefault:"24h"`
	LockTTL time.Duration `env:"DRAFT_LOCK_TTL" envDefault:"30s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("parse config: PG_USER and PG_DATABASE are required for the postgres store")
		}
	case "sqlite":
	default:
		return fmt.Errorf("parse config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Bank.Source {
	case "http", "mongo":
	default:
		return fmt.Errorf("parse config: unknown BANK_SOURCE %q", c.Bank.Source)
	}
	return nil
}
