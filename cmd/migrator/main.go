package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/paper-builder/internal/app"
	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/config"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
)

func main() {
	var (
		command     = flag.String("command", "up", "Migration command: up, down, status, or seed-staff")
		dir         = flag.String("dir", "db/migrations", "Directory containing migration files")
		email       = flag.String("email", "", "seed-staff: login email")
		password    = flag.String("password", "", "seed-staff: initial password (min 8 characters)")
		displayName = flag.String("name", "", "seed-staff: display name")
		institution = flag.String("institution", "", "seed-staff: institution")
	)
	flag.Parse()

	// Setup logging
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if *command == "seed-staff" {
		seedStaff(auth.CreateStaffRequest{
			Email:       *email,
			Password:    *password,
			DisplayName: *displayName,
			Institution: *institution,
		})
		return
	}

	// Read database configuration from environment
	pgHost := getEnv("PG_HOST", "localhost")
	pgPort := getEnv("PG_PORT", "5432")
	pgUser := getEnv("PG_USER", "")
	pgPassword := getEnv("PG_PASSWORD", "")
	pgDatabase := getEnv("PG_DATABASE", "")
	pgSSLMode := getEnv("PG_SSL_MODE", "disable")

	if pgUser == "" {
		log.Fatal().Msg("PG_USER environment variable is required")
	}
	if pgPassword == "" {
		log.Fatal().Msg("PG_PASSWORD environment variable is required")
	}
	if pgDatabase == "" {
		log.Fatal().Msg("PG_DATABASE environment variable is required")
	}

	// Build connection string
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pgHost, pgPort, pgUser, pgPassword, pgDatabase, pgSSLMode)

	// Resolve migration directory (relative to project root)
	migrationDir, err := filepath.Abs(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("failed to resolve migration directory")
	}

	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		log.Fatal().Str("dir", migrationDir).Msg("migration directory does not exist")
	}

	// Connect to database using pgx via stdlib (database/sql compatible)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal().Err(err).Str("host", pgHost).Str("port", pgPort).Msg("failed to open database connection")
	}
	defer db.Close()

	// Verify connection
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("host", pgHost).
		Str("port", pgPort).
		Str("database", pgDatabase).
		Str("migration_dir", migrationDir).
		Msg("connected to database")

	// Configure goose
	goose.SetBaseFS(nil)
	goose.SetTableName("goose_db_version")

	// Run migration command
	switch *command {
	case "up":
		if err := goose.Up(db, migrationDir); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations up")
		}
		log.Info().Msg("migrations applied successfully")

	case "down":
		if err := goose.Down(db, migrationDir); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations down")
		}
		log.Info().Msg("migrations rolled back successfully")

	case "status":
		if err := goose.Status(db, migrationDir); err != nil {
			log.Fatal().Err(err).Msg("failed to get migration status")
		}

	default:
		log.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, status, or seed-staff")
	}
}

// seedStaff creates a staff account in the configured store so the first
// teacher can log in.
func seedStaff(req auth.CreateStaffRequest) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}
	if req.Email == "" || req.Password == "" {
		log.Fatal().Msg("seed-staff needs -email and -password")
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Email
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	store, closeStore, err := app.OpenStore(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	authSvc := app.NewAuthService(cfg, repository.NewStaffRepository(store), log.Logger)
	session, err := authSvc.CreateStaff(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("failed to create staff account")
		return
	}
	log.Info().Str("staff_id", session.StaffID.String()).Str("email", req.Email).Msg("staff account created")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
