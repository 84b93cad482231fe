// Command seed creates the first admin account, or promotes and resets an
// existing account with the given email.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"listing-portal/internal/account"
	"listing-portal/internal/auth"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	configPath := flag.String("config", getEnv("CONFIG_PATH", "config/config.yaml"), "path to config file")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	name := flag.String("name", getEnv("ADMIN_NAME", "Administrator"), "admin display name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags -email/-password or ADMIN_EMAIL/ADMIN_PASSWORD)")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", *configPath, err)
	}
	cfg.ApplyEnvironment()
	if cfg.Database.Type == database.DriverMemory {
		log.Fatal("seeding the memory store has no effect; configure mysql or postgres")
	}

	logger := logging.New(os.Stdout, cfg.Logging.Format, cfg.Logging.Level)

	store, _, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Seeding never issues tokens; the secret only has to be non-empty.
	accounts := account.NewService(store,
		auth.NewTokenIssuer("seed", time.Minute),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		cfg.Auth.MinPasswordLength,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, created, err := accounts.EnsureAdmin(ctx, account.CreateInput{
		Name:     *name,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if created {
		log.Printf("Created admin %s (%s)", admin.Email, admin.ID)
	} else {
		log.Printf("Promoted existing account %s (%s) to admin", admin.Email, admin.ID)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
