// Package config loads application configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
//
// The three required values are fatal when absent: without the webhook
// secret the sync endpoint would silently accept unverified events, and
// without the publishable key / base URL the mobile client cannot
// bootstrap. Failing at process start beats failing open at request time.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/clerksync.db"`

	// Svix signing secret for the Clerk users webhook ("whsec_...").
	ClerkWebhookSecret string `env:"CLERK_WEBHOOK_SECRET,required,notEmpty"`

	// Publishable identifiers served to the mobile client.
	ClerkPublishableKey string `env:"CLERK_PUBLISHABLE_KEY,required,notEmpty"`
	PublicBaseURL       string `env:"PUBLIC_BASE_URL,required,notEmpty"`

	// HMAC secret for validating client session tokens.
	SessionJWTSecret string `env:"SESSION_JWT_SECRET,required,notEmpty"`
}

// Load reads a .env file if one exists, then parses the environment.
// Missing required variables produce a single aggregated error.
func Load() (*Config, error) {
	// .env is a local-dev convenience; in deployment the environment is
	// injected directly and the file is absent.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}
