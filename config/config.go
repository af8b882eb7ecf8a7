package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	ServerPort string
	Env        string

	Firebase struct {
		ProjectID     string
		StorageBucket string
		// WebAPIKey authorizes Identity Toolkit password sign-in calls.
		WebAPIKey string
		// Credential material for the Admin SDK, in order of preference:
		// raw JSON, base64-encoded JSON, then application default creds.
		CredentialsJSON   string
		CredentialsBase64 string
	}
}

// Load reads configuration from the environment, pulling in a .env file first
// when one exists (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.ServerPort = os.Getenv("PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.Env = os.Getenv("ENV")
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	cfg.Firebase.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.Firebase.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID must be set")
	}

	cfg.Firebase.StorageBucket = os.Getenv("FIREBASE_STORAGE_BUCKET")
	if cfg.Firebase.StorageBucket == "" {
		cfg.Firebase.StorageBucket = cfg.Firebase.ProjectID + ".firebasestorage.app"
	}

	cfg.Firebase.WebAPIKey = os.Getenv("FIREBASE_WEB_API_KEY")
	cfg.Firebase.CredentialsJSON = os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	cfg.Firebase.CredentialsBase64 = os.Getenv("FIREBASE_SERVICE_ACCOUNT_BASE64")

	return cfg, nil
}

// IsDevelopment reports whether the server runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
