package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAccounts is the account set used when ACCOUNTS is not configured.
// The ledger partitions every position by (security, account), so the set is
// fixed for the lifetime of a database.
var DefaultAccounts = []string{"PRIMARY", "JOINT", "RETIREMENT", "TRUST"}

// Config holds application configuration.
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBPath string

	// Ledger
	Accounts []string
}

var appConfig *Config

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		DBPath:   getEnv("DB_PATH", "data/db/portfolio.db"),
		Accounts: parseAccounts(getEnv("ACCOUNTS", "")),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration.
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// parseAccounts splits a comma-separated account list, trimming whitespace.
// An empty value yields the default set.
func parseAccounts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return DefaultAccounts
	}
	var accounts []string
	for _, a := range strings.Split(raw, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			accounts = append(accounts, a)
		}
	}
	if len(accounts) == 0 {
		return DefaultAccounts
	}
	return accounts
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
