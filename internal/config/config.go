package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tftrivals/internal/riot"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIKey = errors.New("API key is not set: provide it in API_KEY.txt or as the TFTRIVALS_API_KEY environment variable")
	ErrEmptyAPIKey   = errors.New("API key file is empty")
)

// DefaultEnvPaths are the .env locations tried, in order, relative to the working directory
var DefaultEnvPaths = []string{".env", "../.env", "../../.env"}

// Config is the process-wide runtime configuration. APIKey is resolved once
// by Load and never changes afterwards.
type Config struct {
	APIKey         string `env:"TFTRIVALS_API_KEY"`
	FallbackAPIKey string `env:"RIOT_API_KEY"`
	APIKeyFile     string `env:"TFTRIVALS_API_KEY_FILE" envDefault:"API_KEY.txt"`

	BaseURL          string        `env:"TFTRIVALS_BASE_URL"           envDefault:"https://americas.api.riotgames.com"`
	RetryWait        time.Duration `env:"TFTRIVALS_RETRY_WAIT"         envDefault:"120s"`
	RetryMaxWait     time.Duration `env:"TFTRIVALS_RETRY_MAX_WAIT"     envDefault:"10m"`
	RetryMaxAttempts int           `env:"TFTRIVALS_RETRY_MAX_ATTEMPTS" envDefault:"5"`

	// Optional export targets
	DatabaseURL    string `env:"DATABASE_URL"`
	TursoURL       string `env:"TURSO_DATABASE_URL"`
	TursoAuthToken string `env:"TURSO_AUTH_TOKEN"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
}

// LoadDotEnv loads the first .env file found in paths. Missing files are not an error.
func LoadDotEnv(paths []string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("[Config] Loaded .env from: %s", path)
			return
		}
	}
	log.Println("[Config] No .env file found, using environment variables")
}

// Load parses the environment and resolves the API key. The key file wins
// when it exists; an existing but empty key file is an error rather than a
// fallthrough to the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	key, err := resolveAPIKey(cfg)
	if err != nil {
		return Config{}, err
	}
	cfg.APIKey = key

	return cfg, nil
}

func resolveAPIKey(cfg Config) (string, error) {
	data, err := os.ReadFile(cfg.APIKeyFile)
	switch {
	case err == nil:
		key := clean(string(data))
		if key == "" {
			return "", fmt.Errorf("%s: %w", cfg.APIKeyFile, ErrEmptyAPIKey)
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read %s: %w", cfg.APIKeyFile, err)
	}

	for _, candidate := range []string{cfg.APIKey, cfg.FallbackAPIKey} {
		if key := clean(candidate); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}

// clean strips whitespace and the quotes some .env writers leave behind
func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"")
}

// RetryPolicy builds the client's rate-limit retry policy from the config
func (c Config) RetryPolicy() riot.RetryPolicy {
	policy := riot.DefaultRetryPolicy()
	policy.InitialWait = c.RetryWait
	policy.MaxWait = c.RetryMaxWait
	policy.MaxAttempts = c.RetryMaxAttempts
	return policy
}
