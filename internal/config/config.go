// Package config collects the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full environment-driven configuration of the service.
type Config struct {
	Port        string
	Timezone    *time.Location
	DatabaseURL string

	// Microsoft (enterprise provider)
	MSTenantID    string
	MSAppID       string
	MSAppSecret   string
	MSRedirectURL string
	MSTokenFile   string

	// Google (consumer provider)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleTokenFile    string

	// Summarization pipeline
	OpenAIAPIKey      string
	OpenAIModel       string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// Normalization policy. Environment-specific literals with defaults
	// preserved from the existing deployment.
	SelfAttendeeName string
	TitleDenylist    []string
}

// FromEnv reads the configuration from environment variables, applying
// defaults where the deployment has established ones.
func FromEnv() (*Config, error) {
	tzName := envOr("TZ", "Europe/Berlin")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("config: invalid TZ %q: %w", tzName, err)
	}

	cfg := &Config{
		Port:        envOr("PORT", "3000"),
		Timezone:    loc,
		DatabaseURL: os.Getenv("DATABASE_URL"),

		MSTenantID:    os.Getenv("MS_TENANT_ID"),
		MSAppID:       os.Getenv("MS_APP_ID"),
		MSAppSecret:   os.Getenv("MS_APP_SECRET"),
		MSRedirectURL: os.Getenv("MS_REDIRECT_URL"),
		MSTokenFile:   envOr("MS_TOKEN_FILE", "ms-tokens.json"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		GoogleTokenFile:    envOr("GOOGLE_TOKEN_FILE", "token.json"),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_MODEL", "gpt-4"),
		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: envOr("ELEVENLABS_VOICE_ID", "MbbPUteESkJWr4IAaW35"),

		SelfAttendeeName: envOr("SELF_ATTENDEE_NAME", "Max Großmann"),
		TitleDenylist:    splitList(envOr("EVENT_TITLE_DENYLIST", "MIPA,Laufband,Zeiten buchen")),
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
