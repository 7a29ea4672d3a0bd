package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds process configuration, loaded from the environment with
// an optional .env file (local development).
type Config struct {
	// LiveKit credentials and endpoint.
	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitURL       string

	// PublicHost is the externally reachable host the telephony provider
	// connects back to for the media stream. Falls back to the webhook
	// request's Host header when empty.
	PublicHost string

	// Port the HTTP server listens on.
	Port string

	// SampleRate for the published room track. G.711 is 8kHz native;
	// this stays 8000 unless the room side changes codec.
	SampleRate int
}

// Load reads configuration from the environment. A missing .env file is
// not an error; missing required keys are.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg := &Config{
		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),
		LiveKitURL:       os.Getenv("LIVEKIT_URL"),
		PublicHost:       os.Getenv("PUBLIC_HOST"),
		Port:             getEnv("PORT", "8080"),
		SampleRate:       8000,
	}

	if v := os.Getenv("ROOM_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_SAMPLE_RATE %q: %w", v, err)
		}
		cfg.SampleRate = rate
	}

	for _, req := range []struct{ key, val string }{
		{"LIVEKIT_API_KEY", cfg.LiveKitAPIKey},
		{"LIVEKIT_API_SECRET", cfg.LiveKitAPISecret},
		{"LIVEKIT_URL", cfg.LiveKitURL},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", req.key)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
