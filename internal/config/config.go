package config

import (
	"os"
	"time"
)

type Config struct {
	ListenAddr      string
	DataPath        string
	AuthSecret      string
	GoogleClientID  string
	CORSOrigin      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	DBBusyTimeout   time.Duration
}

func Load() Config {
	cfg := Config{
		ListenAddr:     envOr("NOTEFLOW_LISTEN_ADDR", "127.0.0.1:8080"),
		DataPath:       envOr("NOTEFLOW_DATA_PATH", "data"),
		AuthSecret:     os.Getenv("NOTEFLOW_AUTH_SECRET"),
		GoogleClientID: os.Getenv("NOTEFLOW_GOOGLE_CLIENT_ID"),
		CORSOrigin:     envOr("NOTEFLOW_CORS_ORIGIN", "*"),
	}

	cfg.AccessTokenTTL = parseDurationOr("NOTEFLOW_ACCESS_TOKEN_TTL", 24*time.Hour)
	cfg.RefreshTokenTTL = parseDurationOr("NOTEFLOW_REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.DBBusyTimeout = parseDurationOr("NOTEFLOW_DB_BUSY_TIMEOUT", 5*time.Second)
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
