package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port             string
	Env              string
	StoreBackend     string
	RedisURL         string
	ChatHistoryLimit int
	AllowedOrigin    string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	port := getenv("APP_PORT", "8080")
	env := getenv("APP_ENV", "dev")
	backend := getenv("STORE_BACKEND", "redis")
	redisURL := getenv("REDIS_URL", "redis://localhost:6379/0")
	historyStr := getenv("CHAT_HISTORY_LIMIT", "200")
	origin := getenv("ALLOWED_ORIGIN", "http://localhost:3000")
	history, err := strconv.Atoi(historyStr)
	if err != nil || history < 0 {
		history = 200
	}
	return Config{
		Port:             port,
		Env:              env,
		StoreBackend:     backend,
		RedisURL:         redisURL,
		ChatHistoryLimit: history,
		AllowedOrigin:    origin,
	}
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port must not be empty")
	}
	if cfg.StoreBackend != "redis" && cfg.StoreBackend != "memory" {
		return errors.New("store backend must be redis or memory")
	}
	if cfg.StoreBackend == "redis" && cfg.RedisURL == "" {
		return errors.New("redis url must not be empty")
	}
	return nil
}
