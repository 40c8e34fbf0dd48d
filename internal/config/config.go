package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string // dev, prod
	APIBaseURL  string // Curalis REST base URL
	RealtimeURL string // websocket URL for the ai-realtime namespace
	DataDir     string // local storage for auth session and consent docs

	HTTPTimeout     time.Duration // per REST request
	AvatarTimeout   time.Duration // how long we wait for the avatar to come up
	DedupeWindow    time.Duration // suppress re-speaking identical text within this window
	TypewriterTick  time.Duration // transcript reveal interval per rune without avatar pacing
	MinTurnBytes    int           // audio turns shorter than this are dropped
	DevServerPort   string        // local simulator port
	ShutdownTimeout time.Duration // graceful shutdown timeout for the dev server
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		APIBaseURL:      getEnv("CURALIS_API_URL", "http://localhost:8080"),
		RealtimeURL:     getEnv("CURALIS_REALTIME_URL", "ws://localhost:8080/ai-realtime"),
		DataDir:         getEnv("CURALIS_DATA_DIR", defaultDataDir()),
		HTTPTimeout:     getDuration("CURALIS_HTTP_TIMEOUT", 10*time.Second),
		AvatarTimeout:   getDuration("CURALIS_AVATAR_TIMEOUT", 30*time.Second),
		DedupeWindow:    getDuration("CURALIS_DEDUPE_WINDOW", 2*time.Second),
		TypewriterTick:  getDuration("CURALIS_TYPEWRITER_TICK", 30*time.Millisecond),
		MinTurnBytes:    getInt("CURALIS_MIN_TURN_BYTES", 1024),
		DevServerPort:   getEnv("CURALIS_DEV_PORT", "8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("CURALIS_API_URL must not be empty")
	}

	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".curalis"
	}
	return filepath.Join(home, ".curalis")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
