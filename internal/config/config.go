package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything main wires from the environment. Defaults suit
// local runs against stub services.
type Config struct {
	ServiceName string
	Env         string
	ListenAddr  string

	AuthServiceURL    string
	CartServiceURL    string
	ProductServiceURL string
	InternalAPIKey    string

	// RemoteTimeout bounds each outbound call; a hung remote blocks the
	// workflow for at most this long.
	RemoteTimeout time.Duration

	// Breaker policy shared by all three dependency breakers.
	BreakerFailureThreshold int
	BreakerWindow           time.Duration
	BreakerCooldown         time.Duration

	// DatabaseURL selects the postgres order store; empty keeps the
	// in-memory store.
	DatabaseURL string
}

func Load() Config {
	return Config{
		ServiceName: getenvDefault("SERVICE_NAME", "order-service"),
		Env:         getenvDefault("ENV", "dev"),
		ListenAddr:  getenvDefault("LISTEN_ADDR", ":8080"),

		AuthServiceURL:    getenvDefault("AUTH_SERVICE_URL", "http://localhost:8081/auth/validate"),
		CartServiceURL:    getenvDefault("CART_SERVICE_URL", "http://localhost:8082"),
		ProductServiceURL: getenvDefault("PRODUCT_SERVICE_URL", "http://localhost:8083/products"),
		InternalAPIKey:    getenvDefault("INTERNAL_API_KEY", ""),

		RemoteTimeout: getenvDuration("REMOTE_TIMEOUT", 5*time.Second),

		BreakerFailureThreshold: getenvInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerWindow:           getenvDuration("BREAKER_WINDOW", time.Minute),
		BreakerCooldown:         getenvDuration("BREAKER_COOLDOWN", 30*time.Second),

		DatabaseURL: getenvDefault("DATABASE_URL", ""),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
