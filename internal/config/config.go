package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl         string
	Port          string
	JWTSecret     string
	TokenTTL      time.Duration
	GenesisAdmin  string
	BreakerActive bool
	RateLimit     float64
	RateBurst     int
	LogLevel      string
	LogFormat     string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		DBUrl:         os.Getenv("DB_URL"),
		Port:          port,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour),
		GenesisAdmin:  os.Getenv("GENESIS_ADMIN"),
		BreakerActive: getBool("BREAKER_ACTIVE", true),
		RateLimit:     getFloat("RATE_LIMIT", 10),
		RateBurst:     getInt("RATE_BURST", 20),
		LogLevel:      getString("LOG_LEVEL", "info"),
		LogFormat:     getString("LOG_FORMAT", "console"),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
