package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Extract   ExtractConfig
	Scheduler SchedulerConfig
	CORS      CORSConfig
}

// ServerConfig holds status-API server configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// ExtractConfig holds collector configuration
type ExtractConfig struct {
	DataDir string // directory scanned for CSV/JSON/XLSX price files
	FeedURL string // JSON price feed endpoint, empty disables the web job
}

// SchedulerConfig holds the cadences of the fine-grained pipeline jobs.
// Time-of-day schedules live in the Job_Schedule table instead.
type SchedulerConfig struct {
	Tick            time.Duration
	ExtractInterval time.Duration
	MergeInterval   time.Duration
	MartInterval    time.Duration
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5002"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/gold_warehouse.db"),
		},
		Extract: ExtractConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
			FeedURL: getEnv("PRICE_FEED_URL", ""),
		},
		Scheduler: SchedulerConfig{
			Tick:            getEnvSeconds("SCHEDULER_TICK_SECONDS", 1),
			ExtractInterval: getEnvSeconds("EXTRACT_INTERVAL_SECONDS", 3600),
			MergeInterval:   getEnvSeconds("MERGE_INTERVAL_SECONDS", 3600),
			MartInterval:    getEnvSeconds("MART_INTERVAL_SECONDS", 3600),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvSeconds reads an integer number of seconds, falling back to the
// default on missing or malformed values.
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(n) * time.Second
}
