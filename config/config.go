package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultDatabasePath   = "census.db"
	defaultUploadPath     = "storage/uploads"
	defaultPort           = "8080"
	defaultPageSize       = 10
	defaultMaxUploadBytes = 10 << 20 // 10 MiB
	defaultSlowQueryMS    = 200
)

type Config struct {
	// runtime environment, "production" switches logging to JSON
	Env string

	// storage paths
	DatabasePath      string
	UploadStoragePath string

	// http settings
	Port               string
	CORSAllowedOrigins []string
	MaxUploadBytes     int

	// roster listing
	PageSize int

	// logging
	LogLevel   string
	LogFormat  string
	LogOutput  string
	DBLogLevel string

	// statements slower than this are logged at warn
	DBSlowQueryMS int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", defaultDatabasePath)
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		absDBPath, err := filepath.Abs(dbPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path for database '%s': %w", dbPath, err)
		}
		dbPath = absDBPath
	}

	uploadPath, err := filepath.Abs(getEnvOrDefault("UPLOAD_STORAGE_PATH", defaultUploadPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for upload storage: %w", err)
	}

	env := strings.ToLower(getEnvOrDefault("APP_ENV", "development"))
	logFormat := "console"
	if env == "production" {
		logFormat = "json"
	}

	cfg := Config{
		Env:                env,
		DatabasePath:       dbPath,
		UploadStoragePath:  uploadPath,
		Port:               getEnvOrDefault("PORT", defaultPort),
		CORSAllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MaxUploadBytes:     getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		PageSize:           getEnvIntOrDefault("PAGE_SIZE", defaultPageSize),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", logFormat),
		LogOutput:          getEnvOrDefault("LOG_OUTPUT", "stdout"),
		DBLogLevel:         getEnvOrDefault("DB_LOG_LEVEL", "warn"),
		DBSlowQueryMS:      getEnvIntOrDefault("DB_SLOW_QUERY_MS", defaultSlowQueryMS),
	}

	return cfg, nil
}
