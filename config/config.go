package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"modelkit/database"
	"modelkit/validator"
)

type Config struct {
	Port        string `json:"PORT" validate:"required,numeric"`
	Env         string `json:"ENV" validate:"oneof=development production test"`
	LogLevel    string `json:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	CORSOrigins string `json:"CORS_ORIGINS" validate:"required"`
	RateLimit   int    `json:"RATE_LIMIT" validate:"min=1"`
	DBDriver    string `json:"DB_DRIVER" validate:"oneof=sqlite3 sqlite"`
	DBName      string `json:"DB_NAME" validate:"required"`
	DBDir       string `json:"DB_DIR"`
	DBWAL       bool   `json:"DB_WAL"`
}

var AppConfig *Config

// Load reads .env (if present) and the environment into AppConfig.
func Load() error {
	_ = godotenv.Load()

	wal, err := strconv.ParseBool(GetEnv("DB_WAL", "true"))
	if err != nil {
		return fmt.Errorf("DB_WAL: %w", err)
	}

	rateLimit, err := strconv.Atoi(GetEnv("RATE_LIMIT", "200"))
	if err != nil {
		return fmt.Errorf("RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		Port:        GetEnv("PORT", "3000"),
		Env:         GetEnv("ENV", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "*"),
		RateLimit:   rateLimit,
		DBDriver:    GetEnv("DB_DRIVER", database.DriverCGO),
		DBName:      GetEnv("DB_NAME", database.DefaultName),
		DBDir:       GetEnv("DB_DIR", "./data"),
		DBWAL:       wal,
	}

	if err := validator.New().Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	AppConfig = cfg
	return nil
}

// Database returns the connection manager settings.
func (c *Config) Database() database.Config {
	return database.Config{
		Driver: c.DBDriver,
		Name:   c.DBName,
		Dir:    c.DBDir,
		WAL:    c.DBWAL,
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
