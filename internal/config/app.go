package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"moodwave/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Model    ModelConfig
	Training TrainingConfig
	Forecast ForecastConfig
	Breaker  BreakerConfig
	Identity IdentityConfig `validate:"-"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `validate:"required,numeric"`

	// SubmitBurst observations per identity are allowed each SubmitWindow; 0 disables the limit
	SubmitBurst  int           `validate:"gte=0"`
	SubmitWindow time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver     string `validate:"oneof=postgres sqlite"`
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string `validate:"required_if=Driver sqlite"`
}

// TrainingConfig controls when the retraining controller refits a user's model
type TrainingConfig struct {
	Policy string `validate:"oneof=always once every_n"`
	Every  int    `validate:"gte=1"`
}

// ForecastConfig bounds forecast requests
type ForecastConfig struct {
	MaxHorizon int `validate:"gte=1,lte=365"`
}

// BreakerConfig configures the circuit breaker in front of the stores
type BreakerConfig struct {
	FailureThreshold uint32        `validate:"gte=1"`
	Timeout          time.Duration `validate:"gt=0"`
}

// IdentityConfig holds the signing material for the anonymous identity cookie
type IdentityConfig struct {
	Secret     []byte
	CookieName string
	TTL        time.Duration
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port:         getEnvOrDefault("SERVER_PORT", "8080"),
		SubmitBurst:  getEnvAsInt("SUBMIT_RATE_BURST", 10),
		SubmitWindow: getEnvAsDuration("SUBMIT_RATE_WINDOW", time.Minute),
	}

	config.Database = DatabaseConfig{
		Driver:     getEnvOrDefault("DB_DRIVER", "postgres"),
		Host:       getEnvOrDefault("DB_HOST", "postgres"),
		Port:       getEnvOrDefault("DB_PORT", "5432"),
		User:       getEnvOrDefault("DB_USER", "postgres"),
		Password:   getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:       getEnvOrDefault("DB_NAME", "moodwave"),
		SSLMode:    getEnvOrDefault("DB_SSLMODE", "disable"),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", filepath.Join("data", "moodwave.db")),
	}

	config.Model = ModelConfig{
		Kind:      getEnvOrDefault("MODEL_KIND", ModelKindWindowed),
		TimeSteps: getEnvAsInt("MODEL_TIME_STEPS", DefaultTimeSteps),
		Ridge:     getEnvAsFloat("MODEL_RIDGE", DefaultRidge),
		Store:     getEnvOrDefault("MODEL_STORE", ModelStoreDB),
		Dir:       getEnvOrDefault("MODEL_DIR", filepath.Join("data", "models")),
	}

	config.Training = TrainingConfig{
		Policy: getEnvOrDefault("RETRAIN_POLICY", "always"),
		Every:  getEnvAsInt("RETRAIN_EVERY", 1),
	}

	config.Forecast = ForecastConfig{
		MaxHorizon: getEnvAsInt("FORECAST_MAX_HORIZON", 30),
	}

	config.Breaker = BreakerConfig{
		FailureThreshold: uint32(getEnvAsInt("STORE_BREAKER_FAILURES", 5)),
		Timeout:          getEnvAsDuration("STORE_BREAKER_TIMEOUT", 30*time.Second),
	}

	config.Identity = IdentityConfig{
		Secret:     []byte(os.Getenv("IDENTITY_SECRET")),
		CookieName: getEnvOrDefault("IDENTITY_COOKIE_NAME", "moodwave_uid"),
		TTL:        getEnvAsDuration("IDENTITY_COOKIE_TTL", 365*24*time.Hour),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks every section except identity, which only the HTTP server needs
func (c *AppConfig) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate checks that the identity secret is usable for HS256 signing
func (c *IdentityConfig) Validate() error {
	if len(c.Secret) == 0 {
		return fmt.Errorf("IDENTITY_SECRET environment variable must be set")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("IDENTITY_SECRET must be at least 32 characters (current length: %d)", len(c.Secret))
	}
	if c.CookieName == "" {
		return fmt.Errorf("IDENTITY_COOKIE_NAME cannot be empty")
	}
	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
