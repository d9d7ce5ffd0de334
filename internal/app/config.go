package app

import (
	"fmt"

	"moodwave/internal/config"
	"moodwave/internal/metrics"
	"moodwave/internal/model"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/forecast"
	"moodwave/internal/service/submission"
	"moodwave/internal/service/training"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
	// Metrics shared by every component; never nil
	Metrics *metrics.Metrics

	Trainer     *training.Controller
	Forecaster  *forecast.Forecaster
	Submissions *submission.Service
}

// NewConfig wires the services on top of database
func NewConfig(database db.Database, appConfig *config.AppConfig, m *metrics.Metrics) (*Config, error) {
	if m == nil {
		m = metrics.NewMetrics()
	}

	factory, err := model.NewFactory(appConfig.Model.Kind, appConfig.Model.TimeSteps, appConfig.Model.Ridge)
	if err != nil {
		return nil, fmt.Errorf("error configuring model: %w", err)
	}

	trainer, err := training.NewController(database, factory, appConfig.Training, m)
	if err != nil {
		return nil, fmt.Errorf("error configuring training: %w", err)
	}

	return &Config{
		DB:          database,
		AppConfig:   appConfig,
		Metrics:     m,
		Trainer:     trainer,
		Forecaster:  forecast.NewForecaster(database, appConfig.Forecast.MaxHorizon, m),
		Submissions: submission.NewService(database, trainer, m),
	}, nil
}

// Close releases the database
func (c *Config) Close() error {
	return c.DB.Close()
}
