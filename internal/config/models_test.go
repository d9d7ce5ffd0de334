package config

import (
	"strings"
	"testing"
	"time"
)

func TestModelConfig_WindowSize(t *testing.T) {
	tests := []struct {
		name   string
		config ModelConfig
		want   int
	}{
		{
			name:   "linear reads one row",
			config: ModelConfig{Kind: ModelKindLinear, TimeSteps: 5},
			want:   1,
		},
		{
			name:   "windowed reads time steps",
			config: ModelConfig{Kind: ModelKindWindowed, TimeSteps: 5},
			want:   5,
		},
		{
			name:   "windowed with custom time steps",
			config: ModelConfig{Kind: ModelKindWindowed, TimeSteps: 3},
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.WindowSize(); got != tt.want {
				t.Errorf("WindowSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("MODEL_KIND", "")
	t.Setenv("RETRAIN_POLICY", "")
	t.Setenv("IDENTITY_SECRET", "")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %s, want postgres", config.Database.Driver)
	}
	if config.Model.Kind != ModelKindWindowed {
		t.Errorf("Model.Kind = %s, want %s", config.Model.Kind, ModelKindWindowed)
	}
	if config.Model.WindowSize() != DefaultTimeSteps {
		t.Errorf("Model.WindowSize() = %d, want %d", config.Model.WindowSize(), DefaultTimeSteps)
	}
	if config.Model.TimeSteps != DefaultTimeSteps {
		t.Errorf("Model.TimeSteps = %d, want %d", config.Model.TimeSteps, DefaultTimeSteps)
	}
	if config.Training.Policy != "always" {
		t.Errorf("Training.Policy = %s, want always", config.Training.Policy)
	}
	if config.Forecast.MaxHorizon != 30 {
		t.Errorf("Forecast.MaxHorizon = %d, want 30", config.Forecast.MaxHorizon)
	}
	if config.Breaker.Timeout != 30*time.Second {
		t.Errorf("Breaker.Timeout = %v, want 30s", config.Breaker.Timeout)
	}
	if config.Server.SubmitBurst != 10 || config.Server.SubmitWindow != time.Minute {
		t.Errorf("Server submit limit = %d per %v, want 10 per 1m", config.Server.SubmitBurst, config.Server.SubmitWindow)
	}
	if config.Identity.CookieName != "moodwave_uid" {
		t.Errorf("Identity.CookieName = %s, want moodwave_uid", config.Identity.CookieName)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown driver", key: "DB_DRIVER", val: "mysql"},
		{name: "unknown model kind", key: "MODEL_KIND", val: "lstm"},
		{name: "unknown retrain policy", key: "RETRAIN_POLICY", val: "sometimes"},
		{name: "unknown model store", key: "MODEL_STORE", val: "s3"},
		{name: "zero horizon", key: "FORECAST_MAX_HORIZON", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			config, err := LoadConfig()
			if err == nil {
				t.Fatalf("LoadConfig() error = nil, want error for %s=%s", tt.key, tt.val)
			}
			if config != nil {
				t.Error("LoadConfig() returned non-nil config on validation failure")
			}
			if !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("error = %v, want invalid configuration prefix", err)
			}
		})
	}
}

func TestLoadConfig_MalformedNumberFallsBackToDefault(t *testing.T) {
	t.Setenv("MODEL_TIME_STEPS", "five")
	t.Setenv("MODEL_RIDGE", "tiny")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Model.TimeSteps != DefaultTimeSteps {
		t.Errorf("Model.TimeSteps = %d, want default %d", config.Model.TimeSteps, DefaultTimeSteps)
	}
	if config.Model.Ridge != DefaultRidge {
		t.Errorf("Model.Ridge = %v, want default %v", config.Model.Ridge, DefaultRidge)
	}
}

func TestIdentityConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  IdentityConfig
		wantErr bool
	}{
		{
			name:    "missing secret",
			config:  IdentityConfig{CookieName: "uid"},
			wantErr: true,
		},
		{
			name:    "short secret",
			config:  IdentityConfig{Secret: []byte("short"), CookieName: "uid"},
			wantErr: true,
		},
		{
			name:    "empty cookie name",
			config:  IdentityConfig{Secret: []byte(strings.Repeat("s", 32))},
			wantErr: true,
		},
		{
			name:    "valid",
			config:  IdentityConfig{Secret: []byte(strings.Repeat("s", 32)), CookieName: "uid"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
