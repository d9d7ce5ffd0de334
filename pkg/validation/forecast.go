package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ForecastRequestValidator validates forecast requests
type ForecastRequestValidator struct {
	maxHorizon int
}

// NewForecastRequestValidator creates a validator accepting horizons up to maxHorizon days
func NewForecastRequestValidator(maxHorizon int) *ForecastRequestValidator {
	return &ForecastRequestValidator{maxHorizon: maxHorizon}
}

// ParseDays parses and range-checks the days query parameter.
// An empty value means a one-day forecast.
func (v *ForecastRequestValidator) ParseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("days must be an integer")
	}
	if err := v.ValidateDays(days); err != nil {
		return 0, err
	}
	return days, nil
}

// ValidateDays checks that days is within [1, maxHorizon]
func (v *ForecastRequestValidator) ValidateDays(days int) error {
	if err := engine().Var(days, fmt.Sprintf("gte=1,lte=%d", v.maxHorizon)); err != nil {
		return fmt.Errorf("days must be between 1 and %d, got %d", v.maxHorizon, days)
	}
	return nil
}
