// Package model implements the per-user mood regressors.
//
// A model is trained on observation rows. Each row is laid out as
// [mood, sleep_time, to_sleep_time, training_time, weight, typing_speed, typing_accuracy];
// index MoodSlot is the autoregressive slot that multi-step forecasting overwrites
// with its own predictions. Two variants implement Regressor:
//
//   - Linear reads only the feature columns of the most recent row.
//   - Windowed reads the last TimeSteps full rows, mood included.
//
// Both are fitted with standardized ridge-regularized least squares.
package model

import (
	"errors"
	"fmt"
)

// MoodSlot is the index of the mood value inside a row
const MoodSlot = 0

// FeatureNames lists the non-mood columns in training order
var FeatureNames = []string{
	"sleep_time",
	"to_sleep_time",
	"training_time",
	"weight",
	"typing_speed",
	"typing_accuracy",
}

// RowWidth is the number of values in one observation row
var RowWidth = len(FeatureNames) + 1

var (
	// ErrDegenerate is returned by Fit when the data cannot identify a model
	ErrDegenerate = errors.New("degenerate training data")

	// ErrNotFitted is returned by Predict before a successful Fit
	ErrNotFitted = errors.New("model is not fitted")

	// ErrBadWindow is returned by Predict for an empty or malformed window
	ErrBadWindow = errors.New("malformed prediction window")
)

// Kind names a regressor variant
type Kind string

const (
	KindLinear   Kind = "linear"
	KindWindowed Kind = "windowed"
)

// Regressor maps a window of observation rows to a predicted mood
type Regressor interface {
	Kind() Kind

	// WindowSize is the number of trailing rows Predict reads
	WindowSize() int

	// Fit trains on ordered rows and their mood labels, replacing any previous fit
	Fit(rows [][]float64, labels []float64) error

	// Predict returns the mood following the given window
	Predict(window [][]float64) (float64, error)
}

// Factory builds a fresh, unfitted regressor
type Factory func() Regressor

// NewFactory returns a factory for the configured variant
func NewFactory(kind string, timeSteps int, ridge float64) (Factory, error) {
	switch Kind(kind) {
	case KindLinear:
		return func() Regressor { return NewLinear(ridge) }, nil
	case KindWindowed:
		if timeSteps < 1 {
			return nil, fmt.Errorf("time steps must be positive, got %d", timeSteps)
		}
		return func() Regressor { return NewWindowed(timeSteps, ridge) }, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}

// Window returns the last size rows, left-padded with copies of the oldest row
// when fewer are available. The rows are copies and may be modified freely.
func Window(rows [][]float64, size int) [][]float64 {
	if len(rows) == 0 || size < 1 {
		return nil
	}

	start := len(rows) - size
	window := make([][]float64, 0, size)
	for i := start; i < len(rows); i++ {
		src := rows[0]
		if i >= 0 {
			src = rows[i]
		}
		window = append(window, append([]float64(nil), src...))
	}
	return window
}

func checkRows(rows [][]float64, labels []float64) error {
	if len(rows) != len(labels) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrDegenerate, len(rows), len(labels))
	}
	for i, row := range rows {
		if len(row) != RowWidth {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrDegenerate, i, len(row), RowWidth)
		}
	}
	return nil
}

func checkWindow(window [][]float64) error {
	if len(window) == 0 {
		return ErrBadWindow
	}
	for _, row := range window {
		if len(row) != RowWidth {
			return fmt.Errorf("%w: row has %d values, want %d", ErrBadWindow, len(row), RowWidth)
		}
	}
	return nil
}
