// Package forecast produces multi-step mood forecasts from a user's stored model.
//
// Forecasting is iterative. Each step predicts the next mood from the current
// window, then appends a pseudo-observation that copies the last row with its
// mood slot replaced by the prediction. Every other feature stays frozen at its
// last observed value, so values more than a few steps out carry little
// information beyond the most recent prediction and should be presented as
// low-fidelity.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"moodwave/internal/logger"
	"moodwave/internal/metrics"
	"moodwave/internal/model"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/training"

	"github.com/sirupsen/logrus"
)

// ErrInvalidHorizon is returned for a horizon outside [1, MaxHorizon]
var ErrInvalidHorizon = errors.New("invalid forecast horizon")

// Status tells the caller whether a forecast could be produced
type Status string

const (
	StatusOK                  Status = "ok"
	StatusInsufficientHistory Status = "insufficient_history"
	StatusNoModelYet          Status = "no_model_yet"
)

// Store is what the forecaster reads
type Store interface {
	db.ObservationStore
	db.ModelStore
}

// Result is a forecast, or the reason there is none
type Result struct {
	Status Status
	Count  int // history length at request time
	Values []float64

	// ModelVersion is the version of the stored model used
	ModelVersion int
}

// Final returns the last forecast value, or 0 when there is none
func (r *Result) Final() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	return r.Values[len(r.Values)-1]
}

// Forecaster loads a user's model per request; nothing is cached between calls
type Forecaster struct {
	store      Store
	maxHorizon int
	metrics    *metrics.Metrics

	// decode restores a stored model; replaced in tests
	decode func(data []byte) (model.Regressor, error)
}

// NewForecaster creates a Forecaster. m may be nil.
func NewForecaster(store Store, maxHorizon int, m *metrics.Metrics) *Forecaster {
	return &Forecaster{
		store:      store,
		maxHorizon: maxHorizon,
		metrics:    m,
		decode:     model.Unmarshal,
	}
}

// MaxHorizon is the largest accepted horizon
func (f *Forecaster) MaxHorizon() int {
	return f.maxHorizon
}

// Forecast predicts horizonDays successive mood values for userID
func (f *Forecaster) Forecast(ctx context.Context, userID string, horizonDays int) (*Result, error) {
	if horizonDays < 1 || horizonDays > f.maxHorizon {
		return nil, fmt.Errorf("%w: %d is outside [1, %d]", ErrInvalidHorizon, horizonDays, f.maxHorizon)
	}

	log := logger.ForUser(userID)

	history, err := f.store.History(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to read history for forecast")
		return nil, db.NewStoreError("read history", userID, err)
	}

	if len(history) < training.MinTrainingSize {
		return f.done(&Result{Status: StatusInsufficientHistory, Count: len(history)}, horizonDays), nil
	}

	stored, err := f.store.LoadModel(ctx, userID)
	if errors.Is(err, db.ErrModelNotFound) {
		return f.done(&Result{Status: StatusNoModelYet, Count: len(history)}, horizonDays), nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to load model for forecast")
		return nil, db.NewStoreError("load model", userID, err)
	}

	reg, err := f.decode(stored.Data)
	if err != nil {
		log.WithError(err).Error("Stored model is unreadable")
		return nil, db.NewStoreError("decode model", userID, err)
	}

	rows, _ := model.Frame(history)
	values, err := Roll(reg, rows, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("forecast user=%s: %w", userID, err)
	}

	log.WithFields(logrus.Fields{
		"horizon":       horizonDays,
		"model_version": stored.Version,
		"final":         values[len(values)-1],
	}).Debug("Produced forecast")

	return f.done(&Result{
		Status:       StatusOK,
		Count:        len(history),
		Values:       values,
		ModelVersion: stored.Version,
	}, horizonDays), nil
}

func (f *Forecaster) done(r *Result, horizon int) *Result {
	if f.metrics != nil {
		f.metrics.RecordForecast(string(r.Status), horizon)
	}
	return r
}

// Roll runs the feature-freeze loop over rows for horizon steps
func Roll(reg model.Regressor, rows [][]float64, horizon int) ([]float64, error) {
	window := model.Window(rows, reg.WindowSize())
	if len(window) == 0 {
		return nil, model.ErrBadWindow
	}

	values := make([]float64, 0, horizon)
	for step := 0; step < horizon; step++ {
		next, err := reg.Predict(window)
		if err != nil {
			return nil, fmt.Errorf("predict step %d: %w", step+1, err)
		}
		values = append(values, next)

		pseudo := append([]float64(nil), window[len(window)-1]...)
		pseudo[model.MoodSlot] = next
		window = append(window[1:], pseudo)
	}
	return values, nil
}
