// Package resilient guards a store backend with a circuit breaker.
//
// After FailureThreshold consecutive persistence failures the breaker opens and
// calls fail fast with an error matching db.ErrStoreUnavailable until Timeout
// elapses. A missing model is a normal answer and never counts as a failure,
// and neither does one user's corrupt record.
package resilient

import (
	"context"
	"errors"
	"moodwave/internal/config"
	"moodwave/internal/logger"
	"moodwave/internal/metrics"
	"moodwave/internal/repository/db"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

var _ db.Database = (*Database)(nil)

// Database wraps another db.Database
type Database struct {
	inner   db.Database
	cb      *gobreaker.CircuitBreaker[any]
	metrics *metrics.Metrics
}

// Wrap returns inner guarded by a breaker named name. m may be nil.
func Wrap(inner db.Database, name string, cfg config.BreakerConfig, m *metrics.Metrics) *Database {
	d := &Database{inner: inner, metrics: m}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Store circuit breaker changed state")
			if d.metrics != nil {
				d.metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
			}
		},
	}
	d.cb = gobreaker.NewCircuitBreaker[any](settings)

	return d
}

// State reports the breaker state
func (d *Database) State() gobreaker.State {
	return d.cb.State()
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, db.ErrModelNotFound) ||
		errors.Is(err, db.ErrCorruptData) ||
		errors.Is(err, context.Canceled)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func execute[T any](d *Database, op, userID string, fn func() (T, error)) (T, error) {
	var zero T
	v, err := d.cb.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = db.NewStoreError(op, userID, err)
		}
		if d.metrics != nil && !isSuccessful(err) {
			d.metrics.StoreErrors.WithLabelValues(op).Inc()
		}
		return zero, err
	}
	return v.(T), nil
}

func (d *Database) Append(ctx context.Context, obs db.Observation) (*db.Observation, error) {
	return execute(d, "append observation", obs.UserID, func() (*db.Observation, error) {
		return d.inner.Append(ctx, obs)
	})
}

func (d *Database) History(ctx context.Context, userID string) ([]db.Observation, error) {
	return execute(d, "read history", userID, func() ([]db.Observation, error) {
		return d.inner.History(ctx, userID)
	})
}

func (d *Database) AllHistory(ctx context.Context) ([]db.Observation, error) {
	return execute(d, "read all history", "", func() ([]db.Observation, error) {
		return d.inner.AllHistory(ctx)
	})
}

func (d *Database) SaveModel(ctx context.Context, m db.StoredModel) (*db.StoredModel, error) {
	return execute(d, "save model", m.UserID, func() (*db.StoredModel, error) {
		return d.inner.SaveModel(ctx, m)
	})
}

func (d *Database) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	return execute(d, "load model", userID, func() (*db.StoredModel, error) {
		return d.inner.LoadModel(ctx, userID)
	})
}

func (d *Database) DeleteModel(ctx context.Context, userID string) error {
	_, err := execute(d, "delete model", userID, func() (struct{}, error) {
		return struct{}{}, d.inner.DeleteModel(ctx, userID)
	})
	return err
}

func (d *Database) RecordTrainingRun(ctx context.Context, run db.TrainingRun) error {
	_, err := execute(d, "record training run", run.UserID, func() (struct{}, error) {
		return struct{}{}, d.inner.RecordTrainingRun(ctx, run)
	})
	return err
}

func (d *Database) ListTrainingRuns(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error) {
	return execute(d, "list training runs", userID, func() ([]db.TrainingRun, error) {
		return d.inner.ListTrainingRuns(ctx, userID, limit)
	})
}

// Close closes the wrapped backend without going through the breaker
func (d *Database) Close() error {
	return d.inner.Close()
}
