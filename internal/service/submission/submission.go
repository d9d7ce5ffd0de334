package submission

import (
	"context"
	"fmt"
	"time"

	"moodwave/internal/logger"
	"moodwave/internal/metrics"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/survey"
	"moodwave/internal/service/training"
)

// Retrainer is the part of the retraining controller a submission triggers
type Retrainer interface {
	OnAppend(ctx context.Context, userID string) (*training.Outcome, error)
}

// Result is the outcome of one submission
type Result struct {
	Observation *db.Observation
	Training    *training.Outcome
}

// Service derives, stores and retrains for one submitted form
type Service struct {
	store     db.ObservationStore
	retrainer Retrainer
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a submission Service. m may be nil.
func NewService(store db.ObservationStore, retrainer Retrainer, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		retrainer: retrainer,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit turns form into an observation for userID, appends it, then runs retraining.
// The append is durable before retraining starts; a retraining store failure is
// returned together with the stored observation.
func (s *Service) Submit(ctx context.Context, userID string, form map[string]string) (*Result, error) {
	fields := survey.Derive(form)
	return s.Record(ctx, fields.Observation(userID, s.now().UTC()))
}

// Record appends an already derived observation and runs retraining
func (s *Service) Record(ctx context.Context, obs db.Observation) (*Result, error) {
	saved, err := s.store.Append(ctx, obs)
	if err != nil {
		logger.ForUser(obs.UserID).WithError(err).Error("Failed to append observation")
		return nil, db.NewStoreError("append observation", obs.UserID, err)
	}
	if s.metrics != nil {
		s.metrics.ObservationsAppended.Inc()
	}

	res := &Result{Observation: saved}

	outcome, err := s.retrainer.OnAppend(ctx, obs.UserID)
	if err != nil {
		return res, fmt.Errorf("observation %s stored, retraining aborted: %w", saved.ID, err)
	}
	res.Training = outcome

	return res, nil
}
