// Package training decides when a user's model is refitted and performs the refit.
//
// A user below MinTrainingSize observations is INSUFFICIENT and never trained.
// From then on the user is TRAINABLE and the configured Policy chooses whether a
// given append triggers a full refit over the entire history. A failed fit never
// replaces the model already in the store.
package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodwave/internal/config"
	"moodwave/internal/logger"
	"moodwave/internal/metrics"
	"moodwave/internal/model"
	"moodwave/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// MinTrainingSize is the history length at which a user becomes trainable
const MinTrainingSize = 5

// ErrTrainingFailure marks an Outcome warning: the fit was attempted and rejected
var ErrTrainingFailure = errors.New("training failure")

// Policy decides how often a trainable user is refitted
type Policy string

const (
	PolicyAlways Policy = "always"
	PolicyOnce   Policy = "once"
	PolicyEveryN Policy = "every_n"
)

// State is the retraining state of a user
type State string

const (
	StateInsufficient State = "INSUFFICIENT"
	StateTrainable    State = "TRAINABLE"
)

// Store is what the controller needs from persistence
type Store interface {
	db.ObservationStore
	db.ModelStore
	db.TrainingRunStore
}

// Outcome describes what one retraining check did
type Outcome struct {
	UserID     string
	HistoryLen int
	State      State
	Decision   string

	// Model is the freshly saved model when Decision is db.DecisionTrained
	Model *db.StoredModel

	// Warning is set when a fit was rejected; it wraps ErrTrainingFailure
	Warning error
}

// Trained reports whether a new model was saved
func (o *Outcome) Trained() bool {
	return o.Decision == db.DecisionTrained
}

// Controller runs the retraining state machine
type Controller struct {
	store   Store
	factory model.Factory
	policy  Policy
	every   int
	locks   *keyedMutex
	metrics *metrics.Metrics
}

// NewController creates a Controller. m may be nil.
func NewController(store Store, factory model.Factory, cfg config.TrainingConfig, m *metrics.Metrics) (*Controller, error) {
	policy := Policy(cfg.Policy)
	switch policy {
	case PolicyAlways, PolicyOnce, PolicyEveryN:
	default:
		return nil, fmt.Errorf("unknown retrain policy %q", cfg.Policy)
	}
	if policy == PolicyEveryN && cfg.Every < 1 {
		return nil, fmt.Errorf("retrain interval must be positive, got %d", cfg.Every)
	}

	return &Controller{
		store:   store,
		factory: factory,
		policy:  policy,
		every:   cfg.Every,
		locks:   newKeyedMutex(),
		metrics: m,
	}, nil
}

// OnAppend runs after an observation for userID has been durably appended.
// Only store failures are returned as errors.
func (c *Controller) OnAppend(ctx context.Context, userID string) (*Outcome, error) {
	return c.run(ctx, userID, false)
}

// Retrain refits a trainable user regardless of policy
func (c *Controller) Retrain(ctx context.Context, userID string) (*Outcome, error) {
	return c.run(ctx, userID, true)
}

func (c *Controller) run(ctx context.Context, userID string, force bool) (*Outcome, error) {
	unlock := c.locks.Lock(userID)
	defer unlock()

	log := logger.ForUser(userID)

	history, err := c.store.History(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to read history for retraining")
		return nil, db.NewStoreError("read history", userID, err)
	}

	out := &Outcome{UserID: userID, HistoryLen: len(history)}

	if len(history) < MinTrainingSize {
		out.State = StateInsufficient
		out.Decision = db.DecisionInsufficient
		c.finish(ctx, out, fmt.Sprintf("%d of %d observations", len(history), MinTrainingSize), 0)
		return out, nil
	}
	out.State = StateTrainable

	if !force {
		retrain, err := c.shouldRetrain(ctx, userID, len(history))
		if err != nil {
			log.WithError(err).Error("Failed to check existing model")
			return nil, err
		}
		if !retrain {
			out.Decision = db.DecisionSkipped
			c.finish(ctx, out, fmt.Sprintf("policy %s", c.policy), 0)
			return out, nil
		}
	}

	start := time.Now()
	data, kind, fitErr := c.fit(history)
	elapsed := time.Since(start).Seconds()
	if fitErr != nil {
		out.Decision = db.DecisionFailed
		out.Warning = fmt.Errorf("%w: retraining skipped for %d rows: %w", ErrTrainingFailure, len(history), fitErr)
		log.WithFields(logrus.Fields{"rows": len(history), "error": fitErr}).Warn("Training failed, keeping previous model")
		c.finish(ctx, out, fitErr.Error(), elapsed)
		return out, nil
	}

	saved, err := c.store.SaveModel(ctx, db.StoredModel{
		UserID:      userID,
		Kind:        string(kind),
		Data:        data,
		TrainedRows: len(history),
	})
	if err != nil {
		log.WithError(err).Error("Failed to save model")
		return nil, db.NewStoreError("save model", userID, err)
	}

	out.Decision = db.DecisionTrained
	out.Model = saved
	c.finish(ctx, out, fmt.Sprintf("version %d", saved.Version), elapsed)
	return out, nil
}

// shouldRetrain applies the policy to a trainable user
func (c *Controller) shouldRetrain(ctx context.Context, userID string, historyLen int) (bool, error) {
	if c.policy == PolicyAlways {
		return true, nil
	}

	_, err := c.store.LoadModel(ctx, userID)
	hasModel := err == nil
	switch {
	case err == nil, errors.Is(err, db.ErrModelNotFound):
	case errors.Is(err, db.ErrCorruptData):
		// refit over the unreadable slot
		logger.ForUser(userID).WithError(err).Warn("Stored model is corrupt, retraining")
	default:
		return false, db.NewStoreError("load model", userID, err)
	}

	return decide(c.policy, c.every, historyLen, hasModel), nil
}

func decide(policy Policy, every, historyLen int, hasModel bool) bool {
	switch policy {
	case PolicyOnce:
		return !hasModel
	case PolicyEveryN:
		return !hasModel || (historyLen-MinTrainingSize)%every == 0
	default:
		return true
	}
}

// fit trains a fresh regressor over the whole history and serializes it
func (c *Controller) fit(history []db.Observation) ([]byte, model.Kind, error) {
	reg := c.factory()
	rows, labels := model.Frame(history)
	if err := reg.Fit(rows, labels); err != nil {
		return nil, "", err
	}
	data, err := model.Marshal(reg)
	if err != nil {
		return nil, "", err
	}
	return data, reg.Kind(), nil
}

// finish logs the decision and appends it to the provenance log
func (c *Controller) finish(ctx context.Context, out *Outcome, reason string, seconds float64) {
	logger.ForUser(out.UserID).WithFields(logrus.Fields{
		"history_len": out.HistoryLen,
		"state":       out.State,
		"decision":    out.Decision,
	}).Info("Retraining decision")

	if c.metrics != nil {
		c.metrics.RecordTrainingDecision(out.Decision, seconds)
	}

	run := db.TrainingRun{
		UserID:     out.UserID,
		HistoryLen: out.HistoryLen,
		Decision:   out.Decision,
		Reason:     reason,
	}
	if err := c.store.RecordTrainingRun(ctx, run); err != nil {
		logger.ForUser(out.UserID).WithError(err).Warn("Failed to record training run")
	}
}
