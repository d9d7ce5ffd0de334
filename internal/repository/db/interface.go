package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrModelNotFound is returned by LoadModel when the user has never been trained.
	// It is a normal state, not a failure.
	ErrModelNotFound = errors.New("model not found")

	// ErrStoreUnavailable marks any failure of the persistence collaborator
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCorruptData marks a stored record that exists but cannot be decoded.
	// It is a fault of one user's data, not of the backend.
	ErrCorruptData = errors.New("corrupt stored data")
)

// ObservationStore is the append-only, per-user observation log
type ObservationStore interface {
	// Append durably adds an observation and returns it with its assigned ID
	Append(ctx context.Context, obs Observation) (*Observation, error)

	// History returns the user's observations ascending by timestamp; empty for unknown users
	History(ctx context.Context, userID string) ([]Observation, error)

	// AllHistory returns every user's observations ordered by user then timestamp
	AllHistory(ctx context.Context) ([]Observation, error)
}

// ModelStore holds at most one trained model per user
type ModelStore interface {
	SaveModel(ctx context.Context, m StoredModel) (*StoredModel, error)
	LoadModel(ctx context.Context, userID string) (*StoredModel, error)
	DeleteModel(ctx context.Context, userID string) error
}

// TrainingRunStore records retraining decisions
type TrainingRunStore interface {
	RecordTrainingRun(ctx context.Context, run TrainingRun) error
	ListTrainingRuns(ctx context.Context, userID string, limit int) ([]TrainingRun, error)
}

// Database groups every store a backend provides
type Database interface {
	ObservationStore
	ModelStore
	TrainingRunStore
	Close() error
}

// StoreError decorates a persistence failure with the operation and user for diagnostics.
// It matches both ErrStoreUnavailable and the underlying cause with errors.Is.
type StoreError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StoreError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s user=%s: %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// NewStoreError wraps err for op/userID, returning nil for a nil err
func NewStoreError(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, UserID: userID, Err: err}
}

// CoerceFloat converts a scanned column value to float64.
// Rows written by older versions may hold NULLs, text or non-finite values; all of those read as 0.
func CoerceFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case []byte:
		f = parseFloatOrZero(string(x))
	case string:
		f = parseFloatOrZero(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
