package db

import "time"

// Observation represents one survey submission in the database
type Observation struct {
	ID             string
	UserID         string
	Timestamp      time.Time
	Mood           float64
	SleepTime      float64
	ToSleepTime    float64
	TrainingTime   float64
	Weight         float64
	TypingSpeed    float64
	TypingAccuracy float64
}

// StoredModel represents the single live model slot of a user
type StoredModel struct {
	UserID      string
	Kind        string
	Data        []byte // opaque serialized regressor
	TrainedRows int
	Version     int
	TrainedAt   time.Time
}

// Training run decisions
const (
	DecisionInsufficient = "insufficient"
	DecisionTrained      = "trained"
	DecisionSkipped      = "skipped"
	DecisionFailed       = "failed"
)

// TrainingRun is one entry of the retraining provenance log
type TrainingRun struct {
	ID         string
	UserID     string
	HistoryLen int
	Decision   string
	Reason     string
	CreatedAt  time.Time
}
