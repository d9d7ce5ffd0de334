package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"moodwave/internal/repository/db"
	"moodwave/internal/service/training"
	"moodwave/internal/testutil"
)

type mockRetrainer struct {
	OnAppendFunc func(ctx context.Context, userID string) (*training.Outcome, error)
	calls        []string
}

func (m *mockRetrainer) OnAppend(ctx context.Context, userID string) (*training.Outcome, error) {
	m.calls = append(m.calls, userID)
	if m.OnAppendFunc != nil {
		return m.OnAppendFunc(ctx, userID)
	}
	return &training.Outcome{UserID: userID, Decision: db.DecisionInsufficient}, nil
}

func TestSubmit(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	retrainer := &mockRetrainer{}
	s := NewService(store, retrainer, nil)
	fixed := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	res, err := s.Submit(context.Background(), "alice", map[string]string{
		"q1":            "0.6",
		"sleep_start":   "23:30",
		"wake_time":     "07:15",
		"time_to_sleep": "15-30",
		"weight":        "heavy",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.Observation.ID == "" || res.Observation.UserID != "alice" || !res.Observation.Timestamp.Equal(fixed) {
		t.Errorf("observation = %+v", res.Observation)
	}
	if res.Observation.SleepTime != 7.75 || res.Observation.ToSleepTime != 22.5 || res.Observation.Weight != 0 {
		t.Errorf("derived fields = %+v", res.Observation)
	}
	if res.Training == nil || res.Training.Decision != db.DecisionInsufficient {
		t.Errorf("training outcome = %+v", res.Training)
	}
	if len(retrainer.calls) != 1 || retrainer.calls[0] != "alice" {
		t.Errorf("retrainer calls = %v", retrainer.calls)
	}

	history, _ := store.History(context.Background(), "alice")
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestSubmit_AppendFailureSkipsRetraining(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	store.Fail = errors.New("read-only file system")
	retrainer := &mockRetrainer{}

	_, err := NewService(store, retrainer, nil).Submit(context.Background(), "alice", nil)
	if !errors.Is(err, db.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if len(retrainer.calls) != 0 {
		t.Error("retraining ran after a failed append")
	}
}

func TestSubmit_RetrainFailureKeepsObservation(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	retrainer := &mockRetrainer{OnAppendFunc: func(ctx context.Context, userID string) (*training.Outcome, error) {
		return nil, db.NewStoreError("save model", userID, errors.New("timeout"))
	}}

	res, err := NewService(store, retrainer, nil).Submit(context.Background(), "alice", nil)
	if !errors.Is(err, db.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if res == nil || res.Observation == nil {
		t.Fatal("stored observation was not returned")
	}

	history, _ := store.History(context.Background(), "alice")
	if len(history) != 1 {
		t.Errorf("append was rolled back: history length = %d", len(history))
	}
}
