package sqlite

import (
	"context"
	"fmt"
	"moodwave/internal/repository/db"
	"time"

	"github.com/google/uuid"
)

// RecordTrainingRun appends one decision to the provenance log
func (s *Store) RecordTrainingRun(ctx context.Context, run db.TrainingRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, user_id, history_len, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), run.UserID, run.HistoryLen, run.Decision, run.Reason, formatTime(time.Now()),
	)
	if err != nil {
		return db.NewStoreError("record training run", run.UserID, err)
	}
	return nil
}

// ListTrainingRuns returns up to limit runs for the user, newest first
func (s *Store) ListTrainingRuns(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, history_len, decision, reason, created_at
		 FROM training_runs WHERE user_id = ? ORDER BY seq DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, db.NewStoreError("list training runs", userID, err)
	}
	defer rows.Close()

	runs := []db.TrainingRun{}
	for rows.Next() {
		var run db.TrainingRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.UserID, &run.HistoryLen, &run.Decision, &run.Reason, &createdAt); err != nil {
			return nil, db.NewStoreError("list training runs", userID, fmt.Errorf("scan: %w", err))
		}
		if run.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, db.NewStoreError("list training runs", userID, fmt.Errorf("parse created_at: %w", err))
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewStoreError("list training runs", userID, err)
	}
	return runs, nil
}
