package postgres

import (
	"context"
	"fmt"
	"moodwave/internal/repository/db"

	"github.com/google/uuid"
)

// RecordTrainingRun appends a retraining decision to the provenance log
func (p *PostgresDB) RecordTrainingRun(ctx context.Context, run db.TrainingRun) error {
	query := `
	INSERT INTO training_runs (id, user_id, history_len, decision, reason)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := p.conn.ExecContext(ctx, query, uuid.New().String(), run.UserID, run.HistoryLen, run.Decision, run.Reason)
	if err != nil {
		return db.NewStoreError("record training run", run.UserID, err)
	}
	return nil
}

// ListTrainingRuns returns the most recent runs for a user, newest first
func (p *PostgresDB) ListTrainingRuns(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error) {
	query := `
	SELECT id, user_id, history_len, decision, reason, created_at
	FROM training_runs
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := p.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, db.NewStoreError("list training runs", userID, err)
	}
	defer rows.Close()

	runs := []db.TrainingRun{}
	for rows.Next() {
		var run db.TrainingRun
		if err := rows.Scan(&run.ID, &run.UserID, &run.HistoryLen, &run.Decision, &run.Reason, &run.CreatedAt); err != nil {
			return nil, db.NewStoreError("list training runs", userID, fmt.Errorf("error scanning training run: %w", err))
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewStoreError("list training runs", userID, err)
	}
	return runs, nil
}
