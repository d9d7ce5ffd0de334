package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"moodwave/internal/repository/db"
	"time"
)

// SaveModel replaces the user's model in one upsert statement
func (s *Store) SaveModel(ctx context.Context, m db.StoredModel) (*db.StoredModel, error) {
	m.TrainedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO models (user_id, kind, data, trained_rows, version, trained_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			kind = excluded.kind,
			data = excluded.data,
			trained_rows = excluded.trained_rows,
			version = models.version + 1,
			trained_at = excluded.trained_at
		 RETURNING version`,
		m.UserID, m.Kind, m.Data, m.TrainedRows, formatTime(m.TrainedAt),
	).Scan(&m.Version)
	if err != nil {
		return nil, db.NewStoreError("save model", m.UserID, err)
	}
	return &m, nil
}

// LoadModel returns the user's model or db.ErrModelNotFound
func (s *Store) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	var m db.StoredModel
	var trainedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, kind, data, trained_rows, version, trained_at FROM models WHERE user_id = ?`,
		userID,
	).Scan(&m.UserID, &m.Kind, &m.Data, &m.TrainedRows, &m.Version, &trainedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrModelNotFound
	}
	if err != nil {
		return nil, db.NewStoreError("load model", userID, err)
	}

	t, err := parseTime(trainedAt)
	if err != nil {
		return nil, db.NewStoreError("load model", userID, fmt.Errorf("parse trained_at: %w", err))
	}
	m.TrainedAt = t
	return &m, nil
}

// DeleteModel removes the user's model if present
func (s *Store) DeleteModel(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE user_id = ?`, userID); err != nil {
		return db.NewStoreError("delete model", userID, err)
	}
	return nil
}
