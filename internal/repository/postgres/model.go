package postgres

import (
	"context"
	"database/sql"
	"errors"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// SaveModel replaces the user's model in a single upsert and bumps its version
func (p *PostgresDB) SaveModel(ctx context.Context, m db.StoredModel) (*db.StoredModel, error) {
	query := `
	INSERT INTO models (user_id, kind, data, trained_rows, version, trained_at)
	VALUES ($1, $2, $3, $4, 1, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		kind = EXCLUDED.kind,
		data = EXCLUDED.data,
		trained_rows = EXCLUDED.trained_rows,
		version = models.version + 1,
		trained_at = EXCLUDED.trained_at
	RETURNING version, trained_at
	`

	err := p.conn.QueryRowContext(ctx, query, m.UserID, m.Kind, m.Data, m.TrainedRows).Scan(&m.Version, &m.TrainedAt)
	if err != nil {
		return nil, db.NewStoreError("save model", m.UserID, err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": m.UserID, "version": m.Version, "rows": m.TrainedRows}).Info("Saved model")

	return &m, nil
}

// LoadModel retrieves the user's model or db.ErrModelNotFound
func (p *PostgresDB) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	query := `SELECT user_id, kind, data, trained_rows, version, trained_at FROM models WHERE user_id = $1`

	var m db.StoredModel
	err := p.conn.QueryRowContext(ctx, query, userID).Scan(&m.UserID, &m.Kind, &m.Data, &m.TrainedRows, &m.Version, &m.TrainedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrModelNotFound
		}
		return nil, db.NewStoreError("load model", userID, err)
	}

	return &m, nil
}

// DeleteModel removes the user's model; deleting a missing model is not an error
func (p *PostgresDB) DeleteModel(ctx context.Context, userID string) error {
	if _, err := p.conn.ExecContext(ctx, `DELETE FROM models WHERE user_id = $1`, userID); err != nil {
		return db.NewStoreError("delete model", userID, err)
	}
	logger.Log.WithField("user_id", userID).Info("Deleted model")
	return nil
}
