package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const observationColumns = `id, user_id, ts, mood, sleep_time, to_sleep_time, training_time, weight, typing_speed, typing_accuracy`

// Append stores a new observation for a user
func (p *PostgresDB) Append(ctx context.Context, obs db.Observation) (*db.Observation, error) {
	obs.ID = uuid.New().String()
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}

	query := `
	INSERT INTO observations (` + observationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := p.conn.ExecContext(ctx, query,
		obs.ID, obs.UserID, obs.Timestamp,
		obs.Mood, obs.SleepTime, obs.ToSleepTime, obs.TrainingTime,
		obs.Weight, obs.TypingSpeed, obs.TypingAccuracy,
	)
	if err != nil {
		return nil, db.NewStoreError("append observation", obs.UserID, err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": obs.UserID, "observation_id": obs.ID}).Debug("Appended observation")

	return &obs, nil
}

// History retrieves a user's observations in chronological order
func (p *PostgresDB) History(ctx context.Context, userID string) ([]db.Observation, error) {
	query := `
	SELECT ` + observationColumns + `
	FROM observations
	WHERE user_id = $1
	ORDER BY ts ASC, seq ASC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, db.NewStoreError("read history", userID, err)
	}
	defer rows.Close()

	history, err := scanObservations(rows)
	if err != nil {
		return nil, db.NewStoreError("read history", userID, err)
	}
	return history, nil
}

// AllHistory retrieves every user's observations grouped by user
func (p *PostgresDB) AllHistory(ctx context.Context) ([]db.Observation, error) {
	query := `
	SELECT ` + observationColumns + `
	FROM observations
	ORDER BY user_id ASC, ts ASC, seq ASC
	`

	rows, err := p.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, db.NewStoreError("read all history", "", err)
	}
	defer rows.Close()

	history, err := scanObservations(rows)
	if err != nil {
		return nil, db.NewStoreError("read all history", "", err)
	}
	return history, nil
}

func scanObservations(rows *sql.Rows) ([]db.Observation, error) {
	history := []db.Observation{}
	for rows.Next() {
		var obs db.Observation
		var mood, sleep, toSleep, training, weight, speed, accuracy any
		if err := rows.Scan(&obs.ID, &obs.UserID, &obs.Timestamp,
			&mood, &sleep, &toSleep, &training, &weight, &speed, &accuracy); err != nil {
			return nil, fmt.Errorf("error scanning observation: %w", err)
		}
		obs.Mood = db.CoerceFloat(mood)
		obs.SleepTime = db.CoerceFloat(sleep)
		obs.ToSleepTime = db.CoerceFloat(toSleep)
		obs.TrainingTime = db.CoerceFloat(training)
		obs.Weight = db.CoerceFloat(weight)
		obs.TypingSpeed = db.CoerceFloat(speed)
		obs.TypingAccuracy = db.CoerceFloat(accuracy)
		history = append(history, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return history, nil
}
