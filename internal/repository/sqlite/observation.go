package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const observationColumns = `id, user_id, ts, mood, sleep_time, to_sleep_time, training_time, weight, typing_speed, typing_accuracy`

// Append stores a new observation; it never replaces an existing row
func (s *Store) Append(ctx context.Context, obs db.Observation) (*db.Observation, error) {
	obs.ID = uuid.New().String()
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}
	obs.Timestamp = obs.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (`+observationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.UserID, formatTime(obs.Timestamp),
		obs.Mood, obs.SleepTime, obs.ToSleepTime, obs.TrainingTime,
		obs.Weight, obs.TypingSpeed, obs.TypingAccuracy,
	)
	if err != nil {
		return nil, db.NewStoreError("append observation", obs.UserID, err)
	}
	return &obs, nil
}

// History returns the user's observations ascending by timestamp.
// Rows with an unreadable timestamp are skipped.
func (s *Store) History(ctx context.Context, userID string) ([]db.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE user_id = ? ORDER BY ts ASC, seq ASC`,
		userID,
	)
	if err != nil {
		return nil, db.NewStoreError("read history", userID, err)
	}
	defer rows.Close()

	history, err := scanObservations(rows)
	if err != nil {
		return nil, db.NewStoreError("read history", userID, err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history, nil
}

// AllHistory returns every observation ordered by user then timestamp
func (s *Store) AllHistory(ctx context.Context) ([]db.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM observations ORDER BY user_id ASC, ts ASC, seq ASC`,
	)
	if err != nil {
		return nil, db.NewStoreError("read all history", "", err)
	}
	defer rows.Close()

	history, err := scanObservations(rows)
	if err != nil {
		return nil, db.NewStoreError("read all history", "", err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].UserID != history[j].UserID {
			return history[i].UserID < history[j].UserID
		}
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history, nil
}

func scanObservations(rows *sql.Rows) ([]db.Observation, error) {
	history := []db.Observation{}
	for rows.Next() {
		var obs db.Observation
		var ts string
		var mood, sleep, toSleep, training, weight, speed, accuracy any
		if err := rows.Scan(&obs.ID, &obs.UserID, &ts,
			&mood, &sleep, &toSleep, &training, &weight, &speed, &accuracy); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id":        obs.UserID,
				"observation_id": obs.ID,
				"ts":             ts,
			}).Warn("Skipping observation with unreadable timestamp")
			continue
		}
		obs.Timestamp = t
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
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return history, nil
}
