// Package importer moves observation logs in and out of the store as CSV.
//
// The accepted format is the legacy survey log: a header row naming
// timestamp, mood, sleep_time, to_sleep_time, training_time, weight,
// typing_speed and optionally typing_accuracy, in any order. Numeric cells
// that do not parse read as 0. Rows whose timestamp does not parse are dropped.
// Files written by Export also carry a user_id column; Import only takes the
// rows that belong to the target user.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/survey"
	"moodwave/internal/service/training"

	"github.com/sirupsen/logrus"
)

// Column names
const (
	ColumnUserID         = "user_id"
	ColumnTimestamp      = "timestamp"
	ColumnMood           = "mood"
	ColumnSleepTime      = "sleep_time"
	ColumnToSleepTime    = "to_sleep_time"
	ColumnTrainingTime   = "training_time"
	ColumnWeight         = "weight"
	ColumnTypingSpeed    = "typing_speed"
	ColumnTypingAccuracy = "typing_accuracy"
)

// ExportColumns is the header written by Export
var ExportColumns = []string{
	ColumnUserID, ColumnTimestamp, ColumnMood, ColumnSleepTime, ColumnToSleepTime,
	ColumnTrainingTime, ColumnWeight, ColumnTypingSpeed, ColumnTypingAccuracy,
}

// ErrNoTimestampColumn is returned for a header without a timestamp column
var ErrNoTimestampColumn = errors.New("csv header has no timestamp column")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Record is one parsed row. UserID is empty when the file has no user_id column.
type Record struct {
	UserID    string
	Timestamp time.Time
	Fields    survey.Fields
}

// Report summarizes an import
type Report struct {
	Rows     int
	Imported int
	Dropped  int
	// OtherUsers counts rows skipped because their user_id names someone else
	OtherUsers int
	Training   *training.Outcome
}

// Retrainer refits a user after a bulk import
type Retrainer interface {
	Retrain(ctx context.Context, userID string) (*training.Outcome, error)
}

// Parse reads every row of r, sorted by timestamp. It returns the records and
// the number of rows dropped for an unusable timestamp.
func Parse(r io.Reader) ([]Record, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, 0, nil
		}
		return nil, 0, fmt.Errorf("error reading csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := index[ColumnTimestamp]; !ok {
		return nil, 0, ErrNoTimestampColumn
	}

	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	number := func(row []string, column string) float64 {
		return db.CoerceFloat(cell(row, column))
	}

	records := []Record{}
	dropped := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("error reading csv line %d: %w", line, err)
		}

		ts, ok := parseTimestamp(cell(row, ColumnTimestamp))
		if !ok {
			dropped++
			continue
		}

		records = append(records, Record{
			UserID:    strings.TrimSpace(cell(row, ColumnUserID)),
			Timestamp: ts,
			Fields: survey.Fields{
				Mood:           number(row, ColumnMood),
				SleepTime:      number(row, ColumnSleepTime),
				ToSleepTime:    number(row, ColumnToSleepTime),
				TrainingTime:   number(row, ColumnTrainingTime),
				Weight:         number(row, ColumnWeight),
				TypingSpeed:    number(row, ColumnTypingSpeed),
				TypingAccuracy: number(row, ColumnTypingAccuracy),
			},
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, dropped, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// Import appends every usable row of r to userID's history, then retrains once.
// Rows naming a different user_id are skipped, so histories are never merged.
// There is no idempotency key: importing the same file twice duplicates its rows.
// retrainer may be nil to skip retraining.
func Import(ctx context.Context, store db.ObservationStore, retrainer Retrainer, userID string, r io.Reader) (*Report, error) {
	records, dropped, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &Report{Rows: len(records) + dropped, Dropped: dropped}
	for _, rec := range records {
		if rec.UserID != "" && rec.UserID != userID {
			report.OtherUsers++
			continue
		}
		if _, err := store.Append(ctx, rec.Fields.Observation(userID, rec.Timestamp)); err != nil {
			return report, db.NewStoreError("import observation", userID, err)
		}
		report.Imported++
	}

	log := logger.ForUser(userID).WithFields(logrus.Fields{
		"imported":    report.Imported,
		"dropped":     report.Dropped,
		"other_users": report.OtherUsers,
	})
	log.Info("CSV import finished")

	if retrainer != nil && report.Imported > 0 {
		outcome, err := retrainer.Retrain(ctx, userID)
		if err != nil {
			return report, fmt.Errorf("imported %d rows, retraining aborted: %w", report.Imported, err)
		}
		report.Training = outcome
	}

	return report, nil
}

// Export writes every user's history to w and returns the number of rows written
func Export(ctx context.Context, store db.ObservationStore, w io.Writer) (int, error) {
	history, err := store.AllHistory(ctx)
	if err != nil {
		return 0, db.NewStoreError("export history", "", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ExportColumns); err != nil {
		return 0, err
	}

	format := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	for _, obs := range history {
		row := []string{
			obs.UserID,
			obs.Timestamp.UTC().Format(time.RFC3339Nano),
			format(obs.Mood),
			format(obs.SleepTime),
			format(obs.ToSleepTime),
			format(obs.TrainingTime),
			format(obs.Weight),
			format(obs.TypingSpeed),
			format(obs.TypingAccuracy),
		}
		if err := writer.Write(row); err != nil {
			return 0, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(history), nil
}
