// Package survey turns a raw submission form into observation fields.
//
// Derive never fails. Every value that cannot be parsed falls back to a
// documented default so that a half-filled form still yields a usable row.
package survey

import (
	"math"
	"strconv"
	"strings"
	"time"

	"moodwave/internal/repository/db"
)

// Questions is the number of survey questions that make up the mood score
const Questions = 6

// Polarity tags
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
)

// Form field names
const (
	FieldSleepStart     = "sleep_start"
	FieldWakeTime       = "wake_time"
	FieldTimeToSleep    = "time_to_sleep"
	FieldTrainingTime   = "training_time"
	FieldWeight         = "weight"
	FieldTypingSpeed    = "typing_speed"
	FieldTypingAccuracy = "typing_accuracy"
)

// DefaultToSleep is used for a missing or unknown time-to-sleep bucket
const DefaultToSleep = 7.5

// toSleepBuckets maps the answer bucket to its representative minutes
var toSleepBuckets = map[string]float64{
	"0-15":  7.5,
	"15-30": 22.5,
	"30-60": 45.0,
	"60+":   60.0,
}

// Fields are the numeric parts of an observation derived from one form
type Fields struct {
	Mood           float64
	SleepTime      float64
	ToSleepTime    float64
	TrainingTime   float64
	Weight         float64
	TypingSpeed    float64
	TypingAccuracy float64
}

// Observation turns the fields into an observation for userID at ts
func (f Fields) Observation(userID string, ts time.Time) db.Observation {
	return db.Observation{
		UserID:         userID,
		Timestamp:      ts,
		Mood:           f.Mood,
		SleepTime:      f.SleepTime,
		ToSleepTime:    f.ToSleepTime,
		TrainingTime:   f.TrainingTime,
		Weight:         f.Weight,
		TypingSpeed:    f.TypingSpeed,
		TypingAccuracy: f.TypingAccuracy,
	}
}

// Derive maps raw form values to observation fields
func Derive(form map[string]string) Fields {
	return Fields{
		Mood:           Mood(form),
		SleepTime:      SleepHours(form[FieldSleepStart], form[FieldWakeTime]),
		ToSleepTime:    ToSleepMinutes(form[FieldTimeToSleep]),
		TrainingTime:   ParseFloat(form[FieldTrainingTime]),
		Weight:         ParseFloat(form[FieldWeight]),
		TypingSpeed:    ParseFloat(form[FieldTypingSpeed]),
		TypingAccuracy: ParseFloat(form[FieldTypingAccuracy]),
	}
}

// Mood averages the signed answers q1..q6. A question tagged "negative" counts
// against the score; any other tag, or none, counts for it.
func Mood(form map[string]string) float64 {
	var sum float64
	for i := 1; i <= Questions; i++ {
		key := "q" + strconv.Itoa(i)
		val := ParseFloat(form[key])
		if strings.TrimSpace(form[key+"_polarity"]) == PolarityNegative {
			val = -val
		}
		sum += val
	}
	return sum / Questions
}

// SleepHours is the time from start to wake in hours, rounded to 2 decimals.
// A wake time at or before the start is taken to be on the next day.
func SleepHours(start, wake string) float64 {
	t1, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return 0
	}
	t2, err := time.Parse("15:04", strings.TrimSpace(wake))
	if err != nil {
		return 0
	}
	if !t2.After(t1) {
		t2 = t2.Add(24 * time.Hour)
	}
	return math.Round(t2.Sub(t1).Hours()*100) / 100
}

// ToSleepMinutes looks up the bucket's representative value
func ToSleepMinutes(bucket string) float64 {
	if v, ok := toSleepBuckets[strings.TrimSpace(bucket)]; ok {
		return v
	}
	return DefaultToSleep
}

// ParseFloat parses s, returning 0 for empty, malformed or non-finite input
func ParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
