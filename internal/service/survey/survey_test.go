package survey

import (
	"math"
	"testing"
	"time"
)

func TestSleepHours(t *testing.T) {
	tests := []struct {
		name  string
		start string
		wake  string
		want  float64
	}{
		{name: "overnight rollover", start: "23:30", wake: "07:15", want: 7.75},
		{name: "same morning", start: "07:00", wake: "07:30", want: 0.5},
		{name: "equal times roll a full day", start: "22:00", wake: "22:00", want: 24},
		{name: "rounded to two decimals", start: "23:00", wake: "06:20", want: 7.33},
		{name: "single digit hour", start: "9:05", wake: "17:05", want: 8},
		{name: "missing start", start: "", wake: "07:00", want: 0},
		{name: "missing wake", start: "23:00", wake: "", want: 0},
		{name: "garbage", start: "late", wake: "early", want: 0},
		{name: "out of range", start: "25:00", wake: "07:00", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SleepHours(tt.start, tt.wake); got != tt.want {
				t.Errorf("SleepHours(%q, %q) = %v, want %v", tt.start, tt.wake, got, tt.want)
			}
		})
	}
}

func TestMood(t *testing.T) {
	form := map[string]string{
		"q1": "0.8", "q1_polarity": "positive",
		"q2": "0.6", "q2_polarity": "positive",
		"q3": "0.9", "q3_polarity": "positive",
		"q4": "-0.7", "q4_polarity": "negative",
		"q5": "-0.5", "q5_polarity": "negative",
		"q6": "-0.6", "q6_polarity": "negative",
	}

	got := Mood(form)
	want := 4.1 / 6
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Mood() = %v, want %v", got, want)
	}
}

func TestMood_PolarityDefaults(t *testing.T) {
	tests := []struct {
		name     string
		polarity string
		want     float64
	}{
		{name: "negative flips sign", polarity: "negative", want: -1.0 / 6},
		{name: "missing counts as positive", polarity: "", want: 1.0 / 6},
		{name: "unknown counts as positive", polarity: "neutral", want: 1.0 / 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := map[string]string{"q1": "1"}
			if tt.polarity != "" {
				form["q1_polarity"] = tt.polarity
			}
			if got := Mood(form); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Mood() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToSleepMinutes(t *testing.T) {
	tests := map[string]float64{
		"0-15":    7.5,
		"15-30":   22.5,
		"30-60":   45,
		"60+":     60,
		"":        DefaultToSleep,
		"forever": DefaultToSleep,
	}

	for bucket, want := range tests {
		if got := ToSleepMinutes(bucket); got != want {
			t.Errorf("ToSleepMinutes(%q) = %v, want %v", bucket, got, want)
		}
	}
}

func TestDerive_TotalFunction(t *testing.T) {
	forms := []map[string]string{
		nil,
		{},
		{
			"q1": "abc", "q2": "NaN", "q3": "inf", "q4": "-Inf", "q5": "1e999", "q6": "",
			"sleep_start": "xx", "wake_time": "07:00", "time_to_sleep": "??",
			"training_time": "thirty", "weight": "NaN", "typing_speed": "+Inf", "typing_accuracy": " ",
		},
	}

	for i, form := range forms {
		f := Derive(form)
		values := []float64{f.Mood, f.SleepTime, f.TrainingTime, f.Weight, f.TypingSpeed, f.TypingAccuracy}
		for j, v := range values {
			if v != 0 {
				t.Errorf("form %d: field %d = %v, want 0", i, j, v)
			}
		}
		if f.ToSleepTime != DefaultToSleep {
			t.Errorf("form %d: ToSleepTime = %v, want %v", i, f.ToSleepTime, DefaultToSleep)
		}
	}
}

func TestDerive(t *testing.T) {
	form := map[string]string{
		"q1": "0.5", "q1_polarity": "positive",
		"sleep_start":     "23:30",
		"wake_time":       "07:15",
		"time_to_sleep":   "30-60",
		"training_time":   " 45 ",
		"weight":          "71.3",
		"typing_speed":    "5.2",
		"typing_accuracy": "0.93",
	}

	f := Derive(form)
	want := Fields{
		Mood:           0.5 / 6,
		SleepTime:      7.75,
		ToSleepTime:    45,
		TrainingTime:   45,
		Weight:         71.3,
		TypingSpeed:    5.2,
		TypingAccuracy: 0.93,
	}
	if f != want {
		t.Errorf("Derive() = %+v, want %+v", f, want)
	}

	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	obs := f.Observation("alice", ts)
	if obs.UserID != "alice" || !obs.Timestamp.Equal(ts) || obs.SleepTime != 7.75 || obs.TypingAccuracy != 0.93 {
		t.Errorf("Observation() = %+v", obs)
	}
}
