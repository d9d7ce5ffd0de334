package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"moodwave/internal/repository/db"
)

// sampleRows returns rows whose mood is a noiseless linear function of sleep and training time
func sampleRows(n int) ([][]float64, []float64) {
	rows := make([][]float64, 0, n)
	labels := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		sleep := 5.0 + float64(i%4)
		training := float64((i * 7) % 5 * 10)
		mood := 0.2*sleep + 0.01*training - 1.5
		rows = append(rows, []float64{mood, sleep, 22.5, training, 70, 4.5, 0.9})
		labels = append(labels, mood)
	}
	return rows, labels
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		timeSteps int
		wantKind  Kind
		wantSize  int
		wantErr   bool
	}{
		{name: "linear", kind: "linear", timeSteps: 5, wantKind: KindLinear, wantSize: 1},
		{name: "windowed", kind: "windowed", timeSteps: 5, wantKind: KindWindowed, wantSize: 5},
		{name: "windowed without steps", kind: "windowed", timeSteps: 0, wantErr: true},
		{name: "unknown", kind: "lstm", timeSteps: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.kind, tt.timeSteps, 1e-3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFactory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			r := factory()
			if r.Kind() != tt.wantKind {
				t.Errorf("Kind() = %s, want %s", r.Kind(), tt.wantKind)
			}
			if r.WindowSize() != tt.wantSize {
				t.Errorf("WindowSize() = %d, want %d", r.WindowSize(), tt.wantSize)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	rows := [][]float64{
		{1, 0, 0, 0, 0, 0, 0},
		{2, 0, 0, 0, 0, 0, 0},
		{3, 0, 0, 0, 0, 0, 0},
	}

	t.Run("takes trailing rows", func(t *testing.T) {
		w := Window(rows, 2)
		if len(w) != 2 || w[0][0] != 2 || w[1][0] != 3 {
			t.Errorf("Window(rows, 2) = %v", w)
		}
	})

	t.Run("left pads with oldest row", func(t *testing.T) {
		w := Window(rows, 5)
		want := []float64{1, 1, 1, 2, 3}
		if len(w) != len(want) {
			t.Fatalf("len(Window) = %d, want %d", len(w), len(want))
		}
		for i, v := range want {
			if w[i][0] != v {
				t.Errorf("Window[%d][0] = %v, want %v", i, w[i][0], v)
			}
		}
	})

	t.Run("returns copies", func(t *testing.T) {
		w := Window(rows, 1)
		w[0][0] = 99
		if rows[2][0] != 3 {
			t.Error("Window must not alias the input rows")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if Window(nil, 3) != nil {
			t.Error("expected nil window for empty rows")
		}
	})
}

func TestLinear_FitRecoversLinearRelation(t *testing.T) {
	rows, labels := sampleRows(12)
	l := NewLinear(1e-9)

	if err := l.Fit(rows, labels); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	probe := [][]float64{{0, 8, 22.5, 30, 70, 4.5, 0.9}}
	got, err := l.Predict(probe)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := 0.2*8 + 0.01*30 - 1.5
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("Predict() = %v, want %v", got, want)
	}
}

func TestLinear_IgnoresMoodSlot(t *testing.T) {
	rows, labels := sampleRows(8)
	l := NewLinear(1e-3)
	if err := l.Fit(rows, labels); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	a, _ := l.Predict([][]float64{{-1, 6, 22.5, 10, 70, 4.5, 0.9}})
	b, _ := l.Predict([][]float64{{1, 6, 22.5, 10, 70, 4.5, 0.9}})
	if a != b {
		t.Errorf("mood slot changed the linear prediction: %v vs %v", a, b)
	}
}

func TestFit_Degenerate(t *testing.T) {
	identical := [][]float64{
		{0.5, 7, 22.5, 30, 70, 4, 0.9},
		{0.1, 7, 22.5, 30, 70, 4, 0.9},
		{0.3, 7, 22.5, 30, 70, 4, 0.9},
		{0.2, 7, 22.5, 30, 70, 4, 0.9},
		{0.4, 7, 22.5, 30, 70, 4, 0.9},
	}
	identicalLabels := []float64{0.5, 0.1, 0.3, 0.2, 0.4}

	tests := []struct {
		name   string
		model  Regressor
		rows   [][]float64
		labels []float64
	}{
		{name: "linear identical features", model: NewLinear(1e-3), rows: identical, labels: identicalLabels},
		{name: "linear single row", model: NewLinear(1e-3), rows: identical[:1], labels: identicalLabels[:1]},
		{name: "linear label count mismatch", model: NewLinear(1e-3), rows: identical, labels: identicalLabels[:2]},
		{name: "linear short row", model: NewLinear(1e-3), rows: [][]float64{{1, 2}, {3, 4}}, labels: []float64{1, 3}},
		{name: "linear non-finite", model: NewLinear(1e-3), rows: [][]float64{
			{0, math.NaN(), 0, 0, 0, 0, 0},
			{0, 1, 0, 0, 0, 0, 0},
		}, labels: []float64{0, 1}},
		{name: "windowed too few rows", model: NewWindowed(5, 1e-3), rows: identical[:2], labels: identicalLabels[:2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Fit(tt.rows, tt.labels)
			if !errors.Is(err, ErrDegenerate) {
				t.Errorf("Fit() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestPredict_Errors(t *testing.T) {
	if _, err := NewLinear(1e-3).Predict([][]float64{{0, 0, 0, 0, 0, 0, 0}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict() before Fit error = %v, want ErrNotFitted", err)
	}

	rows, labels := sampleRows(6)
	l := NewLinear(1e-3)
	if err := l.Fit(rows, labels); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := l.Predict(nil); !errors.Is(err, ErrBadWindow) {
		t.Errorf("Predict(nil) error = %v, want ErrBadWindow", err)
	}
	if _, err := l.Predict([][]float64{{1, 2, 3}}); !errors.Is(err, ErrBadWindow) {
		t.Errorf("Predict(short row) error = %v, want ErrBadWindow", err)
	}
}

func TestWindowed_FitsAtMinimumHistory(t *testing.T) {
	rows, labels := sampleRows(5)
	w := NewWindowed(5, 1e-3)

	if err := w.Fit(rows, labels); err != nil {
		t.Fatalf("Fit() on 5 rows error = %v", err)
	}

	got, err := w.Predict(rows[len(rows)-2:])
	if err != nil {
		t.Fatalf("Predict() with short window error = %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("Predict() = %v, want finite value", got)
	}
}

func TestWindowed_UsesMoodSlot(t *testing.T) {
	rows := make([][]float64, 0, 20)
	labels := make([]float64, 0, 20)
	mood := 0.0
	for i := 0; i < 20; i++ {
		rows = append(rows, []float64{mood, 7, 22.5, float64(i % 3), 70, 4, 0.9})
		labels = append(labels, mood)
		mood = 0.8*mood + 0.1
	}

	w := NewWindowed(1, 1e-9)
	if err := w.Fit(rows, labels); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	low, _ := w.Predict([][]float64{{0.0, 7, 22.5, 0, 70, 4, 0.9}})
	high, _ := w.Predict([][]float64{{0.4, 7, 22.5, 0, 70, 4, 0.9}})
	if high <= low {
		t.Errorf("windowed prediction should rise with previous mood: low=%v high=%v", low, high)
	}
}

func TestMarshal_RoundTripPredictsIdentically(t *testing.T) {
	rows, labels := sampleRows(9)
	window := rows[len(rows)-5:]

	for _, r := range []Regressor{NewLinear(1e-3), NewWindowed(5, 1e-3)} {
		t.Run(string(r.Kind()), func(t *testing.T) {
			if err := r.Fit(rows, labels); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			before, err := r.Predict(window)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}

			data, err := Marshal(r)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			restored, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if restored.Kind() != r.Kind() {
				t.Errorf("restored Kind() = %s, want %s", restored.Kind(), r.Kind())
			}

			after, err := restored.Predict(window)
			if err != nil {
				t.Fatalf("restored Predict() error = %v", err)
			}
			if math.Float64bits(before) != math.Float64bits(after) {
				t.Errorf("prediction changed across round trip: %v vs %v", before, after)
			}
		})
	}
}

func TestUnmarshal_Garbage(t *testing.T) {
	if _, err := Unmarshal([]byte("not a model")); err == nil {
		t.Error("Unmarshal() error = nil, want error for garbage input")
	}
}

func TestFrame(t *testing.T) {
	history := []db.Observation{
		{UserID: "u", Timestamp: time.Unix(1, 0), Mood: 0.5, SleepTime: 7.5, ToSleepTime: 22.5, TrainingTime: 30, Weight: 70, TypingSpeed: 4.2, TypingAccuracy: 0.95},
		{UserID: "u", Timestamp: time.Unix(2, 0), Mood: -0.1, SleepTime: 6},
	}

	rows, labels := Frame(history)
	if len(rows) != 2 || len(labels) != 2 {
		t.Fatalf("Frame() returned %d rows and %d labels, want 2 and 2", len(rows), len(labels))
	}

	want := []float64{0.5, 7.5, 22.5, 30, 70, 4.2, 0.95}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("rows[0][%d] = %v, want %v", i, rows[0][i], v)
		}
	}
	if labels[1] != -0.1 || rows[1][MoodSlot] != -0.1 {
		t.Errorf("mood not placed in label and mood slot: label=%v slot=%v", labels[1], rows[1][MoodSlot])
	}
}
