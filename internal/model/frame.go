package model

import "moodwave/internal/repository/db"

// Row lays out an observation in training column order
func Row(o db.Observation) []float64 {
	return []float64{
		o.Mood,
		o.SleepTime,
		o.ToSleepTime,
		o.TrainingTime,
		o.Weight,
		o.TypingSpeed,
		o.TypingAccuracy,
	}
}

// Frame turns an ordered history into rows and mood labels
func Frame(history []db.Observation) ([][]float64, []float64) {
	rows := make([][]float64, 0, len(history))
	labels := make([]float64, 0, len(history))
	for _, o := range history {
		rows = append(rows, Row(o))
		labels = append(labels, o.Mood)
	}
	return rows, labels
}
