package model

// Linear predicts mood from the feature columns of the most recent row.
// The mood slot is ignored, so a forecast built on it stays flat while
// features are frozen.
type Linear struct {
	Ridge  float64
	Fitted bool
	State  linearFit
}

// NewLinear creates an unfitted linear regressor
func NewLinear(ridge float64) *Linear {
	return &Linear{Ridge: ridge}
}

func (l *Linear) Kind() Kind { return KindLinear }

func (l *Linear) WindowSize() int { return 1 }

func (l *Linear) Fit(rows [][]float64, labels []float64) error {
	if err := checkRows(rows, labels); err != nil {
		return err
	}

	X := make([][]float64, len(rows))
	for i, row := range rows {
		X[i] = row[MoodSlot+1:]
	}

	fit, err := fitRidge(X, labels, l.Ridge)
	if err != nil {
		return err
	}
	l.State = fit
	l.Fitted = true
	return nil
}

func (l *Linear) Predict(window [][]float64) (float64, error) {
	if !l.Fitted {
		return 0, ErrNotFitted
	}
	if err := checkWindow(window); err != nil {
		return 0, err
	}
	last := window[len(window)-1]
	return l.State.predict(last[MoodSlot+1:]), nil
}
