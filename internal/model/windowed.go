package model

import "fmt"

// Windowed is a sequence model over the last TimeSteps full rows.
// Training example i pairs the rows before i (left-padded to TimeSteps) with label i,
// so n rows give n-1 examples.
type Windowed struct {
	TimeSteps int
	Ridge     float64
	Fitted    bool
	State     linearFit
}

// NewWindowed creates an unfitted sequence model
func NewWindowed(timeSteps int, ridge float64) *Windowed {
	return &Windowed{TimeSteps: timeSteps, Ridge: ridge}
}

func (w *Windowed) Kind() Kind { return KindWindowed }

func (w *Windowed) WindowSize() int { return w.TimeSteps }

func (w *Windowed) Fit(rows [][]float64, labels []float64) error {
	if err := checkRows(rows, labels); err != nil {
		return err
	}
	if len(rows) < 3 {
		return fmt.Errorf("%w: sequence model needs at least 3 rows, got %d", ErrDegenerate, len(rows))
	}

	X := make([][]float64, 0, len(rows)-1)
	y := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		X = append(X, flatten(Window(rows[:i], w.TimeSteps)))
		y = append(y, labels[i])
	}

	fit, err := fitRidge(X, y, w.Ridge)
	if err != nil {
		return err
	}
	w.State = fit
	w.Fitted = true
	return nil
}

func (w *Windowed) Predict(window [][]float64) (float64, error) {
	if !w.Fitted {
		return 0, ErrNotFitted
	}
	if err := checkWindow(window); err != nil {
		return 0, err
	}
	return w.State.predict(flatten(Window(window, w.TimeSteps))), nil
}

func flatten(window [][]float64) []float64 {
	out := make([]float64, 0, len(window)*RowWidth)
	for _, row := range window {
		out = append(out, row...)
	}
	return out
}
