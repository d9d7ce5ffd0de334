package model

import (
	"fmt"
	"math"
)

// Scaler standardizes columns to zero mean and unit variance.
// A column with zero variance gets Scale 0 and always transforms to 0.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

func fitScaler(X [][]float64) Scaler {
	d := len(X[0])
	n := float64(len(X))
	s := Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}

	for _, x := range X {
		for j, v := range x {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, x := range X {
		for j, v := range x {
			diff := v - s.Mean[j]
			s.Scale[j] += diff * diff
		}
	}
	for j := range s.Scale {
		std := math.Sqrt(s.Scale[j] / n)
		if std < 1e-12 {
			std = 0
		}
		s.Scale[j] = std
	}

	return s
}

func (s Scaler) transform(x []float64) []float64 {
	z := make([]float64, len(x))
	for j, v := range x {
		if s.Scale[j] == 0 {
			continue
		}
		z[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return z
}

// informative reports whether at least one column varies
func (s Scaler) informative() bool {
	for _, sc := range s.Scale {
		if sc > 0 {
			return true
		}
	}
	return false
}

// linearFit is the shared state of a standardized ridge regression
type linearFit struct {
	Scaler    Scaler
	Weights   []float64
	Intercept float64
}

func (f linearFit) predict(x []float64) float64 {
	z := f.Scaler.transform(x)
	y := f.Intercept
	for j, w := range f.Weights {
		y += w * z[j]
	}
	return y
}

// fitRidge solves (Z'Z + lambda*n*I) w = Z'(y - mean(y)) on standardized inputs.
// The ridge term keeps the system positive definite when samples are fewer than columns.
func fitRidge(X [][]float64, y []float64, lambda float64) (linearFit, error) {
	n := len(X)
	if n < 2 {
		return linearFit{}, fmt.Errorf("%w: need at least 2 samples, got %d", ErrDegenerate, n)
	}
	for i, x := range X {
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return linearFit{}, fmt.Errorf("%w: non-finite feature in sample %d", ErrDegenerate, i)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return linearFit{}, fmt.Errorf("%w: non-finite label in sample %d", ErrDegenerate, i)
		}
	}

	scaler := fitScaler(X)
	if !scaler.informative() {
		return linearFit{}, fmt.Errorf("%w: every feature is constant across %d samples", ErrDegenerate, n)
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	d := len(X[0])
	A := make([][]float64, d)
	for i := range A {
		A[i] = make([]float64, d)
	}
	b := make([]float64, d)

	for i, x := range X {
		z := scaler.transform(x)
		r := y[i] - yMean
		for j := 0; j < d; j++ {
			b[j] += z[j] * r
			for k := 0; k <= j; k++ {
				A[j][k] += z[j] * z[k]
			}
		}
	}
	reg := lambda * float64(n)
	for j := 0; j < d; j++ {
		A[j][j] += reg
		for k := 0; k < j; k++ {
			A[k][j] = A[j][k]
		}
	}

	L, err := choleskyDecomposition(A)
	if err != nil {
		return linearFit{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	return linearFit{
		Scaler:    scaler,
		Weights:   choleskySolve(L, b),
		Intercept: yMean,
	}, nil
}

// choleskyDecomposition computes L such that A = L * L' for symmetric positive-definite A
func choleskyDecomposition(A [][]float64) ([][]float64, error) {
	n := len(A)
	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("matrix is not positive definite")
				}
				L[i][j] = math.Sqrt(sum)
			} else {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	return L, nil
}

// choleskySolve solves L * L' * x = b by forward then back substitution
func choleskySolve(L [][]float64, b []float64) []float64 {
	n := len(L)

	v := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= L[i][k] * v[k]
		}
		v[i] = sum / L[i][i]
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := v[i]
		for k := i + 1; k < n; k++ {
			sum -= L[k][i] * x[k]
		}
		x[i] = sum / L[i][i]
	}

	return x
}
