// Package stats provides the two model fits the built-in reports use: an
// ordinary least-squares line and a three-parameter logistic growth
// curve.
package stats

import (
	"math"

	"tidytable/internal/domain"
)

// LinearFit computes the ordinary least-squares line y = slope*x +
// intercept. It needs at least two points and non-zero variance in x.
func LinearFit(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return 0, 0, domain.ErrValidation("linear fit: %d x values vs %d y values", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, domain.ErrValidation("linear fit: need at least 2 points, got %d", len(x))
	}
	n := float64(len(x))
	var sumX, sumY, sumXX, sumXY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXX += x[i] * x[i]
		sumXY += x[i] * y[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, domain.ErrValidation("linear fit: x values have zero variance")
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept, nil
}

// LogisticModel is a fitted logistic growth curve
// y(t) = K / (1 + exp(-R*(t - T0))).
type LogisticModel struct {
	K  float64 // carrying capacity (upper asymptote)
	R  float64 // growth rate
	T0 float64 // inflection point
}

// Predict evaluates the curve at t.
func (m LogisticModel) Predict(t float64) float64 {
	return m.K / (1 + math.Exp(-m.R*(t-m.T0)))
}

// LogisticFit fits a logistic growth curve to (t, y) by scanning
// candidate carrying capacities and, for each, solving the linearized
// form ln(K/y - 1) = -R*t + R*T0 by least squares, keeping the candidate
// with the smallest residual sum of squares in the original space. The
// series must contain at least four positive observations.
func LogisticFit(t, y []float64) (LogisticModel, error) {
	if len(t) != len(y) {
		return LogisticModel{}, domain.ErrValidation("logistic fit: %d t values vs %d y values", len(t), len(y))
	}
	yMax := 0.0
	positive := 0
	for _, v := range y {
		if v > 0 {
			positive++
		}
		if v > yMax {
			yMax = v
		}
	}
	if positive < 4 {
		return LogisticModel{}, domain.ErrValidation("logistic fit: need at least 4 positive points, got %d", positive)
	}

	const steps = 200
	best := LogisticModel{}
	bestSSE := math.Inf(1)
	for step := 0; step <= steps; step++ {
		// Candidate asymptotes from just above the observed maximum to 3x it.
		k := yMax * (1.02 + 1.98*float64(step)/steps)
		var lt, lz []float64
		for i := range y {
			if y[i] <= 0 || y[i] >= k {
				continue
			}
			lt = append(lt, t[i])
			lz = append(lz, math.Log(k/y[i]-1))
		}
		if len(lt) < 4 {
			continue
		}
		slope, intercept, err := LinearFit(lt, lz)
		if err != nil || slope >= 0 {
			continue
		}
		m := LogisticModel{K: k, R: -slope, T0: intercept / -slope}
		sse := 0.0
		for i := range y {
			d := y[i] - m.Predict(t[i])
			sse += d * d
		}
		if sse < bestSSE {
			bestSSE = sse
			best = m
		}
	}
	if math.IsInf(bestSSE, 1) {
		return LogisticModel{}, domain.ErrValidation("logistic fit: series does not support a growth curve")
	}
	return best, nil
}
