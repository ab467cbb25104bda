package service

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Line is y = Slope*x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

func (l Line) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FitLine computes the ordinary least-squares line through (i, ys[i]).
// A single point yields a horizontal line through it; no points yields zero.
func FitLine(ys []float64) Line {
	switch len(ys) {
	case 0:
		return Line{}
	case 1:
		return Line{Intercept: ys[0]}
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Line{Slope: slope, Intercept: intercept}
}

// ProjectDemand fits the history and sums the non-negative predictions for
// the next horizon indices, rounded up.
func ProjectDemand(history []float64, horizon int) int {
	line := FitLine(history)
	var total float64
	last := len(history) - 1
	for i := 1; i <= horizon; i++ {
		total += math.Max(0, line.At(float64(last+i)))
	}
	// guards against 111.99999999 style float noise before ceil
	return int(math.Ceil(math.Round(total*1e9) / 1e9))
}
