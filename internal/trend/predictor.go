// Package trend projects alert volume over the coming week from daily history.
package trend

import (
	"time"
)

// MinHistoryDays is the minimum history needed before fitting anything.
const MinHistoryDays = 7

// Confidence is a fixed placeholder, not derived from validation.
const Confidence = 0.8

type DailyCount struct {
	Day   time.Time
	Count int
}

type DayForecast struct {
	Day       time.Time `json:"day"`
	Predicted int       `json:"predicted"`
}

type Forecast struct {
	PredictedAlerts int           `json:"predicted_alerts"`
	Daily           []DayForecast `json:"daily_predictions"`
	Confidence      float64       `json:"confidence"`
}

// PredictWeek fits a linear regression of daily alert counts against calendar
// features (day-of-week, month, day-of-month) and evaluates it on the 7 days
// following the last history day. Returns ok=false with fewer than 7 days of
// history or when the fit fails.
func PredictWeek(history []DailyCount) (Forecast, bool) {
	if len(history) < MinHistoryDays {
		return Forecast{}, false
	}

	rows := make([][]float64, len(history))
	y := make([]float64, len(history))
	for i, d := range history {
		rows[i] = features(d.Day)
		y[i] = float64(d.Count)
	}

	coef, ok := fitLeastSquares(rows, y)
	if !ok {
		return Forecast{}, false
	}

	last := history[len(history)-1].Day
	fc := Forecast{Confidence: Confidence}
	for i := 1; i <= 7; i++ {
		day := last.AddDate(0, 0, i)
		pred := int(evaluate(coef, features(day)))
		if pred < 0 {
			pred = 0
		}
		fc.Daily = append(fc.Daily, DayForecast{Day: day, Predicted: pred})
		fc.PredictedAlerts += pred
	}
	return fc, true
}

func features(day time.Time) []float64 {
	return []float64{
		1, // intercept
		float64(day.Weekday()),
		float64(day.Month()),
		float64(day.Day()),
	}
}

func evaluate(coef, x []float64) float64 {
	v := 0.0
	for i := range coef {
		v += coef[i] * x[i]
	}
	return v
}

// fitLeastSquares solves the normal equations XᵀX β = Xᵀy by Gaussian
// elimination. A small ridge term keeps the system solvable when a calendar
// feature is constant across the history (e.g. all days in one month).
func fitLeastSquares(rows [][]float64, y []float64) ([]float64, bool) {
	const ridge = 1e-8

	n := len(rows[0])
	xtx := make([][]float64, n)
	xty := make([]float64, n)
	for i := range xtx {
		xtx[i] = make([]float64, n)
	}

	for r, row := range rows {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * y[r]
		}
	}
	for i := 0; i < n; i++ {
		xtx[i][i] += ridge
	}

	return solve(xtx, xty)
}

// solve runs Gaussian elimination with partial pivoting.
func solve(m [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(m[r][col]) > abs(m[pivot][col]) {
				pivot = r
			}
		}
		if abs(m[pivot][col]) < 1e-12 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
