package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MaxForecastHours caps both trend and provider forecast horizons.
const MaxForecastHours = 72

// DefaultTrendHours is the horizon used when the caller does not ask for one.
const DefaultTrendHours = 6

// ForecastTrend fits a least-squares line through the AQI history (ordered by
// observation time, one step per record) and extrapolates hoursAhead steps.
// Step i is predicted at x = n+i, where n is the number of records.
// Predictions are clamped at zero and rounded to two decimals; timestamps are
// i hours after now.
func ForecastTrend(history []HistoryRecord, hoursAhead int) ([]ForecastPoint, error) {
	if hoursAhead <= 0 || hoursAhead > MaxForecastHours {
		return nil, fmt.Errorf("%w: %d hours (want 1-%d)", ErrInvalidHorizon, hoursAhead, MaxForecastHours)
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	if len(history) < 2 {
		return nil, ErrInsufficientHistory
	}

	sorted := make([]HistoryRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
	})

	values := make([]float64, len(sorted))
	for i, rec := range sorted {
		values[i] = float64(rec.AQI)
	}

	slope, intercept := fitLine(values)
	n := float64(len(values))
	now := Now()

	points := make([]ForecastPoint, 0, hoursAhead)
	for i := 1; i <= hoursAhead; i++ {
		predicted := slope*(n+float64(i)) + intercept
		points = append(points, ForecastPoint{
			Hour: i,
			Time: now.Add(time.Duration(i) * time.Hour),
			AQI:  math.Max(0, roundTo(predicted, 2)),
		})
	}
	return points, nil
}

// ClassifyForecast attaches a classification for the given sensitivity to
// every point, using the AQI rounded to the nearest integer.
func ClassifyForecast(points []ForecastPoint, sensitive bool) []ForecastPoint {
	out := make([]ForecastPoint, len(points))
	for i, p := range points {
		c := Classify(int(math.Round(p.AQI)), sensitive)
		p.Classification = &c
		out[i] = p
	}
	return out
}

// fitLine returns slope and intercept of y over x = 0..len(y)-1.
func fitLine(y []float64) (float64, float64) {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / n
	return slope, intercept
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
