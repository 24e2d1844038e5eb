package domain

import (
	"context"
	"time"
)

// Conditions are the current air quality details returned by a provider.
type Conditions struct {
	AQI               int                `json:"aqi"`
	Category          string             `json:"provider_category,omitempty"`
	DominantPollutant string             `json:"dominant_pollutant,omitempty"`
	Pollutants        map[string]float64 `json:"pollutants,omitempty"`
	Geo               Geo                `json:"geo"`
	ObservedAt        time.Time          `json:"observed_at"`
}

// ForecastPoint is one predicted AQI value. Hour is the offset from the
// forecast anchor; provider forecasts leave it zero.
type ForecastPoint struct {
	Hour           int             `json:"hour,omitempty"`
	Time           time.Time       `json:"time"`
	AQI            float64         `json:"aqi"`
	Classification *Classification `json:"classification,omitempty"`
}

// AirQualityProvider looks up air quality for a coordinate.
type AirQualityProvider interface {
	// CurrentConditions returns the latest conditions at lat/lon.
	CurrentConditions(ctx context.Context, lat, lon float64) (Conditions, error)

	// Forecast returns the forecast closest to target. A zero target means
	// the same hour tomorrow.
	Forecast(ctx context.Context, lat, lon float64, target time.Time) (ForecastPoint, error)
}
