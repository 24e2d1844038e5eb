package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// --- mock provider ---

type mockProvider struct {
	conditions Conditions
	err        error
	calls      int
}

func (m *mockProvider) CurrentConditions(_ context.Context, _, _ float64) (Conditions, error) {
	m.calls++
	return m.conditions, m.err
}

func (m *mockProvider) Forecast(_ context.Context, _, _ float64, _ time.Time) (ForecastPoint, error) {
	return ForecastPoint{}, ErrNoForecast
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithConditions_NilProvider(t *testing.T) {
	reading := Reading{ID: "rd-1", Geo: Geo{Lat: 28.45, Lon: 77.02}, AQI: 185}

	result := EnrichWithConditions(context.Background(), reading, nil, discardLogger())

	assert.Empty(t, result.ConditionsSource)
	assert.Empty(t, result.DominantPollutant)
}

func TestEnrichWithConditions_FillsPollutants(t *testing.T) {
	provider := &mockProvider{
		conditions: Conditions{
			AQI:               160,
			DominantPollutant: "pm25",
			Pollutants:        map[string]float64{"pm25": 88.1, "pm10": 140.2},
		},
	}
	reading := Reading{ID: "rd-2", Geo: Geo{Lat: 28.45, Lon: 77.02}, AQI: 185}

	result := EnrichWithConditions(context.Background(), reading, provider, discardLogger())

	assert.Equal(t, "provider", result.ConditionsSource)
	assert.Equal(t, "pm25", result.DominantPollutant)
	assert.Equal(t, 88.1, result.Pollutants["pm25"])
	assert.Equal(t, 185, result.AQI, "reading AQI must not be replaced")
	assert.Equal(t, 1, provider.calls)
}

func TestEnrichWithConditions_KeepsOwnPollutants(t *testing.T) {
	provider := &mockProvider{
		conditions: Conditions{DominantPollutant: "o3", Pollutants: map[string]float64{"o3": 50}},
	}
	reading := Reading{
		ID: "rd-3", Geo: Geo{Lat: 1, Lon: 1}, AQI: 70,
		Pollutants: map[string]float64{"pm25": 20},
	}

	result := EnrichWithConditions(context.Background(), reading, provider, discardLogger())

	assert.Equal(t, "o3", result.DominantPollutant)
	assert.Equal(t, map[string]float64{"pm25": 20}, result.Pollutants)
}

func TestEnrichWithConditions_AlreadyEnriched(t *testing.T) {
	provider := &mockProvider{}
	reading := Reading{ID: "rd-4", Geo: Geo{Lat: 1, Lon: 1}, DominantPollutant: "no2"}

	result := EnrichWithConditions(context.Background(), reading, provider, discardLogger())

	assert.Equal(t, "original", result.ConditionsSource)
	assert.Equal(t, 0, provider.calls)
}

func TestEnrichWithConditions_NoCoordinates(t *testing.T) {
	provider := &mockProvider{}
	result := EnrichWithConditions(context.Background(), Reading{ID: "rd-5"}, provider, discardLogger())

	assert.Equal(t, "original", result.ConditionsSource)
	assert.Equal(t, 0, provider.calls)
}

func TestEnrichWithConditions_ProviderError_GracefulDegradation(t *testing.T) {
	provider := &mockProvider{err: errors.New("quota exceeded")}
	reading := Reading{ID: "rd-6", Geo: Geo{Lat: 28.45, Lon: 77.02}, AQI: 90}

	result := EnrichWithConditions(context.Background(), reading, provider, discardLogger())

	assert.Equal(t, "failed", result.ConditionsSource)
	assert.Equal(t, 90, result.AQI)
	assert.Empty(t, result.DominantPollutant)
}

func TestEnrichWithConditions_EmptyProviderResult(t *testing.T) {
	provider := &mockProvider{}
	reading := Reading{ID: "rd-7", Geo: Geo{Lat: 28.45, Lon: 77.02}}

	result := EnrichWithConditions(context.Background(), reading, provider, discardLogger())

	assert.Equal(t, "original", result.ConditionsSource)
}
