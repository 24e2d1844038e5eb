package domain

import (
	"context"
	"log/slog"
)

// EnrichWithConditions fills in pollutant details for readings that carry
// coordinates but no dominant pollutant. The reading's own AQI is never
// replaced. If provider is nil the reading is returned untouched; on provider
// failure ConditionsSource is set to "failed" and processing continues.
func EnrichWithConditions(ctx context.Context, reading Reading, provider AirQualityProvider, logger *slog.Logger) Reading {
	if provider == nil {
		return reading
	}

	if reading.DominantPollutant != "" || reading.Geo.IsZero() {
		reading.ConditionsSource = "original"
		return reading
	}

	cond, err := provider.CurrentConditions(ctx, reading.Geo.Lat, reading.Geo.Lon)
	if err != nil {
		logger.Warn("conditions lookup failed",
			"reading_id", reading.ID,
			"lat", reading.Geo.Lat,
			"lon", reading.Geo.Lon,
			"error", err,
		)
		reading.ConditionsSource = "failed"
		return reading
	}

	if cond.DominantPollutant == "" && len(cond.Pollutants) == 0 {
		reading.ConditionsSource = "original"
		return reading
	}

	reading.DominantPollutant = cond.DominantPollutant
	if len(reading.Pollutants) == 0 {
		reading.Pollutants = cond.Pollutants
	}
	reading.ConditionsSource = "provider"
	return reading
}
