package domain

import "errors"

var (
	// ErrInvalidReading marks a reading that is missing its AQI or carries a negative one.
	ErrInvalidReading = errors.New("invalid aqi reading")

	// ErrInvalidProfile marks a profile that fails validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrProfileNotFound is returned by profile stores for unknown users.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoHistory is returned when a trend is requested for a user without records.
	ErrNoHistory = errors.New("no aqi history available")

	// ErrInsufficientHistory is returned when there are too few records to fit a trend.
	ErrInsufficientHistory = errors.New("not enough aqi history for a trend")

	// ErrInvalidHorizon is returned for a non-positive or too long forecast horizon.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrNoForecast is returned when a provider has no forecast near the requested time.
	ErrNoForecast = errors.New("no forecast data available")
)
