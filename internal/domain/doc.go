// Package domain models air quality readings and the personalised advisories
// derived from them.
//
// # Readings
//
// A reading is a single Air Quality Index (AQI) observation: a unitless,
// non-negative integer where higher values mean worse air. Readings arrive on
// the source topic as flat JSON published by sensor collectors or by the
// mock generator (cmd/genmock). Each reading may carry the user it was taken
// for, the location name, WGS-84 coordinates, the dominant pollutant code
// (e.g. "pm25") and per-pollutant concentrations.
//
// A reading without an "aqi" field, or with a negative value, is rejected by
// [ParseRawEvent] with [ErrInvalidReading]. Fractional values are rounded to
// the nearest integer.
//
// # Classification
//
// [Classify] maps an AQI value and a sensitivity flag to a category, a risk
// color token, a recommendation and an unsafe-for-user flag. Bands are
// inclusive on the upper bound and the first matching band wins:
//
//	  0-50   Good                            green   safe
//	 51-100  Moderate                        yellow  safe (sensitive users get a warning suffix)
//	101-150  Unhealthy for Sensitive Groups  orange  unsafe only for sensitive users
//	151-200  Unhealthy                       red     unsafe
//	201+     Very Unhealthy                  red     unsafe
//
// The breakpoints mirror the common public-health AQI bands but are kept as-is
// rather than aligned to any single agency's table.
//
// # Sensitivity
//
// A user is sensitive when they report a respiratory condition (asthma) or
// are 65 or older. See [DeriveSensitivity]. Sensitivity is always recomputed
// from the profile fields and never stored.
//
// # Trend forecast
//
// [ForecastTrend] extrapolates a least-squares line through a user's recorded
// history, one step per hour. Predictions are clamped at zero and rounded to
// two decimals.
package domain
