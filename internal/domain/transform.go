package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseRawEvent deserializes a RawEvent's value into a Reading.
// Missing IDs are generated, and a missing observation time falls back to the
// message timestamp.
func ParseRawEvent(raw RawEvent) (Reading, error) {
	var rec RawReadingRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Reading{}, fmt.Errorf("parse raw reading: %w", err)
	}

	aqi, err := normalizeAQI(rec.AQI)
	if err != nil {
		return Reading{}, err
	}

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = NewReadingID()
	}

	return Reading{
		ID:                id,
		UserID:            strings.TrimSpace(rec.UserID),
		Location:          strings.TrimSpace(rec.Location),
		Geo:               Geo{Lat: rec.Lat, Lon: rec.Lon},
		AQI:               aqi,
		DominantPollutant: strings.ToLower(strings.TrimSpace(rec.DominantPollutant)),
		Pollutants:        rec.Pollutants,
		ObservedAt:        parseObservedAt(rec.ObservedAt, raw.Timestamp),
	}, nil
}

// NewReadingID returns a fresh random reading identifier.
func NewReadingID() string {
	return "aqi-" + uuid.NewString()
}

// MaxReadingAQI is the largest AQI accepted from the source topic. Sensor
// scales top out well below it.
const MaxReadingAQI = 10000

// normalizeAQI rejects missing, negative or out-of-range values and rounds to
// an integer.
func normalizeAQI(v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: aqi is missing", ErrInvalidReading)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > MaxReadingAQI {
		return 0, fmt.Errorf("%w: aqi %s", ErrInvalidReading, strconv.FormatFloat(*v, 'g', -1, 64))
	}
	return int(math.Round(*v)), nil
}

// parseObservedAt accepts RFC 3339 timestamps and falls back to the message time.
func parseObservedAt(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.UTC()
		}
	}
	if fallback.IsZero() {
		return Now()
	}
	return fallback.UTC()
}

// NewAdvisory classifies a reading for the given profile and stamps it with
// the current time.
func NewAdvisory(reading Reading, profile Profile) Advisory {
	sensitive := profile.Sensitive()
	if reading.UserID == "" {
		reading.UserID = profile.UserID
	}
	return Advisory{
		Reading:        reading,
		Sensitive:      sensitive,
		Classification: Classify(reading.AQI, sensitive),
		ProcessedAt:    Now(),
	}
}

// SerializeAdvisory marshals an advisory into an OutputEvent keyed by reading ID.
func SerializeAdvisory(a Advisory) (OutputEvent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize advisory: %w", err)
	}
	return OutputEvent{
		Key:   []byte(a.Reading.ID),
		Value: data,
		Headers: map[string]string{
			"category":     string(a.Classification.Category),
			"unsafe":       strconv.FormatBool(a.Classification.UnsafeForUser),
			"processed_at": a.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// HistoryRecordFromAdvisory flattens an advisory into a history record.
func HistoryRecordFromAdvisory(a Advisory) HistoryRecord {
	return HistoryRecord{
		ReadingID:         a.Reading.ID,
		UserID:            a.Reading.UserID,
		Location:          a.Reading.Location,
		Geo:               a.Reading.Geo,
		AQI:               a.Reading.AQI,
		Category:          a.Classification.Category,
		DominantPollutant: a.Reading.DominantPollutant,
		ObservedAt:        a.Reading.ObservedAt,
	}
}
