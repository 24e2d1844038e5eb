package domain

import (
	"context"
	"time"
)

// RawReadingRecord is the flat JSON published by collectors on the source topic.
// AQI is a pointer so a missing value can be told apart from a clean-air zero.
type RawReadingRecord struct {
	ID                string             `json:"id,omitempty"`
	UserID            string             `json:"user_id,omitempty"`
	Location          string             `json:"location,omitempty"`
	Lat               float64            `json:"lat,omitempty"`
	Lon               float64            `json:"lon,omitempty"`
	AQI               *float64           `json:"aqi"`
	DominantPollutant string             `json:"dominant_pollutant,omitempty"`
	Pollutants        map[string]float64 `json:"pollutants,omitempty"`
	ObservedAt        string             `json:"observed_at,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// IsZero reports whether no coordinates were supplied.
func (g Geo) IsZero() bool {
	return g.Lat == 0 && g.Lon == 0
}

// Reading is a validated AQI observation.
type Reading struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id,omitempty"`
	Location          string             `json:"location,omitempty"`
	Geo               Geo                `json:"geo,omitzero"`
	AQI               int                `json:"aqi"`
	DominantPollutant string             `json:"dominant_pollutant,omitempty"`
	Pollutants        map[string]float64 `json:"pollutants,omitempty"`
	ObservedAt        time.Time          `json:"observed_at"`

	// ConditionsSource records where pollutant details came from:
	// "original", "provider" or "failed".
	ConditionsSource string `json:"conditions_source,omitempty"`
}

// Advisory is a reading classified for one user's profile.
type Advisory struct {
	Reading        Reading        `json:"reading"`
	Sensitive      bool           `json:"sensitive"`
	Classification Classification `json:"classification"`
	ProcessedAt    time.Time      `json:"processed_at"`
}

// HistoryRecord is a stored advisory as returned by the history store.
type HistoryRecord struct {
	ReadingID         string    `json:"reading_id"`
	UserID            string    `json:"user_id"`
	Location          string    `json:"location,omitempty"`
	Geo               Geo       `json:"geo,omitzero"`
	AQI               int       `json:"aqi"`
	Category          Category  `json:"category"`
	DominantPollutant string    `json:"dominant_pollutant,omitempty"`
	ObservedAt        time.Time `json:"observed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
