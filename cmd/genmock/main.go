// Command genmock generates mock AQI reading and profile fixtures for the
// pipeline and integration test suites. Readings are run through the domain
// package so the printed stats match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -readings-out data/mock/readings.json \
//	  -profiles-out data/mock/profiles.yaml \
//	  -hours 4
//
// With the default flags the output matches data/mock exactly. -jitter and
// -seed perturb the AQI values for ad hoc runs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"
)

var baseDate = time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)

type sample struct {
	aqi           float64
	pollutant     string
	concentration float64
}

type site struct {
	userID string
	name   string
	lat    float64
	lon    float64
	// hourly is cycled when more hours are requested than it holds.
	hourly []sample
}

// The hourly tables put at least one reading in every band from Good to Very
// Unhealthy, including the 50/51 and 100/101 edges. Los Angeles climbs
// steadily and Delhi improves, so both have a clear trend.
var sites = []site{
	{userID: "user-1", name: "Los Angeles", lat: 34.0522, lon: -118.2437, hourly: []sample{
		{42, "o3", 31.2}, {78, "pm25", 24.6}, {135, "pm25", 52.9}, {182, "pm10", 140},
	}},
	{userID: "user-2", name: "Delhi", lat: 28.6139, lon: 77.2090, hourly: []sample{
		{249, "pm25", 198.4}, {201, "pm10", 288.1}, {150, "pm25", 55.4}, {101, "no2", 112.7},
	}},
	{userID: "user-3", name: "London", lat: 51.5074, lon: -0.1278, hourly: []sample{
		{50, "no2", 38}, {51, "o3", 72.5}, {100, "pm25", 35.4}, {63, "o3", 80.3},
	}},
}

// profiles deliberately leaves user-3 out so it falls back to the default profile.
var profiles = []domain.Profile{
	{UserID: "user-1", Username: "senior", Age: 70},
	{UserID: "user-2", Username: "asthmatic", Age: 25, HasAsthma: true},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	readingsOut := flag.String("readings-out", "", "output path for raw readings JSON fixture")
	profilesOut := flag.String("profiles-out", "", "output path for profiles YAML fixture")
	seed := flag.Uint64("seed", 42, "random seed for -jitter")
	jitter := flag.Int("jitter", 0, "max random AQI offset per reading; 0 reproduces the checked-in fixture")
	hours := flag.Int("hours", 4, "hourly readings per site")
	flag.Parse()

	if *readingsOut == "" || *profilesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -readings-out, -profiles-out")
	}
	if *hours <= 0 {
		return fmt.Errorf("-hours must be positive")
	}
	if *jitter < 0 {
		return fmt.Errorf("-jitter must not be negative")
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.Add(24 * time.Hour)))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed))
	records := generate(rng, *hours, *jitter)

	advisories, err := classify(records)
	if err != nil {
		return err
	}

	if err := writeJSON(*readingsOut, records); err != nil {
		return fmt.Errorf("writing readings fixture: %w", err)
	}
	log.Printf("wrote readings fixture: %s (%d readings)", *readingsOut, len(records))

	if err := writeYAML(*profilesOut, map[string]any{"profiles": profiles}); err != nil {
		return fmt.Errorf("writing profiles fixture: %w", err)
	}
	log.Printf("wrote profiles fixture: %s (%d profiles)", *profilesOut, len(profiles))

	printStats(advisories)
	return nil
}

func generate(rng *rand.Rand, hours, jitter int) []domain.RawReadingRecord {
	records := make([]domain.RawReadingRecord, 0, len(sites)*hours)
	for _, s := range sites {
		for h := range hours {
			smp := s.hourly[h%len(s.hourly)]
			aqi := smp.aqi
			if jitter > 0 {
				aqi = max(0, aqi+float64(rng.IntN(2*jitter+1)-jitter))
			}
			records = append(records, domain.RawReadingRecord{
				ID:                fmt.Sprintf("%s-%02d", s.userID, h),
				UserID:            s.userID,
				Location:          s.name,
				Lat:               s.lat,
				Lon:               s.lon,
				AQI:               &aqi,
				DominantPollutant: smp.pollutant,
				Pollutants:        map[string]float64{smp.pollutant: smp.concentration},
				ObservedAt:        baseDate.Add(time.Duration(h) * time.Hour).Format(time.RFC3339),
			})
		}
	}
	return records
}

// classify runs every record through the real parse and classification path.
func classify(records []domain.RawReadingRecord) ([]domain.Advisory, error) {
	byUser := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	advisories := make([]domain.Advisory, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record: %w", err)
		}
		reading, err := domain.ParseRawEvent(domain.RawEvent{Value: raw, Timestamp: baseDate})
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rec.ID, err)
		}
		profile, ok := byUser[reading.UserID]
		if !ok {
			profile = domain.DefaultProfile(reading.UserID)
		}
		advisories = append(advisories, domain.NewAdvisory(reading, profile))
	}
	return advisories, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(advisories []domain.Advisory) {
	categories := map[domain.Category]int{}
	unsafeByUser := map[string]int{}
	unsafe := 0
	for _, a := range advisories {
		categories[a.Classification.Category]++
		if a.Classification.UnsafeForUser {
			unsafe++
			unsafeByUser[a.Reading.UserID]++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(advisories))
	for _, c := range domain.Categories {
		fmt.Printf("  %-32s %d\n", c, categories[c])
	}
	fmt.Printf("Unsafe for user: %d\n", unsafe)

	users := make([]string, 0, len(unsafeByUser))
	for u := range unsafeByUser {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		fmt.Printf("  %s: %d\n", u, unsafeByUser[u])
	}
}
