package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockDir = "../../data/mock"

func TestGenerate_MatchesCheckedInFixtures(t *testing.T) {
	dir := t.TempDir()
	readingsPath := filepath.Join(dir, "readings.json")
	profilesPath := filepath.Join(dir, "profiles.yaml")

	records := generate(rand.New(rand.NewPCG(42, 42)), 4, 0)
	require.NoError(t, writeJSON(readingsPath, records))
	require.NoError(t, writeYAML(profilesPath, map[string]any{"profiles": profiles}))

	for _, name := range []string{"readings.json", "profiles.yaml"} {
		want, err := os.ReadFile(filepath.Join(mockDir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestGenerate_CoversEveryBand(t *testing.T) {
	advisories, err := classify(generate(rand.New(rand.NewPCG(1, 1)), 4, 0))
	require.NoError(t, err)

	categories := map[domain.Category]int{}
	for _, a := range advisories {
		categories[a.Classification.Category]++
	}
	assert.Equal(t, map[domain.Category]int{
		domain.CategoryGood:               2,
		domain.CategoryModerate:           4,
		domain.CategoryUnhealthySensitive: 3,
		domain.CategoryUnhealthy:          1,
		domain.CategoryVeryUnhealthy:      2,
	}, categories)
}

func TestGenerate_Jitter(t *testing.T) {
	base := generate(rand.New(rand.NewPCG(7, 7)), 6, 0)
	a := generate(rand.New(rand.NewPCG(7, 7)), 6, 10)
	b := generate(rand.New(rand.NewPCG(7, 7)), 6, 10)
	require.Len(t, a, len(sites)*6)

	for i := range a {
		assert.Equal(t, *a[i].AQI, *b[i].AQI, "same seed gives the same output")
		assert.InDelta(t, *base[i].AQI, *a[i].AQI, 10)
		assert.GreaterOrEqual(t, *a[i].AQI, 0.0)
	}
	// Hours past the table wrap around to its start.
	assert.Equal(t, "user-1-04", base[4].ID)
	assert.InDelta(t, *base[0].AQI, *base[4].AQI, 0)
}
