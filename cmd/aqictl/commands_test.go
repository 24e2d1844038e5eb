package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCmd(t *testing.T) {
	out, err := execute(t, "", "classify", "--aqi", "120", "--age", "70")
	require.NoError(t, err)
	assert.Contains(t, out, "Unhealthy for Sensitive Groups")
	assert.Contains(t, out, "Unsafe for you: true")
	assert.Contains(t, out, domain.SensitivityHigh)
}

func TestClassifyCmd_JSON(t *testing.T) {
	out, err := execute(t, "", "classify", "--aqi", "250", "--json")
	require.NoError(t, err)

	var c domain.Classification
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, domain.Classify(250, false), c)
}

func TestClassifyCmd_Errors(t *testing.T) {
	_, err := execute(t, "", "classify")
	require.Error(t, err, "aqi is required")

	out, err := execute(t, "", "classify", "--aqi", "-3")
	require.Error(t, err)
	// main exits without printing, so cobra reports the error once and skips usage.
	assert.Equal(t, 1, strings.Count(out, "Error: --aqi must be non-negative, got -3"))
	assert.NotContains(t, out, "Usage:")
}

func TestSensitivityCmd(t *testing.T) {
	out, err := execute(t, "", "sensitivity", "--age", "40")
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityLow+"\n", out)

	out, err = execute(t, "", "sensitivity", "--asthma")
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityHigh+"\n", out)
}

const historyJSON = `[
  {"reading_id":"r1","user_id":"u","aqi":40,"category":"Good","observed_at":"2025-11-15T00:00:00Z"},
  {"reading_id":"r2","user_id":"u","aqi":50,"category":"Good","observed_at":"2025-11-15T01:00:00Z"},
  {"reading_id":"r3","user_id":"u","aqi":60,"category":"Moderate","observed_at":"2025-11-15T02:00:00Z"}
]`

func TestTrendCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(historyJSON), 0o600))

	out, err := execute(t, "", "trend", "--file", path, "--hours", "2", "--json")
	require.NoError(t, err)

	var points []domain.ForecastPoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 2)
	// slope 10, intercept 40, predicted at x = 3+i.
	assert.InDelta(t, 80, points[0].AQI, 0.01)
	assert.InDelta(t, 90, points[1].AQI, 0.01)
	require.NotNil(t, points[1].Classification)
	assert.Equal(t, domain.CategoryModerate, points[1].Classification.Category)
}

func TestTrendCmd_StdinWrapped(t *testing.T) {
	out, err := execute(t, `{"user_id":"u","records":`+historyJSON+`}`, "trend", "--hours", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "80.00")
	assert.Contains(t, out, "Moderate")
}

func TestTrendCmd_Errors(t *testing.T) {
	_, err := execute(t, `[]`, "trend")
	require.ErrorIs(t, err, domain.ErrNoHistory)

	_, err = execute(t, historyJSON, "trend", "--hours", "0")
	require.ErrorIs(t, err, domain.ErrInvalidHorizon)

	_, err = execute(t, `nope`, "trend")
	require.Error(t, err)
}
