package airquality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/couchcryptid/aqi-advisory-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	currentCalls  int
	forecastCalls int
	conditions    domain.Conditions
	point         domain.ForecastPoint
	err           error
}

func (m *countingProvider) CurrentConditions(_ context.Context, _, _ float64) (domain.Conditions, error) {
	m.currentCalls++
	return m.conditions, m.err
}

func (m *countingProvider) Forecast(_ context.Context, _, _ float64, _ time.Time) (domain.ForecastPoint, error) {
	m.forecastCalls++
	return m.point, m.err
}

func TestCachedProvider_CurrentCacheHit(t *testing.T) {
	inner := &countingProvider{conditions: domain.Conditions{AQI: 80, DominantPollutant: "o3"}}
	metrics := observability.NewMetricsForTesting()
	cached := newCachedProvider(inner, 10, time.Minute, metrics, clockwork.NewFakeClock())

	r1, err := cached.CurrentConditions(context.Background(), 34.05, -118.24)
	require.NoError(t, err)
	r2, err := cached.CurrentConditions(context.Background(), 34.05, -118.24)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.currentCalls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ProviderCache.WithLabelValues("current", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ProviderCache.WithLabelValues("current", "miss")), 0)
}

func TestCachedProvider_KeyRoundsCoordinates(t *testing.T) {
	inner := &countingProvider{conditions: domain.Conditions{AQI: 80}}
	cached := newCachedProvider(inner, 10, time.Minute, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	_, _ = cached.CurrentConditions(context.Background(), 34.050001, -118.240001)
	_, _ = cached.CurrentConditions(context.Background(), 34.050002, -118.240002)
	assert.Equal(t, 1, inner.currentCalls)
}

func TestCachedProvider_EntriesExpire(t *testing.T) {
	inner := &countingProvider{conditions: domain.Conditions{AQI: 80}}
	clock := clockwork.NewFakeClock()
	cached := newCachedProvider(inner, 10, 10*time.Minute, observability.NewMetricsForTesting(), clock)

	_, _ = cached.CurrentConditions(context.Background(), 1, 2)
	clock.Advance(9 * time.Minute)
	_, _ = cached.CurrentConditions(context.Background(), 1, 2)
	assert.Equal(t, 1, inner.currentCalls)

	clock.Advance(2 * time.Minute)
	_, _ = cached.CurrentConditions(context.Background(), 1, 2)
	assert.Equal(t, 2, inner.currentCalls)
}

func TestCachedProvider_EmptyNotCached(t *testing.T) {
	inner := &countingProvider{}
	cached := newCachedProvider(inner, 10, time.Minute, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	_, _ = cached.CurrentConditions(context.Background(), 1, 2)
	_, _ = cached.CurrentConditions(context.Background(), 1, 2)
	assert.Equal(t, 2, inner.currentCalls)
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	cached := newCachedProvider(inner, 10, time.Minute, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	_, err := cached.CurrentConditions(context.Background(), 1, 2)
	require.Error(t, err)
	_, err = cached.CurrentConditions(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, 2, inner.currentCalls)
}

func TestCachedProvider_ForecastCachedByHour(t *testing.T) {
	inner := &countingProvider{point: domain.ForecastPoint{AQI: 60}}
	cached := newCachedProvider(inner, 10, time.Minute, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	at := time.Date(2025, 11, 16, 12, 10, 0, 0, time.UTC)
	_, _ = cached.Forecast(context.Background(), 1, 2, at)
	_, _ = cached.Forecast(context.Background(), 1, 2, at.Add(20*time.Minute))
	assert.Equal(t, 1, inner.forecastCalls)

	_, _ = cached.Forecast(context.Background(), 1, 2, at.Add(time.Hour))
	assert.Equal(t, 2, inner.forecastCalls)
}

func TestCachedProvider_ZeroForecastTargetBypassesCache(t *testing.T) {
	inner := &countingProvider{point: domain.ForecastPoint{AQI: 60}}
	cached := newCachedProvider(inner, 10, time.Minute, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	_, _ = cached.Forecast(context.Background(), 1, 2, time.Time{})
	_, _ = cached.Forecast(context.Background(), 1, 2, time.Time{})
	assert.Equal(t, 2, inner.forecastCalls)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[int](2, time.Hour, clockwork.NewFakeClock())

	c.put("a", 1)
	c.put("b", 2)
	_, _ = c.get("a") // a is now most recently used
	c.put("c", 3)     // evicts b

	assert.Equal(t, 2, c.len())
	_, ok := c.get("b")
	assert.False(t, ok)
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = c.get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2, time.Hour, clockwork.NewFakeClock())
	c.put("a", "old")
	c.put("a", "new")

	assert.Equal(t, 1, c.len())
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}
