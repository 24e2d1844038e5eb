package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/aqi-advisory-service/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level   string
		format  string
		enabled slog.Level
		hidden  slog.Level
	}{
		{level: "debug", format: "text", enabled: slog.LevelDebug, hidden: slog.LevelDebug - 1},
		{level: "warning", format: "json", enabled: slog.LevelWarn, hidden: slog.LevelInfo},
		{level: "error", format: "json", enabled: slog.LevelError, hidden: slog.LevelWarn},
		{level: "nonsense", format: "", enabled: slog.LevelInfo, hidden: slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: tt.format})
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.enabled))
			assert.False(t, logger.Enabled(ctx, tt.hidden))
			// The shared constructor installs the base handler as the default.
			assert.True(t, slog.Default().Enabled(ctx, tt.enabled))
			assert.False(t, slog.Default().Enabled(ctx, tt.hidden))
		})
	}
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, registerAll(reg, m))

	m.AdvisoriesByCategory.WithLabelValues("Good", "false").Inc()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.AdvisoriesByCategory.WithLabelValues("Good", "false")), 1e-9)
}

func registerAll(reg *prometheus.Registry, m *Metrics) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
