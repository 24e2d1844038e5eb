package airquality

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/couchcryptid/aqi-advisory-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	// forecastFallbackHours is how many hours at and before the target are tried.
	forecastFallbackHours = 6
	// maxRetries bounds attempts per forecast hour on rate limiting or network errors.
	maxRetries = 5
)

// Client implements domain.AirQualityProvider using the Google Air Quality API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock

	// retryBase is multiplied by 2^attempt between retries.
	retryBase time.Duration
	// stepDelay separates attempts at successive fallback hours.
	stepDelay time.Duration
}

// NewClient creates an air quality API client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		metrics:   metrics,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
		retryBase: time.Second,
		stepDelay: 300 * time.Millisecond,
	}
}

// CurrentConditions returns the universal AQI, dominant pollutant and
// pollutant concentrations at lat/lon.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	payload := lookupRequest{
		Location:          location{Latitude: lat, Longitude: lon},
		ExtraComputations: []string{"POLLUTANT_CONCENTRATION"},
		UniversalAQI:      true,
		LanguageCode:      "en",
	}

	var resp currentResponse
	status, err := c.post(ctx, "currentConditions:lookup", "current", payload, &resp)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues("current", "error").Inc()
		return domain.Conditions{}, err
	}
	if status != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues("current", "error").Inc()
		return domain.Conditions{}, fmt.Errorf("air quality API error: status %d", status)
	}

	if len(resp.Indexes) == 0 {
		c.metrics.ProviderRequests.WithLabelValues("current", "empty").Inc()
		return domain.Conditions{}, nil
	}
	c.metrics.ProviderRequests.WithLabelValues("current", "success").Inc()

	idx := resp.Indexes[0]
	cond := domain.Conditions{
		AQI:               idx.AQI,
		Category:          idx.Category,
		DominantPollutant: strings.ToLower(idx.DominantPollutant),
		Geo:               domain.Geo{Lat: lat, Lon: lon},
		ObservedAt:        parseTime(resp.DateTime, c.clock.Now()),
	}
	if len(resp.Pollutants) > 0 {
		cond.Pollutants = make(map[string]float64, len(resp.Pollutants))
		for _, p := range resp.Pollutants {
			cond.Pollutants[strings.ToLower(p.Code)] = p.Concentration.Value
		}
	}
	return cond, nil
}

// Forecast returns the forecast closest to target. A zero target means the
// same hour tomorrow; targets beyond the provider's 72 hour window are
// clamped to it. When an hour has no data, up to five earlier hours are tried.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, target time.Time) (domain.ForecastPoint, error) {
	now := c.clock.Now().UTC()
	if target.IsZero() {
		target = now.Add(24 * time.Hour).Truncate(time.Hour)
	}
	maxAllowed := now.Add(domain.MaxForecastHours * time.Hour)
	if target.After(maxAllowed) {
		c.logger.Info("forecast target beyond provider window, clamping",
			"requested", target, "clamped", maxAllowed)
		target = maxAllowed
	}

	for back := 0; back < forecastFallbackHours; back++ {
		if back > 0 && !retry.SleepWithContext(ctx, c.stepDelay) {
			return domain.ForecastPoint{}, ctx.Err()
		}
		at := target.Add(-time.Duration(back) * time.Hour).UTC().Truncate(time.Hour)

		point, found, err := c.forecastAt(ctx, lat, lon, at)
		if err != nil {
			if ctx.Err() != nil {
				return domain.ForecastPoint{}, ctx.Err()
			}
			c.logger.Warn("forecast lookup failed", "date_time", at, "error", err)
		}
		if found {
			return point, nil
		}
		c.logger.Debug("no forecast for hour", "date_time", at)
	}

	c.metrics.ProviderRequests.WithLabelValues("forecast", "empty").Inc()
	return domain.ForecastPoint{}, domain.ErrNoForecast
}

// forecastAt requests a single forecast hour, retrying rate-limited and
// network-failed attempts with exponential backoff.
func (c *Client) forecastAt(ctx context.Context, lat, lon float64, at time.Time) (domain.ForecastPoint, bool, error) {
	payload := lookupRequest{
		Location:          location{Latitude: lat, Longitude: lon},
		DateTime:          at.Format("2006-01-02T15:00:00Z"),
		ExtraComputations: []string{"POLLUTANT_ADDITIONAL_INFO"},
		UniversalAQI:      true,
		LanguageCode:      "en",
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var resp forecastResponse
		status, err := c.post(ctx, "forecast:lookup", "forecast", payload, &resp)
		switch {
		case err != nil:
			if ctx.Err() != nil || attempt == maxRetries {
				c.metrics.ProviderRequests.WithLabelValues("forecast", "error").Inc()
				return domain.ForecastPoint{}, false, err
			}
			c.logger.Warn("forecast network error, retrying", "attempt", attempt, "error", err)
		case status == http.StatusTooManyRequests:
			c.logger.Warn("forecast rate limited, retrying", "attempt", attempt)
		case status != http.StatusOK:
			c.metrics.ProviderRequests.WithLabelValues("forecast", "error").Inc()
			return domain.ForecastPoint{}, false, fmt.Errorf("air quality API error: status %d", status)
		default:
			return c.firstForecast(resp)
		}

		if !retry.SleepWithContext(ctx, c.retryBase*time.Duration(1<<attempt)) {
			return domain.ForecastPoint{}, false, ctx.Err()
		}
	}
	c.metrics.ProviderRequests.WithLabelValues("forecast", "error").Inc()
	return domain.ForecastPoint{}, false, errors.New("air quality API: retries exhausted")
}

func (c *Client) firstForecast(resp forecastResponse) (domain.ForecastPoint, bool, error) {
	if len(resp.HourlyForecasts) == 0 || len(resp.HourlyForecasts[0].Indexes) == 0 {
		return domain.ForecastPoint{}, false, nil
	}
	c.metrics.ProviderRequests.WithLabelValues("forecast", "success").Inc()
	hf := resp.HourlyForecasts[0]
	return domain.ForecastPoint{
		Time: parseTime(hf.DateTime, time.Time{}),
		AQI:  float64(hf.Indexes[0].AQI),
	}, true, nil
}

// post sends a JSON request and decodes a 200 response into out. Non-200
// statuses are returned without error so callers can decide on retries.
func (c *Client) post(ctx context.Context, endpoint, method string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, url.Values{"key": {c.apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("air quality API non-200", "method", method, "status", resp.StatusCode, "body", string(msg))
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func parseTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return fallback.UTC()
}

// Air Quality API request and response types.

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupRequest struct {
	Location          location `json:"location"`
	DateTime          string   `json:"dateTime,omitempty"`
	ExtraComputations []string `json:"extraComputations,omitempty"`
	UniversalAQI      bool     `json:"universalAqi"`
	LanguageCode      string   `json:"languageCode"`
}

type index struct {
	Code              string `json:"code"`
	AQI               int    `json:"aqi"`
	Category          string `json:"category"`
	DominantPollutant string `json:"dominantPollutant"`
}

type pollutant struct {
	Code          string `json:"code"`
	Concentration struct {
		Value float64 `json:"value"`
		Units string  `json:"units"`
	} `json:"concentration"`
}

type currentResponse struct {
	DateTime   string      `json:"dateTime"`
	Indexes    []index     `json:"indexes"`
	Pollutants []pollutant `json:"pollutants"`
}

type hourlyForecast struct {
	DateTime string  `json:"dateTime"`
	Indexes  []index `json:"indexes"`
}

type forecastResponse struct {
	HourlyForecasts []hourlyForecast `json:"hourlyForecasts"`
}
