package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
)

// ProfileSource resolves the profile a reading should be classified for.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
}

// AdvisoryTransformer implements Transformer using domain functions with
// optional pollutant enrichment from an air quality provider.
type AdvisoryTransformer struct {
	profiles ProfileSource
	provider domain.AirQualityProvider
	logger   *slog.Logger
}

// NewTransformer creates an AdvisoryTransformer. A nil profile source
// classifies every reading for the default profile; a nil provider disables
// enrichment.
func NewTransformer(profiles ProfileSource, provider domain.AirQualityProvider, logger *slog.Logger) *AdvisoryTransformer {
	return &AdvisoryTransformer{
		profiles: profiles,
		provider: provider,
		logger:   logger,
	}
}

func (t *AdvisoryTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Advisory, error) {
	reading, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Advisory{}, err
	}

	profile, err := t.resolveProfile(ctx, reading.UserID)
	if err != nil {
		return domain.Advisory{}, err
	}

	reading = domain.EnrichWithConditions(ctx, reading, t.provider, t.logger)
	return domain.NewAdvisory(reading, profile), nil
}

func (t *AdvisoryTransformer) resolveProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if t.profiles == nil || userID == "" {
		return domain.DefaultProfile(userID), nil
	}
	profile, err := t.profiles.Profile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.DefaultProfile(userID), nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("resolve profile %q: %w", userID, err)
	}
	return profile, nil
}
