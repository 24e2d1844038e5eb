package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
)

// FanoutLoader loads every batch into each wrapped loader in order. The first
// failure aborts the batch and the pipeline retries it whole, so destinations
// must tolerate duplicates.
type FanoutLoader struct {
	loaders []namedLoader
}

type namedLoader struct {
	name   string
	loader BatchLoader
}

// NewFanoutLoader creates an empty FanoutLoader. Add destinations with With.
func NewFanoutLoader() *FanoutLoader {
	return &FanoutLoader{}
}

// With appends a named destination and returns the loader for chaining.
func (f *FanoutLoader) With(name string, l BatchLoader) *FanoutLoader {
	f.loaders = append(f.loaders, namedLoader{name: name, loader: l})
	return f
}

func (f *FanoutLoader) LoadBatch(ctx context.Context, advisories []domain.Advisory) error {
	for _, nl := range f.loaders {
		if err := nl.loader.LoadBatch(ctx, advisories); err != nil {
			return fmt.Errorf("load %s: %w", nl.name, err)
		}
	}
	return nil
}
