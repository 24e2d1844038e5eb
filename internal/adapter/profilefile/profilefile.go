// Package profilefile seeds user profiles from a YAML file and keeps the
// profile store in sync when the file changes.
package profilefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ProfileSaver persists profiles.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, p domain.Profile) error
}

type document struct {
	Profiles []domain.Profile `yaml:"profiles"`
}

// Load reads and validates every profile in the YAML file at path.
//
//	profiles:
//	  - user_id: user-1
//	    age: 70
//	    has_asthma: false
func Load(path string) ([]domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	for i, p := range doc.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
	}
	return doc.Profiles, nil
}

// Seed loads the file and saves every profile it contains. It returns the
// number of profiles saved.
func Seed(ctx context.Context, path string, saver ProfileSaver) (int, error) {
	profiles, err := Load(path)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		if err := saver.SaveProfile(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}

// Watch reseeds the store whenever the file at path is written or replaced.
// It blocks until ctx is cancelled. Invalid edits are logged and skipped so a
// bad save does not wipe previously loaded profiles.
func Watch(ctx context.Context, path string, saver ProfileSaver, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace files on save, so watch the parent directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			n, err := Seed(ctx, path, saver)
			if err != nil {
				logger.Warn("profiles reload failed", "path", path, "error", err)
				continue
			}
			logger.Info("profiles reloaded", "path", path, "count", n)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("profiles watcher error", "error", err)
		}
	}
}
