package profilefile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newMemSaver() *memSaver {
	return &memSaver{profiles: make(map[string]domain.Profile)}
}

func (m *memSaver) SaveProfile(_ context.Context, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *memSaver) get(id string) (domain.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

const validYAML = `profiles:
  - user_id: user-1
    username: ana
    age: 70
  - user_id: user-2
    age: 25
    has_asthma: true
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, validYAML)

	profiles, err := Load(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, domain.Profile{UserID: "user-1", Username: "ana", Age: 70}, profiles[0])
	assert.True(t, profiles[0].Sensitive())
	assert.True(t, profiles[1].HasAsthma)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "malformed yaml", content: "profiles: [", errMsg: "parse profiles file"},
		{name: "missing user id", content: "profiles:\n  - age: 20\n", errMsg: "profiles[0]"},
		{name: "age out of range", content: "profiles:\n  - user_id: a\n    age: 200\n", errMsg: "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			writeFile(t, path, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, validYAML)
	saver := newMemSaver()

	n, err := Seed(context.Background(), path, saver)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, ok := saver.get("user-2")
	require.True(t, ok)
	assert.Equal(t, 25, p.Age)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, validYAML)
	saver := newMemSaver()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, saver, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	updated := validYAML + "  - user_id: user-3\n    age: 80\n"
	assert.Eventually(t, func() bool {
		// Rewrite each tick: the watcher may not be registered on the first write.
		writeFile(t, path, updated)
		_, ok := saver.get("user-3")
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
