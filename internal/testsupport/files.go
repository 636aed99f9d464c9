package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"timelapsebox/internal/config"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/session"
)

// NewSession creates a session directory under cfg's data dir as if a
// capture had started at start.
func NewSession(t testing.TB, cfg *config.Config, start time.Time) session.Directory {
	t.Helper()

	dir, err := session.NewManager(cfg.Paths.DataDir, logging.NewNop()).Create(start)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return dir
}

// WritePhotos drops small placeholder files named names into dir.
func WritePhotos(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("photo:"+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}
