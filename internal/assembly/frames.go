package assembly

import (
	"path/filepath"
	"strings"

	"timelapsebox/internal/services"
	"timelapsebox/internal/session"
)

// Frames is the image sequence chosen for one assembly run.
type Frames struct {
	Pattern   string
	Count     int
	Processed bool
}

// SelectFrames prefers processed frames and falls back to the raw JPGs.
// The first extension in exts that matches any file wins within each
// folder. No frames at all fails with services.ErrNotFound.
func SelectFrames(dir session.Directory, exts []string) (Frames, error) {
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg"}
	}
	sources := []struct {
		dir       string
		prefix    string
		processed bool
	}{
		{dir: dir.Processed(), prefix: "processed_", processed: true},
		{dir: dir.JPG(), prefix: "", processed: false},
	}
	for _, src := range sources {
		for _, ext := range exts {
			pattern := filepath.Join(src.dir, src.prefix+"*"+strings.ToLower(ext))
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return Frames{}, services.Wrap(services.ErrConfiguration, "assembly", "select frames", pattern, err)
			}
			if len(matches) > 0 {
				return Frames{Pattern: pattern, Count: len(matches), Processed: src.processed}, nil
			}
		}
	}
	return Frames{}, services.Wrap(services.ErrNotFound, "assembly", "select frames",
		"no frames in "+dir.Processed()+" or "+dir.JPG(), nil)
}
