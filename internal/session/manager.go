package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
)

// Manager creates and locates session directories under a data directory.
type Manager struct {
	dataDir string
	logger  *slog.Logger
}

// NewManager returns a Manager rooted at dataDir.
func NewManager(dataDir string, logger *slog.Logger) *Manager {
	return &Manager{dataDir: dataDir, logger: logging.NewComponentLogger(logger, "session")}
}

// DataDir returns the root holding all session directories.
func (m *Manager) DataDir() string { return m.dataDir }

// Create makes a fresh session directory named after start with the full
// layout. Two sessions started within the same second get a numeric suffix.
func (m *Manager) Create(start time.Time) (Directory, error) {
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return Directory{}, services.Wrap(services.ErrFilesystem, "session", "create", "create data directory", err)
	}
	base := filepath.Join(m.dataDir, DirectoryName(start))
	path := base
	for n := 2; ; n++ {
		err := os.Mkdir(path, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return Directory{}, services.Wrap(services.ErrFilesystem, "session", "create", "create session directory", err)
		}
		path = fmt.Sprintf("%s-%d", base, n)
	}
	dir, err := EnsureLayout(path)
	if err != nil {
		return Directory{}, err
	}
	m.logger.Info("session directory created",
		logging.String(logging.FieldSessionDir, dir.Path),
		logging.String(logging.FieldEventType, "session_created"),
	)
	return dir, nil
}

// Info summarizes a session directory for listings.
type Info struct {
	Name           string
	Path           string
	Started        time.Time
	ModTime        time.Time
	JPGCount       int
	RAWCount       int
	ProcessedCount int
	Videos         []string
	ConfigSnapshot bool
	StagingLeft    bool
}

// List returns every session directory, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFilesystem, "session", "list", "read data directory", err)
	}
	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		dir := Directory{Path: filepath.Join(m.dataDir, entry.Name())}
		info := Info{
			Name:           entry.Name(),
			Path:           dir.Path,
			ModTime:        stat.ModTime(),
			JPGCount:       countFiles(dir.JPG()),
			RAWCount:       countFiles(dir.RAW()),
			ProcessedCount: countFiles(dir.Processed()),
		}
		info.Started, _ = ParseStart(entry.Name())
		if videos, err := filepath.Glob(filepath.Join(dir.Output(), "*.mp4")); err == nil {
			info.Videos = videos
		}
		if _, err := os.Stat(dir.ConfigSnapshot()); err == nil {
			info.ConfigSnapshot = true
		}
		if _, err := os.Stat(dir.Temp()); err == nil {
			info.StagingLeft = true
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].ModTime.After(infos[j].ModTime)
		}
		return infos[i].Name > infos[j].Name
	})
	return infos, nil
}

// Latest returns the most recently modified session directory.
func (m *Manager) Latest() (Directory, error) {
	infos, err := m.List()
	if err != nil {
		return Directory{}, err
	}
	if len(infos) == 0 {
		return Directory{}, services.Wrap(services.ErrNotFound, "session", "latest", fmt.Sprintf("no %s* directories in %s", Prefix, m.dataDir), nil)
	}
	return Directory{Path: infos[0].Path}, nil
}

// Resolve maps a user-supplied directory argument onto a session directory.
// An empty argument selects the latest session; a bare name is looked up in
// the data directory.
func (m *Manager) Resolve(arg string) (Directory, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return m.Latest()
	}
	candidates := []string{arg}
	if !filepath.IsAbs(arg) && !strings.ContainsRune(arg, filepath.Separator) {
		candidates = append(candidates, filepath.Join(m.dataDir, arg))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				abs = candidate
			}
			return Directory{Path: abs}, nil
		}
	}
	return Directory{}, services.Wrap(services.ErrNotFound, "session", "resolve", fmt.Sprintf("directory %q does not exist", arg), nil)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			n++
		}
	}
	return n
}
