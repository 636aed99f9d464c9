package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/session"
)

// CleanStaleResult contains the outcome of a stale staging cleanup.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes temp/ folders that crashed or interrupted sessions left
// under dataDir when they have not been modified for maxAge. Assets in the
// typed folders are never touched. A maxAge of zero removes every leftover
// temp/ folder, so callers must not run it while a capture is in progress.
func CleanStale(ctx context.Context, dataDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dirs, err := ListDirectories(dataDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dataDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if dir.ModTime.After(cutoff) {
			result.Skipped = append(result.Skipped, dir.Path)
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale staging directory", "staging_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check data_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed stale staging directory",
				logging.String("path", dir.Path),
				logging.Duration("age", time.Since(dir.ModTime)),
				logging.Int64("bytes", dir.Size),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// DirInfo describes a leftover temp/ folder of one session.
type DirInfo struct {
	Session string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
}

// ListDirectories returns the temp/ folders that still exist under dataDir.
func ListDirectories(dataDir string) ([]DirInfo, error) {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), session.Prefix) {
			continue
		}
		temp := session.Directory{Path: filepath.Join(dataDir, entry.Name())}.Temp()
		info, err := os.Stat(temp)
		if err != nil || !info.IsDir() {
			continue
		}
		size, files, modTime := walkStats(temp, info.ModTime())
		dirs = append(dirs, DirInfo{
			Session: entry.Name(),
			Path:    temp,
			ModTime: modTime,
			Size:    size,
			Files:   files,
		})
	}
	return dirs, nil
}

// walkStats sums file sizes under path and reports the newest modification
// time seen, so an attempt folder written recently keeps temp/ fresh.
func walkStats(path string, newest time.Time) (int64, int, time.Time) {
	var size int64
	var files int
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if !info.IsDir() {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files, newest
}
