package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
)

const assetTimeLayout = "20060102_150405"

// Staged names the files one capture attempt left in its staging folder.
// Either path may be empty.
type Staged struct {
	JPG string
	RAW string
}

// Empty reports whether the attempt produced neither a JPG nor a RAW file.
func (s Staged) Empty() bool { return s.JPG == "" && s.RAW == "" }

// AssetName builds the final file name of a promoted asset. The UTC timestamp
// keeps names sortable and the sequence number keeps them unique when two
// shots land in the same second.
func AssetName(at time.Time, seq int, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("photo_%s_%04d%s", at.UTC().Format(assetTimeLayout), seq, ext)
}

// Promote moves staged files into jpg/ and raw/ by rename. It never
// overwrites an existing asset. On a RAW failure the already promoted JPG
// stays in place and its path is still returned.
func (d Directory) Promote(staged Staged, seq int, at time.Time) (Staged, error) {
	var out Staged
	if staged.JPG != "" {
		dst, err := moveInto(staged.JPG, d.JPG(), AssetName(at, seq, filepath.Ext(staged.JPG)))
		if err != nil {
			return out, err
		}
		out.JPG = dst
	}
	if staged.RAW != "" {
		dst, err := moveInto(staged.RAW, d.RAW(), AssetName(at, seq, filepath.Ext(staged.RAW)))
		if err != nil {
			return out, err
		}
		out.RAW = dst
	}
	return out, nil
}

func moveInto(src, dir, name string) (string, error) {
	dst := filepath.Join(dir, name)
	if _, err := os.Lstat(dst); err == nil {
		return "", services.Wrap(services.ErrFilesystem, "session", "promote", fmt.Sprintf("%s already exists", name), fs.ErrExist)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "session", "promote", fmt.Sprintf("move %s", filepath.Base(src)), err)
	}
	return dst, nil
}

// CleanupResult reports what a staging cleanup removed and what it left.
type CleanupResult struct {
	Removed int
	Failed  []string
}

// CleanupStaging deletes temp/ file by file, then its directories deepest
// first. Failures are logged and skipped; nothing outside temp/ is touched.
func (d Directory) CleanupStaging(logger *slog.Logger) CleanupResult {
	var result CleanupResult
	root := d.Temp()

	var files, dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path != root {
				result.Failed = append(result.Failed, path)
				logCleanupFailure(logger, path, err)
			}
			return nil
		}
		if entry.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logCleanupFailure(logger, root, err)
	}

	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.Failed = append(result.Failed, path)
			logCleanupFailure(logger, path, err)
			continue
		}
		result.Removed++
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.Failed = append(result.Failed, dirs[i])
			logCleanupFailure(logger, dirs[i], err)
		}
	}
	if logger != nil && (result.Removed > 0 || len(result.Failed) > 0) {
		logger.Info("staging cleaned",
			logging.Int("removed", result.Removed),
			logging.Int("failed", len(result.Failed)),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

func logCleanupFailure(logger *slog.Logger, path string, err error) {
	logging.WarnWithContext(logger, "staging cleanup could not remove path", "staging_cleanup_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remove it by hand or run 'timelapsebox staging clean'"),
		logging.String(logging.FieldImpact, "temp/ keeps leftover files; captured assets are unaffected"),
	)
}
