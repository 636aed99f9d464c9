package logs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fallbackPoll bounds how long a follower sleeps when fsnotify is
// unavailable or misses an event.
const fallbackPoll = 2 * time.Second

// watchFile returns a channel that receives whenever path may have grown.
// It watches the parent directory so a log file created after the call is
// still noticed.
func watchFile(path string) (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	done := make(chan struct{})
	ticker := time.NewTicker(fallbackPoll)
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(filepath.Dir(path)); addErr != nil {
			_ = watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	go func() {
		var events chan fsnotify.Event
		var errs chan error
		if watcher != nil {
			events = watcher.Events
			errs = watcher.Errors
		}
		target := filepath.Clean(path)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				notify()
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(event.Name) == target && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					notify()
				}
			case _, ok := <-errs:
				if !ok {
					errs = nil
				}
			}
		}
	}()

	stop := func() {
		close(done)
		ticker.Stop()
		if watcher != nil {
			_ = watcher.Close()
		}
	}
	return changes, stop
}

// Follow emits lines appended to path after offset until ctx is done. It
// returns nil when ctx is cancelled.
func Follow(ctx context.Context, path string, offset int64, emit func([]string)) error {
	changes, stop := watchFile(path)
	defer stop()

	for {
		lines, next, err := readForward(path, offset)
		if err != nil {
			return err
		}
		if next < offset {
			next = 0
		}
		offset = next
		if len(lines) > 0 {
			emit(lines)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}
	}
}
