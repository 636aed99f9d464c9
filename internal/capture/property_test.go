package capture_test

import (
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"

	"timelapsebox/internal/capture"
)

func TestIntervalNeverOvershootsDuration(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 10_000).Draw(t, "count")
		duration := time.Duration(rapid.Int64Range(int64(count), int64(48*time.Hour)).Draw(t, "duration"))
		cfg := capture.SessionConfig{TotalDuration: duration, TotalShotCount: count}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid config rejected: %v", err)
		}
		total := cfg.Interval() * time.Duration(count)
		if total > duration || duration-total >= time.Duration(count) {
			t.Fatalf("interval %s * %d = %s, duration %s", cfg.Interval(), count, total, duration)
		}
	})
}

func TestShotsNeverExceedTarget(t *testing.T) {
	dataRoot := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 12).Draw(t, "count")
		failures := rapid.SliceOfN(rapid.Bool(), 2*count, 2*count).Draw(t, "failures")
		cam := &fakeCamera{fail: func(n int) bool { return n <= len(failures) && failures[n-1] }}
		extra := time.Duration(rapid.Int64Range(0, 999).Draw(t, "extra_ms")) * time.Millisecond
		cfg := capture.SessionConfig{TotalDuration: time.Duration(count)*time.Second + extra, TotalShotCount: count}

		h := newHarness(tempSubdir(t, dataRoot))
		h.start(cfg, cam)
		defer h.cancel()

		h.waitProgress(t)
		for h.tick(t) {
			select {
			case <-h.progress:
			case out := <-h.done:
				h.final = &out
			}
		}
		res := h.wait(t).result

		successes := 0
		for i := 0; i < res.Attempts; i++ {
			if !failures[i] {
				successes++
			}
		}
		want := min(successes, count)
		if res.ShotsCaptured != want || len(res.JPG) != want {
			t.Fatalf("shots = %d (%d files), want %d", res.ShotsCaptured, len(res.JPG), want)
		}
		if res.Attempts > count {
			t.Fatalf("attempts = %d, more than one per interval", res.Attempts)
		}
	})
}

func tempSubdir(t fataler, root string) string {
	t.Helper()
	dir, err := os.MkdirTemp(root, "run-")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	return dir
}
