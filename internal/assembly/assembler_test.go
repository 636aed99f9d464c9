package assembly

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/services/ffmpeg"
	"timelapsebox/internal/session"
)

type fakeEncoder struct {
	requests []ffmpeg.Request
	err      error
}

func (f *fakeEncoder) Assemble(_ context.Context, req ffmpeg.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if req.Progress != nil {
		req.Progress(ffmpeg.ProgressUpdate{Frame: req.TotalFrames, TotalFrames: req.TotalFrames, Percent: 100, Done: true})
	}
	return req.OutputPath, os.WriteFile(req.OutputPath, []byte("mp4"), 0o644)
}

func newSession(t *testing.T) session.Directory {
	t.Helper()
	dir, err := session.NewManager(t.TempDir(), logging.NewNop()).Create(time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSelectFramesPrefersProcessed(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpg", "photo_2.jpg", "photo_3.jpg")
	touch(t, dir.Processed(), "processed_photo_1.jpg", "processed_photo_2.jpg")

	frames, err := SelectFrames(dir, nil)
	if err != nil {
		t.Fatalf("SelectFrames: %v", err)
	}
	if !frames.Processed || frames.Count != 2 || frames.Pattern != filepath.Join(dir.Processed(), "processed_*.jpg") {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSelectFramesFallsBackToJPG(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpeg", "photo_2.jpeg")

	frames, err := SelectFrames(dir, []string{".jpg", ".jpeg"})
	if err != nil {
		t.Fatalf("SelectFrames: %v", err)
	}
	if frames.Processed || frames.Count != 2 || frames.Pattern != filepath.Join(dir.JPG(), "*.jpeg") {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSelectFramesEmptySession(t *testing.T) {
	if _, err := SelectFrames(newSession(t), nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssembleSession(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpg", "photo_2.jpg")
	enc := &fakeEncoder{}
	a := New(enc, WithOutputName("clip.mp4"), WithEncoderCheck(func() error { return nil }))

	summary, err := a.AssembleSession(context.Background(), dir, 30, 18)
	if err != nil {
		t.Fatalf("AssembleSession: %v", err)
	}
	want := filepath.Join(dir.Output(), "clip.mp4")
	if summary.Output != want || summary.RunID == "" {
		t.Fatalf("summary = %+v", summary)
	}
	if len(enc.requests) != 1 {
		t.Fatalf("expected one encoder call, got %d", len(enc.requests))
	}
	req := enc.requests[0]
	if req.FPS != 30 || req.Quality != 18 || req.TotalFrames != 2 || req.InputPattern != filepath.Join(dir.JPG(), "*.jpg") {
		t.Fatalf("request = %+v", req)
	}
	data, err := os.ReadFile(filepath.Join(dir.Path, logging.PhaseLogName(PhaseName)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "assembly completed") {
		t.Fatalf("assembly log:\n%s", data)
	}
}

func TestAssembleRejectsBadParameters(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpg")
	enc := &fakeEncoder{}
	a := New(enc, WithEncoderCheck(func() error { return nil }))

	for _, tc := range []struct{ fps, quality int }{{0, 23}, {24, -1}, {24, 52}} {
		if _, err := a.AssembleSession(context.Background(), dir, tc.fps, tc.quality); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("fps=%d quality=%d: got %v", tc.fps, tc.quality, err)
		}
	}
	if len(enc.requests) != 0 {
		t.Fatal("encoder must not run for invalid parameters")
	}
}

func TestAssembleStopsWhenEncoderMissing(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpg")
	enc := &fakeEncoder{}
	a := New(enc, WithEncoderCheck(func() error { return EncoderAvailable("timelapsebox-no-such-ffmpeg") }))

	_, err := a.AssembleSession(context.Background(), dir, 24, 23)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if len(enc.requests) != 0 {
		t.Fatal("encoder must not run when missing")
	}
}

func TestAssemblePropagatesEncodingError(t *testing.T) {
	dir := newSession(t)
	touch(t, dir.JPG(), "photo_1.jpg")
	enc := &fakeEncoder{err: services.Wrap(services.ErrEncoding, "ffmpeg", "assemble", "exit status 1", nil)}

	_, err := New(enc).AssembleSession(context.Background(), dir, 24, 23)
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestVideoLength(t *testing.T) {
	if got := videoLength(48, 24); got != 2*time.Second {
		t.Fatalf("got %s", got)
	}
	if got := videoLength(10, 0); got != 0 {
		t.Fatalf("got %s", got)
	}
}
