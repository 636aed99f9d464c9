package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"timelapsebox/internal/catalog"
	"timelapsebox/internal/services"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "data", "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionStartAndFinish(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	err := store.StartSession(ctx, catalog.SessionStart{
		RunID:      "run-1",
		Name:       "series_2026-03-14_09-00-00",
		Path:       "/data/series_2026-03-14_09-00-00",
		Duration:   time.Minute,
		TotalShots: 10,
		StartedAt:  started,
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	got, err := store.SessionByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("SessionByRunID: %v", err)
	}
	if got.Status != catalog.StatusRunning || got.Duration != time.Minute || !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected running session %+v", got)
	}

	err = store.FinishSession(ctx, "run-1", catalog.SessionFinish{
		Status:         catalog.StatusPartial,
		ShotsCaptured:  7,
		Attempts:       10,
		Failures:       3,
		StopReason:     "duration",
		ConfigSnapshot: true,
		FinishedAt:     started.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	got, err = store.SessionByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("SessionByRunID: %v", err)
	}
	if got.Status != catalog.StatusPartial || got.ShotsCaptured != 7 || got.Failures != 3 || !got.ConfigSnapshot || got.StopReason != "duration" {
		t.Fatalf("unexpected finished session %+v", got)
	}
	if !got.FinishedAt.Equal(started.Add(time.Minute)) {
		t.Fatalf("finished at = %s", got.FinishedAt)
	}
}

func TestFinishUnknownSession(t *testing.T) {
	store := openStore(t)
	err := store.FinishSession(context.Background(), "missing", catalog.SessionFinish{Status: catalog.StatusCompleted})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.SessionByRunID(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartSession(ctx, catalog.SessionStart{
			RunID: id, Name: id, Path: "/data/" + id, Duration: time.Minute, TotalShots: 1,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("StartSession %s: %v", id, err)
		}
	}
	all, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "c" || all[2].RunID != "a" {
		t.Fatalf("unexpected order %+v", all)
	}
	limited, err := store.ListSessions(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited = %d err=%v", len(limited), err)
	}
}

func TestMarkInterrupted(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"live", "done"} {
		if err := store.StartSession(ctx, catalog.SessionStart{RunID: id, Name: id, Path: "/data/" + id, Duration: time.Minute, TotalShots: 2}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.FinishSession(ctx, "done", catalog.SessionFinish{Status: catalog.StatusCompleted}); err != nil {
		t.Fatal(err)
	}
	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	live, _ := store.SessionByRunID(ctx, "live")
	done, _ := store.SessionByRunID(ctx, "done")
	if live.Status != catalog.StatusInterrupted || done.Status != catalog.StatusCompleted {
		t.Fatalf("statuses = %s / %s", live.Status, done.Status)
	}
}

func TestStageRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	runs := []catalog.StageRun{
		{RunID: "p1", SessionPath: "/data/s1", Phase: "processing", Status: catalog.StatusCompleted, Inputs: 10, Outputs: 9, StartedAt: base},
		{RunID: "a1", SessionPath: "/data/s1", Phase: "assembly", Status: catalog.StatusFailed, ErrorMessage: "exit status 1", StartedAt: base.Add(time.Minute)},
		{RunID: "a2", SessionPath: "/data/s1", Phase: "assembly", Status: catalog.StatusCompleted, Outputs: 1, OutputPath: "/data/s1/output/timelapse.mp4", StartedAt: base.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		if err := store.RecordStage(ctx, run); err != nil {
			t.Fatalf("RecordStage %s: %v", run.RunID, err)
		}
	}
	got, err := store.StageRuns(ctx, "/data/s1")
	if err != nil {
		t.Fatalf("StageRuns: %v", err)
	}
	if len(got) != 3 || got[0].Phase != "processing" || got[1].ErrorMessage != "exit status 1" {
		t.Fatalf("unexpected runs %+v", got)
	}
	outputs, err := store.LatestOutputs(ctx)
	if err != nil {
		t.Fatalf("LatestOutputs: %v", err)
	}
	if outputs["/data/s1"] != "/data/s1/output/timelapse.mp4" {
		t.Fatalf("outputs = %v", outputs)
	}
	if err := store.RecordStage(ctx, catalog.StageRun{RunID: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := catalog.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.StartSession(context.Background(), catalog.SessionStart{RunID: "r", Name: "n", Path: "/p", Duration: time.Second, TotalShots: 1}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.SessionByRunID(context.Background(), "r"); err != nil {
		t.Fatalf("session lost after reopen: %v", err)
	}
}
