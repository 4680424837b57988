package vision

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func waitForWorker(t *testing.T, w *Worker) WorkerStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !w.IsRunning() {
			return w.Status()
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Worker did not finish in time")
	return WorkerStatus{}
}

func TestWorkerAnalyzesLibrary(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	load := func(path string) (*PixelBuffer, error) {
		return uniform(32, 32, 180), nil
	}
	w := NewWorker(store, load, WorkerConfig{MaxWorkers: 2, IdleThrottleMs: 1})

	images := []ImageInfo{
		{Path: "/pics/a.png", ModTime: 1, Size: 10},
		{Path: "/pics/b.png", ModTime: 2, Size: 20},
		{Path: "/pics/c.png", ModTime: 3, Size: 30},
	}
	if err := w.Start(context.Background(), images, SampleRegions); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := waitForWorker(t, w)
	if status.Status != "complete" {
		t.Errorf("Expected status complete, got %s", status.Status)
	}
	if status.Processed != 3 {
		t.Errorf("Expected 3 processed, got %d", status.Processed)
	}
	if status.Failed != 0 {
		t.Errorf("Expected no failures, got %d", status.Failed)
	}
	if store.Len() != 3 {
		t.Errorf("Expected 3 stored analyses, got %d", store.Len())
	}
}

func TestWorkerSkipsCachedEntries(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.Put("/pics/a.png", 1, 10, testAnalysisForWorker(t))

	loads := 0
	load := func(path string) (*PixelBuffer, error) {
		loads++
		return uniform(32, 32, 80), nil
	}
	w := NewWorker(store, load, WorkerConfig{MaxWorkers: 1, IdleThrottleMs: 1})

	images := []ImageInfo{{Path: "/pics/a.png", ModTime: 1, Size: 10}}
	if err := w.Start(context.Background(), images, SampleRegions); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := waitForWorker(t, w)
	if status.Cached != 1 {
		t.Errorf("Expected 1 cached hit, got %d", status.Cached)
	}
	if loads != 0 {
		t.Errorf("Expected no loads for cached entries, got %d", loads)
	}
}

func testAnalysisForWorker(t *testing.T) *Analysis {
	t.Helper()
	rec, err := NewAnalyzer().Analyze(uniform(32, 32, 80), SampleRegions)
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}
	return rec
}

func TestWorkerCountsFailures(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	load := func(path string) (*PixelBuffer, error) {
		return nil, fmt.Errorf("decode exploded")
	}
	w := NewWorker(store, load, WorkerConfig{MaxWorkers: 1, IdleThrottleMs: 1})

	if err := w.Start(context.Background(), []ImageInfo{{Path: "/pics/x.png"}}, SampleRegions); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := waitForWorker(t, w)
	if status.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", status.Failed)
	}
	if store.Len() != 0 {
		t.Errorf("Expected nothing stored, got %d", store.Len())
	}
}

func TestWorkerRejectsConcurrentStart(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	block := make(chan struct{})
	load := func(path string) (*PixelBuffer, error) {
		<-block
		return uniform(32, 32, 80), nil
	}
	w := NewWorker(store, load, WorkerConfig{MaxWorkers: 1, IdleThrottleMs: 1})

	if err := w.Start(context.Background(), []ImageInfo{{Path: "/pics/a.png"}}, SampleRegions); err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	if err := w.Start(context.Background(), []ImageInfo{{Path: "/pics/b.png"}}, SampleRegions); err == nil {
		t.Error("Expected second start to fail while running")
	}
	close(block)
	waitForWorker(t, w)
}
