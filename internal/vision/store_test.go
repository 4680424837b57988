package vision

import (
	"testing"
)

func testAnalysis(t *testing.T, method SamplingMethod) *Analysis {
	t.Helper()
	rec, err := NewAnalyzer().Analyze(uniform(64, 64, 200), method)
	if err != nil {
		t.Fatalf("Failed to build fixture analysis: %v", err)
	}
	return rec
}

func TestStorePutGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec := testAnalysis(t, SampleRegions)
	store.Put("/pics/a.png", 1000, 4096, rec)

	got := store.Get("/pics/a.png", 1000, 4096, SampleRegions)
	if got == nil {
		t.Fatal("Expected cache hit")
	}
	if got.Brightness != rec.Brightness {
		t.Errorf("Expected stored brightness %f, got %f", rec.Brightness, got.Brightness)
	}
}

func TestStoreMissOnStaleFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.Put("/pics/a.png", 1000, 4096, testAnalysis(t, SampleRegions))

	if store.Get("/pics/a.png", 2000, 4096, SampleRegions) != nil {
		t.Error("Expected miss when mtime changed")
	}
	if store.Get("/pics/a.png", 1000, 8192, SampleRegions) != nil {
		t.Error("Expected miss when size changed")
	}
	if store.Get("/pics/a.png", 1000, 4096, SampleScattered) != nil {
		t.Error("Expected miss for a different sampling method")
	}
	if store.Get("/pics/b.png", 1000, 4096, SampleRegions) != nil {
		t.Error("Expected miss for an unknown path")
	}
}

func TestStoreFlushAndReload(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.Put("/pics/a.png", 1000, 4096, testAnalysis(t, SampleRegions))
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reloaded, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("Expected 1 entry after reload, got %d", reloaded.Len())
	}
	got := reloaded.Get("/pics/a.png", 1000, 4096, SampleRegions)
	if got == nil {
		t.Fatal("Expected cache hit after reload")
	}
	if len(got.Segments) != segmentCount {
		t.Errorf("Expected %d segments to survive the round trip, got %d", segmentCount, len(got.Segments))
	}
}

func TestStoreFlushSkipsWhenClean(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// No writes; flushing a clean store must not create the file.
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Len())
	}
}
