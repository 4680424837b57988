package vision

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerStatus reports background pre-analysis progress.
type WorkerStatus struct {
	Status    string `json:"status"` // "idle", "running", "complete"
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Cached    int    `json:"cached"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
	StartedAt int64  `json:"startedAt,omitempty"`
}

// ImageInfo identifies one image to pre-analyze.
type ImageInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// LoadFunc decodes an image file into a pixel buffer. Injected so this
// package stays free of image-format concerns.
type LoadFunc func(path string) (*PixelBuffer, error)

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	MaxWorkers       int         // 0 = NumCPU - 1
	ThrottleMs       int64       // sleep between images while audio performs
	IdleThrottleMs   int64       // sleep between images otherwise
	IsPerformingFunc func() bool // checks whether a performance is active
	OnFile           func(path string, a *Analysis)
	OnProgress       func(WorkerStatus)
}

// Worker pre-analyzes an image library in the background so gallery
// clients get instant records. Cached entries are skipped; fresh results
// land in the store. Throttles down while audio is performing.
type Worker struct {
	mu sync.Mutex

	maxWorkers     int
	throttleMs     int64
	idleThrottleMs int64

	store    *Store
	load     LoadFunc
	analyzer *Analyzer

	isPerforming func() bool
	onFile       func(string, *Analysis)
	onProgress   func(WorkerStatus)

	status    WorkerStatus
	cancel    context.CancelFunc
	isRunning bool

	processedCount int64
	cachedCount    int64
	failedCount    int64
}

// NewWorker creates a background analysis worker.
func NewWorker(store *Store, load LoadFunc, cfg WorkerConfig) *Worker {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() - 1
		if maxWorkers < 1 {
			maxWorkers = 1
		}
	}
	throttleMs := cfg.ThrottleMs
	if throttleMs <= 0 {
		throttleMs = 150
	}
	idleThrottleMs := cfg.IdleThrottleMs
	if idleThrottleMs <= 0 {
		idleThrottleMs = 10
	}

	return &Worker{
		maxWorkers:     maxWorkers,
		throttleMs:     throttleMs,
		idleThrottleMs: idleThrottleMs,
		store:          store,
		load:           load,
		analyzer:       NewAnalyzer(),
		isPerforming:   cfg.IsPerformingFunc,
		onFile:         cfg.OnFile,
		onProgress:     cfg.OnProgress,
		status:         WorkerStatus{Status: "idle"},
	}
}

// Start begins pre-analysis of the given images with the given method.
func (w *Worker) Start(ctx context.Context, images []ImageInfo, method SamplingMethod) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("analysis already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	atomic.StoreInt64(&w.processedCount, 0)
	atomic.StoreInt64(&w.cachedCount, 0)
	atomic.StoreInt64(&w.failedCount, 0)
	w.status = WorkerStatus{
		Status:    "running",
		Total:     len(images),
		StartedAt: time.Now().Unix(),
	}
	w.mu.Unlock()

	go w.run(ctx, images, method)
	return nil
}

// Cancel stops a running pre-analysis.
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.isRunning = false
	w.status.Status = "idle"
	w.status.Message = "Analysis cancelled"
}

// Status returns a snapshot of the worker state.
func (w *Worker) Status() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := w.status
	status.Processed = int(atomic.LoadInt64(&w.processedCount))
	status.Cached = int(atomic.LoadInt64(&w.cachedCount))
	status.Failed = int(atomic.LoadInt64(&w.failedCount))
	return status
}

// IsRunning reports whether pre-analysis is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *Worker) run(ctx context.Context, images []ImageInfo, method SamplingMethod) {
	defer func() {
		w.mu.Lock()
		w.isRunning = false
		if w.status.Status == "running" {
			w.status.Status = "complete"
			w.status.Message = fmt.Sprintf("Analysis complete: %d processed, %d cached, %d failed",
				atomic.LoadInt64(&w.processedCount),
				atomic.LoadInt64(&w.cachedCount),
				atomic.LoadInt64(&w.failedCount))
		}
		w.mu.Unlock()
		w.notifyProgress()
		log.Printf("[VISION] Worker finished: %d processed, %d cached, %d failed",
			atomic.LoadInt64(&w.processedCount),
			atomic.LoadInt64(&w.cachedCount),
			atomic.LoadInt64(&w.failedCount))

		if err := w.store.Flush(); err != nil {
			log.Printf("[VISION] Warning: failed to flush analysis store: %v", err)
		}
	}()

	log.Printf("[VISION] Pre-analyzing %d images with %d workers", len(images), w.maxWorkers)

	jobs := make(chan ImageInfo, len(images))
	for _, img := range images {
		jobs <- img
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < w.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx, jobs, method)
		}()
	}
	wg.Wait()
}

func (w *Worker) worker(ctx context.Context, jobs <-chan ImageInfo, method SamplingMethod) {
	for img := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.throttle(ctx)
		w.processImage(img, method)
		w.notifyProgress()
	}
}

// throttle backs off while a performance is running so analysis never
// competes with the audio render loop for cores.
func (w *Worker) throttle(ctx context.Context) {
	delay := time.Duration(w.idleThrottleMs) * time.Millisecond
	if w.isPerforming != nil && w.isPerforming() {
		delay = time.Duration(w.throttleMs) * time.Millisecond
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (w *Worker) processImage(img ImageInfo, method SamplingMethod) {
	if cached := w.store.Get(img.Path, img.ModTime, img.Size, method); cached != nil {
		atomic.AddInt64(&w.cachedCount, 1)
		atomic.AddInt64(&w.processedCount, 1)
		return
	}

	buf, err := w.load(img.Path)
	if err != nil {
		log.Printf("[VISION] Failed to load %s: %v", img.Path, err)
		atomic.AddInt64(&w.failedCount, 1)
		atomic.AddInt64(&w.processedCount, 1)
		return
	}

	rec, err := w.analyzer.Analyze(buf, method)
	if err != nil {
		log.Printf("[VISION] Failed to analyze %s: %v", img.Path, err)
		atomic.AddInt64(&w.failedCount, 1)
		atomic.AddInt64(&w.processedCount, 1)
		return
	}

	w.store.Put(img.Path, img.ModTime, img.Size, rec)
	atomic.AddInt64(&w.processedCount, 1)
	if w.onFile != nil {
		w.onFile(img.Path, rec)
	}
}

func (w *Worker) notifyProgress() {
	if w.onProgress != nil {
		w.onProgress(w.Status())
	}
}
