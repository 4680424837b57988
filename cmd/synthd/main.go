// Package main is the entry point for the synthd daemon.
// synthd turns still images into short generative audio performances. It
// runs headless, talks to clients (galleries, control panels) over an
// IPC socket, and integrates with OS media sessions. With -render it
// instead sonifies a single image to a WAV file and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shapesynth/synthd/internal/audio"
	"github.com/shapesynth/synthd/internal/config"
	"github.com/shapesynth/synthd/internal/imaging"
	"github.com/shapesynth/synthd/internal/ipc"
	"github.com/shapesynth/synthd/internal/media"
	"github.com/shapesynth/synthd/internal/queue"
	"github.com/shapesynth/synthd/internal/synth"
	"github.com/shapesynth/synthd/internal/vision"
)

// Version is set at build time via ldflags
var Version = "dev"

// Flags holds the parsed command line
type Flags struct {
	SocketPath  string
	ConfigDir   string
	Verbose     bool
	ShowVersion bool

	// One-shot offline mode
	RenderPath string
	OutPath    string
	Engine     string
	Sampling   string
	Duration   float64
	Volume     float64
	Seed       int64
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("synthd %s\n", Version)
		return
	}

	if flags.RenderPath != "" {
		if err := renderOnce(flags); err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		return
	}

	if flags.Verbose {
		log.Printf("synthd version %s starting...", Version)
	}

	// Create context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.SocketPath, "socket", "", "IPC socket path (default: auto-generated based on UID)")
	flag.StringVar(&flags.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.config/synthd)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Print version and exit")

	flag.StringVar(&flags.RenderPath, "render", "", "Render this image to a WAV file and exit (no daemon)")
	flag.StringVar(&flags.OutPath, "out", "", "Output WAV path for -render (default: <image>.wav)")
	flag.StringVar(&flags.Engine, "engine", "", "Synthesis engine: legacy or continuous")
	flag.StringVar(&flags.Sampling, "sampling", "", "Sampling method: brightness, edges, scattered or regions")
	flag.Float64Var(&flags.Duration, "duration", 0, "Session duration in seconds")
	flag.Float64Var(&flags.Volume, "volume", 0, "Master volume 0.0 - 1.0")
	flag.Int64Var(&flags.Seed, "seed", 0, "Noise seed for reproducible renders (0 = time-derived)")
	flag.Parse()

	if flags.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		flags.ConfigDir = homeDir + "/.config/synthd"
	}

	if flags.SocketPath == "" {
		flags.SocketPath = fmt.Sprintf("/tmp/synthd-%d.sock", os.Getuid())
	}

	return flags
}

// renderOnce is the one-shot offline path: analyze, schedule, encode,
// print a summary. No daemon, no audio device.
func renderOnce(flags *Flags) error {
	cfg := config.DefaultConfig()

	sampling := flags.Sampling
	if sampling == "" {
		sampling = cfg.Render.DefaultSampling
	}
	method, err := vision.ParseSamplingMethod(sampling)
	if err != nil {
		return err
	}

	engineName := flags.Engine
	if engineName == "" {
		engineName = cfg.Render.DefaultEngine
	}
	engine, err := synth.ParseEngine(engineName)
	if err != nil {
		return err
	}

	buf, err := imaging.Load(flags.RenderPath, cfg.Render.MaxImageDimension)
	if err != nil {
		return err
	}

	analyzer := vision.NewAnalyzer()
	if flags.Verbose {
		analyzer.Debug = log.Default()
	}
	rec, err := analyzer.Analyze(buf, method)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %dx%d\n", flags.RenderPath, rec.Width, rec.Height)
	fmt.Printf("  brightness=%.2f warmth=%.2f saturation=%.2f texture=%.2f\n",
		rec.Brightness, rec.Warmth, rec.Saturation, rec.Texture)
	fmt.Printf("  angularity=%.2f rhythm=%.2f complexity=%.2f\n",
		rec.Angularity.Angularity, rec.Rhythm, rec.Complexity)

	duration := flags.Duration
	if duration <= 0 {
		duration = cfg.Render.DefaultDuration
	}
	volume := flags.Volume
	if volume <= 0 {
		volume = cfg.Audio.DefaultVolume
	}

	sess, err := synth.Schedule(rec, synth.Options{
		Engine:       engine,
		Duration:     duration,
		MasterVolume: volume,
		Seed:         flags.Seed,
		Source:       flags.RenderPath,
	})
	if err != nil {
		return err
	}
	fmt.Printf("  %s\n", synth.DescribeSession(sess))

	out := flags.OutPath
	if out == "" {
		out = flags.RenderPath + ".wav"
	}
	if err := audio.RenderWAVFile(sess, cfg.Audio.SampleRate, cfg.Audio.Channels, out); err != nil {
		return err
	}

	info, err := os.Stat(out)
	if err != nil {
		return err
	}
	fmt.Printf("  wrote %s (%d bytes)\n", out, info.Size())
	return nil
}

func run(ctx context.Context, flags *Flags) error {
	if err := os.MkdirAll(flags.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	// Initialize media session (platform-specific)
	var mediaSession media.Session
	if cfg.Behavior.MediaKeys {
		var err error
		mediaSession, err = media.NewSession()
		if err != nil {
			log.Printf("[MEDIA] Warning: failed to initialize media session: %v", err)
			log.Printf("[MEDIA] Continuing without OS media integration")
			mediaSession = media.NewNoOpSession()
		} else {
			log.Printf("[MEDIA] Media session initialized successfully")
		}
	} else {
		mediaSession = media.NewNoOpSession()
	}
	defer mediaSession.Close()

	device := audio.NewDevice(cfg.Audio.SampleRate, cfg.Audio.Channels)
	performer := audio.NewPerformer(device, mediaSession)
	defer performer.Close()

	store, err := vision.NewStore(flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis store: %w", err)
	}
	defer func() {
		if err := store.Flush(); err != nil {
			log.Printf("[VISION] Warning: failed to flush analysis store: %v", err)
		}
	}()

	analyzer := vision.NewAnalyzer()
	if flags.Verbose {
		analyzer.Debug = log.Default()
	}

	// The worker's progress push reaches clients through the server;
	// the server does not exist yet, so bind it late.
	var server *ipc.Server
	worker := vision.NewWorker(store, func(path string) (*vision.PixelBuffer, error) {
		return imaging.Load(path, configMgr.Get().Render.MaxImageDimension)
	}, vision.WorkerConfig{
		IsPerformingFunc: performer.Active,
		OnProgress: func(status vision.WorkerStatus) {
			if server != nil {
				server.PushAnalysisProgress(status)
			}
		},
	})
	defer worker.Cancel()

	queueMgr := queue.NewManager()

	server = ipc.NewServer(flags.SocketPath, Version, configMgr, performer, store, worker, analyzer, queueMgr)

	log.Printf("Starting IPC server on %s", flags.SocketPath)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("IPC server error: %w", err)
	}

	return nil
}
