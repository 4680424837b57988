package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/shapesynth/synthd/internal/audio"
	"github.com/shapesynth/synthd/internal/config"
	"github.com/shapesynth/synthd/internal/imaging"
	"github.com/shapesynth/synthd/internal/queue"
	"github.com/shapesynth/synthd/internal/synth"
	"github.com/shapesynth/synthd/internal/vision"
)

// Server handles IPC communication with clients
type Server struct {
	socketPath string
	version    string
	configMgr  *config.Manager
	performer  *audio.Performer
	store      *vision.Store
	worker     *vision.Worker
	analyzer   *vision.Analyzer
	queueMgr   *queue.Manager
	listener   net.Listener

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	// Serializes starting a session from a request against the queue
	// advance that runs on performance completion.
	starting sync.Mutex

	// Spectrum streaming (callback-based, no polling)
	bandSubsMu sync.RWMutex
	bandSubs   map[net.Conn]bool
}

// NewServer creates a new IPC server and wires the performer and queue
// callbacks into the push channel.
func NewServer(
	socketPath string,
	version string,
	configMgr *config.Manager,
	performer *audio.Performer,
	store *vision.Store,
	worker *vision.Worker,
	analyzer *vision.Analyzer,
	queueMgr *queue.Manager,
) *Server {
	s := &Server{
		socketPath: socketPath,
		version:    version,
		configMgr:  configMgr,
		performer:  performer,
		store:      store,
		worker:     worker,
		analyzer:   analyzer,
		queueMgr:   queueMgr,
		clients:    make(map[net.Conn]struct{}),
		bandSubs:   make(map[net.Conn]bool),
	}

	// Real-time spectrum push straight from the analyzer callback.
	performer.SetBandCallback(func(bands []uint8) {
		s.pushBands(bands)
	})

	// When a performance ends naturally, advance the render queue.
	performer.SetOnComplete(func(finished *synth.Session) {
		log.Printf("[QUEUE] Session ended: %s, advancing queue", finished.Source)
		s.pushState()
		s.startNextQueued()
	})

	queueMgr.SetOnChange(func() {
		s.pushQueueChanged()
	})

	return s
}

// PushAnalysisProgress forwards batch worker progress to connected
// clients. Wired to the worker's OnProgress callback in main.
func (s *Server) PushAnalysisProgress(status vision.WorkerStatus) {
	s.broadcast(PushAnalysisProgress, status)
}

// Start starts the IPC server
func (s *Server) Start(ctx context.Context) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	log.Printf("[IPC] Creating socket at %s", s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("[IPC] Server listening, waiting for connections...")

	go s.acceptLoop(ctx)

	<-ctx.Done()

	log.Printf("[IPC] Shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[IPC] Closed %d client connections", clientCount)

	listener.Close()
	os.RemoveAll(s.socketPath)

	log.Printf("[IPC] Server stopped")

	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[IPC] Accept error: %v", err)
				continue
			}
		}

		log.Printf("[IPC] New client connection")

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		clientCount := len(s.clients)
		s.mu.Unlock()

		log.Printf("[IPC] Active clients: %d", clientCount)

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		s.bandSubsMu.Lock()
		delete(s.bandSubs, conn)
		s.bandSubsMu.Unlock()
		log.Printf("[IPC] Client disconnected, active clients: %d", clientCount)
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Read line (newline-delimited JSON)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("[IPC] Read error: %v", err)
			}
			return
		}

		req, err := DecodeRequest(line)
		if err != nil {
			log.Printf("[IPC] Invalid request format: %v", err)
			s.sendError(conn, "invalid request format")
			continue
		}

		// Skip verbose logging for frequent polling commands
		isPollingCmd := req.Cmd == CmdStatus || req.Cmd == CmdAnalysisStatus || req.Cmd == CmdPing

		if !isPollingCmd {
			log.Printf("[IPC] Command: %s", req.Cmd)
		}

		resp := s.handleRequest(ctx, conn, req)

		if !isPollingCmd {
			if resp.Success {
				log.Printf("[IPC] Response: success")
			} else {
				log.Printf("[IPC] Response: error=%q", resp.Error)
			}
		}

		if err := s.sendResponse(conn, resp); err != nil {
			log.Printf("[IPC] Send error: %v", err)
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, conn net.Conn, req *Request) *Response {
	switch req.Cmd {
	case CmdPing:
		return s.handlePing()
	case CmdAnalyze:
		return s.handleAnalyze(req)
	case CmdGenerate:
		return s.handleGenerate(req)
	case CmdExport:
		return s.handleExport(req)
	case CmdStop:
		return s.handleStop()
	case CmdPause:
		return s.handlePause()
	case CmdResume:
		return s.handleResume()
	case CmdStatus:
		return s.handleStatus()
	case CmdSetVolume:
		return s.handleSetVolume(req)
	case CmdGetConfig:
		return s.handleGetConfig()
	case CmdSetConfig:
		return s.handleSetConfig(req)
	case CmdQueueAdd:
		return s.handleQueueAdd(req)
	case CmdQueueList:
		return s.handleQueueList()
	case CmdQueueClear:
		return s.handleQueueClear()
	case CmdQueueNext:
		return s.handleQueueNext()
	case CmdScanLibrary:
		return s.handleScanLibrary(ctx, req)
	case CmdAnalysisStatus:
		return s.handleAnalysisStatus()
	case CmdSubscribeBands:
		return s.handleSubscribeBands(conn)
	case CmdUnsubscribeBands:
		return s.handleUnsubscribeBands(conn)
	default:
		return NewErrorResponse("unknown command")
	}
}

func (s *Server) handlePing() *Response {
	resp, _ := NewSuccessResponse(PingResponse{Version: s.version})
	return resp
}

// analysisFor loads the analysis record for an image, consulting the
// store first when caching is enabled. An empty sampling name falls back
// to the configured default.
func (s *Server) analysisFor(path, sampling string) (*vision.Analysis, error) {
	cfg := s.configMgr.Get()
	if sampling == "" {
		sampling = cfg.Render.DefaultSampling
	}
	method, err := vision.ParseSamplingMethod(sampling)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	if cfg.Behavior.AnalysisCacheEnabled {
		if cached := s.store.Get(path, info.ModTime().Unix(), info.Size(), method); cached != nil {
			log.Printf("[VISION] Using cached analysis for %s (%s)", path, method)
			return cached, nil
		}
	}

	buf, err := imaging.Load(path, cfg.Render.MaxImageDimension)
	if err != nil {
		return nil, err
	}
	rec, err := s.analyzer.Analyze(buf, method)
	if err != nil {
		return nil, err
	}

	if cfg.Behavior.AnalysisCacheEnabled {
		s.store.Put(path, info.ModTime().Unix(), info.Size(), rec)
	}
	return rec, nil
}

// scheduleRequest turns a render request into a session, applying
// configured defaults for unset fields.
func (s *Server) scheduleRequest(req queue.RenderRequest) (*synth.Session, error) {
	cfg := s.configMgr.Get()

	engineName := req.Engine
	if engineName == "" {
		engineName = cfg.Render.DefaultEngine
	}
	engine, err := synth.ParseEngine(engineName)
	if err != nil {
		return nil, err
	}

	rec, err := s.analysisFor(req.Path, req.Sampling)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration <= 0 {
		duration = cfg.Render.DefaultDuration
	}
	volume := req.Volume
	if volume <= 0 {
		volume = cfg.Audio.DefaultVolume
	}

	return synth.Schedule(rec, synth.Options{
		Engine:       engine,
		Duration:     duration,
		MasterVolume: volume,
		Seed:         req.Seed,
		Source:       req.Path,
	})
}

func sessionInfo(sess *synth.Session) SessionInfo {
	return SessionInfo{
		Source:    sess.Source,
		Character: sess.Character.String(),
		Engine:    sess.Engine.String(),
		Tempo:     sess.Tempo,
		Duration:  sess.Duration,
		Events:    len(sess.Events),
		Seed:      sess.Seed,
	}
}

func (s *Server) handleAnalyze(req *Request) *Response {
	var aReq AnalyzeRequest
	if err := json.Unmarshal(req.Data, &aReq); err != nil {
		return NewErrorResponse("invalid analyze request")
	}
	if aReq.Path == "" {
		return NewErrorResponse("path is required")
	}

	rec, err := s.analysisFor(aReq.Path, aReq.Sampling)
	if err != nil {
		log.Printf("[VISION] Analyze failed: %v", err)
		return NewErrorResponse(err.Error())
	}

	resp, err := NewSuccessResponse(rec)
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleGenerate(req *Request) *Response {
	var genReq GenerateRequest
	if err := json.Unmarshal(req.Data, &genReq); err != nil {
		return NewErrorResponse("invalid generate request")
	}
	if genReq.Path == "" {
		return NewErrorResponse("path is required")
	}

	render := queue.RenderRequest{
		Path:     genReq.Path,
		Sampling: genReq.Sampling,
		Engine:   genReq.Engine,
		Duration: genReq.Duration,
		Volume:   genReq.Volume,
		Seed:     genReq.Seed,
	}

	s.starting.Lock()
	defer s.starting.Unlock()

	if s.performer.Active() {
		if !genReq.Enqueue {
			return NewErrorResponse(audio.ErrPerformanceActive.Error())
		}
		s.queueMgr.Add(render)
		log.Printf("[QUEUE] Enqueued %s (%d pending)", render.Path, s.queueMgr.Len())
		resp, _ := NewSuccessResponse(SessionInfo{Source: render.Path, Queued: true})
		return resp
	}

	sess, err := s.scheduleRequest(render)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.performer.Perform(sess); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.pushState()

	resp, err := NewSuccessResponse(sessionInfo(sess))
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleExport(req *Request) *Response {
	var expReq ExportRequest
	if err := json.Unmarshal(req.Data, &expReq); err != nil {
		return NewErrorResponse("invalid export request")
	}
	if expReq.Path == "" {
		return NewErrorResponse("path is required")
	}
	if expReq.Out == "" {
		return NewErrorResponse("out is required")
	}

	sess, err := s.scheduleRequest(queue.RenderRequest{
		Path:     expReq.Path,
		Sampling: expReq.Sampling,
		Engine:   expReq.Engine,
		Duration: expReq.Duration,
		Volume:   expReq.Volume,
		Seed:     expReq.Seed,
	})
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	cfg := s.configMgr.Get()
	if err := audio.RenderWAVFile(sess, cfg.Audio.SampleRate, cfg.Audio.Channels, expReq.Out); err != nil {
		log.Printf("[AUDIO] Export failed: %v", err)
		return NewErrorResponse(err.Error())
	}

	var bytes int64
	if info, err := os.Stat(expReq.Out); err == nil {
		bytes = info.Size()
	}
	log.Printf("[AUDIO] Exported %s -> %s (%d bytes)", expReq.Path, expReq.Out, bytes)

	resp, err := NewSuccessResponse(ExportResponse{
		SessionInfo: sessionInfo(sess),
		Out:         expReq.Out,
		Bytes:       bytes,
	})
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleStop() *Response {
	if err := s.performer.Stop(); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.pushState()
	return s.handleStatus()
}

func (s *Server) handlePause() *Response {
	if err := s.performer.Pause(); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.pushState()
	return s.handleStatus()
}

func (s *Server) handleResume() *Response {
	if err := s.performer.Resume(); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.pushState()
	return s.handleStatus()
}

func (s *Server) statusResponse() StatusResponse {
	status := s.performer.Status()
	return StatusResponse{
		State:     string(status.State),
		Source:    status.Source,
		Character: status.Character,
		Engine:    status.Engine,
		Position:  status.Position,
		Duration:  status.Duration,
		Tempo:     status.Tempo,
		Volume:    status.Volume,
		Events:    status.Events,
		QueueSize: s.queueMgr.Len(),
	}
}

func (s *Server) handleStatus() *Response {
	resp, err := NewSuccessResponse(s.statusResponse())
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleSetVolume(req *Request) *Response {
	var volReq VolumeRequest
	if err := json.Unmarshal(req.Data, &volReq); err != nil {
		return NewErrorResponse("invalid volume request")
	}

	log.Printf("[AUDIO] Set volume to: %.2f", volReq.Level)
	if err := s.performer.SetVolume(volReq.Level); err != nil {
		return NewErrorResponse(err.Error())
	}

	return s.handleStatus()
}

func (s *Server) handleGetConfig() *Response {
	cfg := s.configMgr.Get()

	resp, err := NewSuccessResponse(ConfigResponse{
		ConfigPath:           s.configMgr.GetPath(),
		SampleRate:           cfg.Audio.SampleRate,
		Channels:             cfg.Audio.Channels,
		BufferSizeMs:         cfg.Audio.BufferSizeMs,
		DefaultVolume:        cfg.Audio.DefaultVolume,
		DefaultDuration:      cfg.Render.DefaultDuration,
		DefaultEngine:        cfg.Render.DefaultEngine,
		DefaultSampling:      cfg.Render.DefaultSampling,
		MaxImageDimension:    cfg.Render.MaxImageDimension,
		MediaKeys:            cfg.Behavior.MediaKeys,
		AnalysisCacheEnabled: cfg.Behavior.AnalysisCacheEnabled,
	})
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleSetConfig(req *Request) *Response {
	var cfgReq ConfigRequest
	if err := json.Unmarshal(req.Data, &cfgReq); err != nil {
		return NewErrorResponse("invalid config request")
	}

	// Reject bad enum values before touching the stored config.
	if cfgReq.DefaultEngine != nil {
		if _, err := synth.ParseEngine(*cfgReq.DefaultEngine); err != nil {
			return NewErrorResponse(err.Error())
		}
	}
	if cfgReq.DefaultSampling != nil {
		if _, err := vision.ParseSamplingMethod(*cfgReq.DefaultSampling); err != nil {
			return NewErrorResponse(err.Error())
		}
	}

	cfg := s.configMgr.Get()

	if cfgReq.SampleRate != nil {
		cfg.Audio.SampleRate = *cfgReq.SampleRate
	}
	if cfgReq.Channels != nil {
		cfg.Audio.Channels = *cfgReq.Channels
	}
	if cfgReq.BufferSizeMs != nil {
		cfg.Audio.BufferSizeMs = *cfgReq.BufferSizeMs
	}
	if cfgReq.DefaultVolume != nil {
		cfg.Audio.DefaultVolume = *cfgReq.DefaultVolume
	}
	if cfgReq.DefaultDuration != nil {
		cfg.Render.DefaultDuration = *cfgReq.DefaultDuration
	}
	if cfgReq.DefaultEngine != nil {
		cfg.Render.DefaultEngine = *cfgReq.DefaultEngine
	}
	if cfgReq.DefaultSampling != nil {
		cfg.Render.DefaultSampling = *cfgReq.DefaultSampling
	}
	if cfgReq.MaxImageDimension != nil {
		cfg.Render.MaxImageDimension = *cfgReq.MaxImageDimension
	}
	if cfgReq.MediaKeys != nil {
		cfg.Behavior.MediaKeys = *cfgReq.MediaKeys
	}
	if cfgReq.AnalysisCacheEnabled != nil {
		cfg.Behavior.AnalysisCacheEnabled = *cfgReq.AnalysisCacheEnabled
	}

	if err := s.configMgr.Update(cfg); err != nil {
		log.Printf("[CONFIG] Failed to save config: %v", err)
		return NewErrorResponse(fmt.Sprintf("failed to save config: %v", err))
	}

	log.Printf("[CONFIG] Config updated and saved")
	return s.handleGetConfig()
}

func (s *Server) handleQueueAdd(req *Request) *Response {
	var genReq GenerateRequest
	if err := json.Unmarshal(req.Data, &genReq); err != nil {
		return NewErrorResponse("invalid queueAdd request")
	}
	if genReq.Path == "" {
		return NewErrorResponse("path is required")
	}

	s.queueMgr.Add(queue.RenderRequest{
		Path:     genReq.Path,
		Sampling: genReq.Sampling,
		Engine:   genReq.Engine,
		Duration: genReq.Duration,
		Volume:   genReq.Volume,
		Seed:     genReq.Seed,
	})
	log.Printf("[QUEUE] Added %s (%d pending)", genReq.Path, s.queueMgr.Len())

	return s.handleQueueList()
}

func (s *Server) handleQueueList() *Response {
	resp, err := NewSuccessResponse(s.queueMgr.List())
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleQueueClear() *Response {
	s.queueMgr.Clear()
	log.Printf("[QUEUE] Cleared")
	return s.handleQueueList()
}

// handleQueueNext skips to the next pending request, stopping the
// current performance if one is running.
func (s *Server) handleQueueNext() *Response {
	s.starting.Lock()
	defer s.starting.Unlock()

	if err := s.performer.Stop(); err != nil {
		return NewErrorResponse(err.Error())
	}

	render, err := s.queueMgr.Next()
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	sess, err := s.scheduleRequest(render)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.performer.Perform(sess); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.pushState()

	resp, err := NewSuccessResponse(sessionInfo(sess))
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

// startNextQueued is called from the performer's completion callback.
func (s *Server) startNextQueued() {
	s.starting.Lock()
	defer s.starting.Unlock()

	render, err := s.queueMgr.Next()
	if err != nil {
		return
	}

	log.Printf("[QUEUE] Starting next queued render: %s", render.Path)
	sess, err := s.scheduleRequest(render)
	if err != nil {
		log.Printf("[QUEUE] Failed to schedule %s: %v", render.Path, err)
		return
	}
	if err := s.performer.Perform(sess); err != nil {
		log.Printf("[QUEUE] Failed to start %s: %v", render.Path, err)
		return
	}
	s.pushState()
}

func (s *Server) handleScanLibrary(ctx context.Context, req *Request) *Response {
	var scanReq ScanRequest
	if err := json.Unmarshal(req.Data, &scanReq); err != nil {
		return NewErrorResponse("invalid scan request")
	}
	if len(scanReq.Roots) == 0 {
		return NewErrorResponse("roots are required")
	}

	cfg := s.configMgr.Get()
	sampling := scanReq.Sampling
	if sampling == "" {
		sampling = cfg.Render.DefaultSampling
	}
	method, err := vision.ParseSamplingMethod(sampling)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	files, err := imaging.Scan(ctx, scanReq.Roots)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if len(files) == 0 {
		return NewErrorResponse("no images found")
	}

	images := make([]vision.ImageInfo, len(files))
	for i, f := range files {
		images[i] = vision.ImageInfo{Path: f.Path, ModTime: f.ModTime, Size: f.Size}
	}

	if err := s.worker.Start(ctx, images, method); err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, err := NewSuccessResponse(ScanResponse{Found: len(files)})
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleAnalysisStatus() *Response {
	resp, err := NewSuccessResponse(s.worker.Status())
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) sendResponse(conn net.Conn, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

func (s *Server) sendError(conn net.Conn, msg string) {
	s.sendResponse(conn, NewErrorResponse(msg))
}

// Spectrum subscription handlers

func (s *Server) handleSubscribeBands(conn net.Conn) *Response {
	s.bandSubsMu.Lock()
	s.bandSubs[conn] = true
	count := len(s.bandSubs)
	s.bandSubsMu.Unlock()

	log.Printf("[AUDIO] Client subscribed to band data (total: %d)", count)

	resp, _ := NewSuccessResponse(map[string]bool{"subscribed": true})
	return resp
}

func (s *Server) handleUnsubscribeBands(conn net.Conn) *Response {
	s.bandSubsMu.Lock()
	delete(s.bandSubs, conn)
	count := len(s.bandSubs)
	s.bandSubsMu.Unlock()

	log.Printf("[AUDIO] Client unsubscribed from band data (remaining: %d)", count)

	resp, _ := NewSuccessResponse(map[string]bool{"subscribed": false})
	return resp
}

// pushBands is called directly from the band analyzer callback, so
// subscribers get each spectrum window with no polling latency.
func (s *Server) pushBands(bandsU8 []uint8) {
	s.bandSubsMu.RLock()
	if len(s.bandSubs) == 0 {
		s.bandSubsMu.RUnlock()
		return
	}
	// Copy subscriber list to avoid holding the lock during I/O.
	subs := make([]net.Conn, 0, len(s.bandSubs))
	for conn := range s.bandSubs {
		subs = append(subs, conn)
	}
	s.bandSubsMu.RUnlock()

	bands := make([]int, len(bandsU8))
	for i, b := range bandsU8 {
		bands[i] = int(b)
	}

	status := s.performer.Status()
	msgBytes, err := NewPushMessage(PushBands, BandsResponse{
		Bands:     bands,
		Position:  status.Position,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	msgBytes = append(msgBytes, '\n')

	for _, conn := range subs {
		if _, err := conn.Write(msgBytes); err != nil {
			s.bandSubsMu.Lock()
			delete(s.bandSubs, conn)
			s.bandSubsMu.Unlock()
		}
	}
}

func (s *Server) pushState() {
	s.broadcast(PushState, s.statusResponse())
}

func (s *Server) pushQueueChanged() {
	s.broadcast(PushQueueChanged, s.queueMgr.List())
}

// broadcast sends a push message to every connected client.
func (s *Server) broadcast(msgType string, data interface{}) {
	s.mu.Lock()
	if len(s.clients) == 0 {
		s.mu.Unlock()
		return
	}
	conns := make([]net.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	msgBytes, err := NewPushMessage(msgType, data)
	if err != nil {
		return
	}
	msgBytes = append(msgBytes, '\n')

	for _, conn := range conns {
		conn.Write(msgBytes)
	}
}
