// Package ipc handles inter-process communication between the daemon and clients.
package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents the type of command
type CommandType string

const (
	CmdPing     CommandType = "ping"
	CmdAnalyze  CommandType = "analyze"
	CmdGenerate CommandType = "generate"
	CmdExport   CommandType = "export"
	CmdStop     CommandType = "stop"
	CmdPause    CommandType = "pause"
	CmdResume   CommandType = "resume"
	CmdStatus   CommandType = "status"

	CmdSetVolume CommandType = "setVolume"
	CmdGetConfig CommandType = "getConfig"
	CmdSetConfig CommandType = "setConfig"

	// Pending-render queue
	CmdQueueAdd   CommandType = "queueAdd"
	CmdQueueList  CommandType = "queueList"
	CmdQueueClear CommandType = "queueClear"
	CmdQueueNext  CommandType = "queueNext"

	// Batch pre-analysis
	CmdScanLibrary    CommandType = "scanLibrary"
	CmdAnalysisStatus CommandType = "analysisStatus"

	// Spectrum push for visualization clients
	CmdSubscribeBands   CommandType = "subscribeBands"
	CmdUnsubscribeBands CommandType = "unsubscribeBands"
)

// Push message types sent without a request.
const (
	PushState            = "state"
	PushBands            = "bands"
	PushAnalysisProgress = "analysisProgress"
	PushQueueChanged     = "queueChanged"
)

// PushMessage represents a server-initiated message (no request needed)
type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request represents a client request
type Request struct {
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AnalyzeRequest is the data for an analyze command
type AnalyzeRequest struct {
	Path     string `json:"path"`
	Sampling string `json:"sampling,omitempty"`
}

// GenerateRequest is the data for a generate or queueAdd command. Unset
// fields take the configured render defaults.
type GenerateRequest struct {
	Path     string  `json:"path"`
	Sampling string  `json:"sampling,omitempty"`
	Engine   string  `json:"engine,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds
	Volume   float64 `json:"volume,omitempty"`   // 0.0 - 1.0
	Seed     int64   `json:"seed,omitempty"`     // 0 = time-derived
	Enqueue  bool    `json:"enqueue,omitempty"`  // queue instead of failing when busy
}

// ExportRequest is the data for an export command
type ExportRequest struct {
	GenerateRequest
	Out string `json:"out"`
}

// SessionInfo describes a scheduled session back to the client
type SessionInfo struct {
	Source    string  `json:"source"`
	Character string  `json:"character"`
	Engine    string  `json:"engine"`
	Tempo     float64 `json:"tempo"`
	Duration  float64 `json:"duration"` // seconds
	Events    int     `json:"events"`
	Seed      int64   `json:"seed"`
	Queued    bool    `json:"queued,omitempty"`
}

// ExportResponse is the response to an export command
type ExportResponse struct {
	SessionInfo
	Out   string `json:"out"`
	Bytes int64  `json:"bytes"`
}

// StatusResponse is the response to a status command and the payload of
// state push messages
type StatusResponse struct {
	State     string  `json:"state"`
	Source    string  `json:"source,omitempty"`
	Character string  `json:"character,omitempty"`
	Engine    string  `json:"engine,omitempty"`
	Position  float64 `json:"position"` // seconds
	Duration  float64 `json:"duration"` // seconds
	Tempo     float64 `json:"tempo,omitempty"`
	Volume    float64 `json:"volume"`
	Events    int     `json:"events,omitempty"`
	QueueSize int     `json:"queueSize"`
}

// VolumeRequest is the data for a setVolume command
type VolumeRequest struct {
	Level float64 `json:"level"` // 0.0 - 1.0
}

// ConfigRequest is the data for a setConfig command. Nil fields are left
// unchanged.
type ConfigRequest struct {
	SampleRate           *int     `json:"sampleRate,omitempty"`
	Channels             *int     `json:"channels,omitempty"`
	BufferSizeMs         *int     `json:"bufferSizeMs,omitempty"`
	DefaultVolume        *float64 `json:"defaultVolume,omitempty"`
	DefaultDuration      *float64 `json:"defaultDuration,omitempty"`
	DefaultEngine        *string  `json:"defaultEngine,omitempty"`
	DefaultSampling      *string  `json:"defaultSampling,omitempty"`
	MaxImageDimension    *int     `json:"maxImageDimension,omitempty"`
	MediaKeys            *bool    `json:"mediaKeys,omitempty"`
	AnalysisCacheEnabled *bool    `json:"analysisCacheEnabled,omitempty"`
}

// ConfigResponse is the response to a getConfig command
type ConfigResponse struct {
	ConfigPath           string  `json:"configPath"`
	SampleRate           int     `json:"sampleRate"`
	Channels             int     `json:"channels"`
	BufferSizeMs         int     `json:"bufferSizeMs"`
	DefaultVolume        float64 `json:"defaultVolume"`
	DefaultDuration      float64 `json:"defaultDuration"`
	DefaultEngine        string  `json:"defaultEngine"`
	DefaultSampling      string  `json:"defaultSampling"`
	MaxImageDimension    int     `json:"maxImageDimension"`
	MediaKeys            bool    `json:"mediaKeys"`
	AnalysisCacheEnabled bool    `json:"analysisCacheEnabled"`
}

// ScanRequest is the data for a scanLibrary command
type ScanRequest struct {
	Roots    []string `json:"roots"`
	Sampling string   `json:"sampling,omitempty"`
}

// ScanResponse is the response to a scanLibrary command
type ScanResponse struct {
	Found int `json:"found"`
}

// BandsResponse contains real-time frequency data for visualization.
// Bands uses []int because Go's json package base64-encodes []uint8.
type BandsResponse struct {
	Bands []int `json:"bands"`
	// Position is the performance position in seconds when these
	// samples were analyzed, so the UI can sync with playback.
	Position float64 `json:"position"`
	// Timestamp is when the spectrum was captured (Unix ms)
	Timestamp int64 `json:"timestamp"`
}

// PingResponse is the response to a ping command
type PingResponse struct {
	Version string `json:"version"`
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewPushMessage creates a push message for streaming data
func NewPushMessage(msgType string, data interface{}) ([]byte, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	msg := PushMessage{
		Type: msgType,
		Data: rawData,
	}
	return json.Marshal(msg)
}
