package ipc

import (
	"encoding/json"
	"testing"
)

func TestEncodeRequest(t *testing.T) {
	req := &Request{
		Cmd: CmdGenerate,
	}

	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	// Verify it's valid JSON
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Result is not valid JSON: %v", err)
	}

	if decoded["cmd"] != "generate" {
		t.Errorf("Expected cmd 'generate', got '%v'", decoded["cmd"])
	}
}

func TestDecodeRequest(t *testing.T) {
	data := []byte(`{"cmd":"pause"}`)

	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}

	if req.Cmd != CmdPause {
		t.Errorf("Expected cmd 'pause', got '%s'", req.Cmd)
	}
}

func TestDecodeRequestWithData(t *testing.T) {
	data := []byte(`{"cmd":"generate","data":{"path":"/images/spiky.png","engine":"continuous","duration":6}}`)

	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}

	if req.Cmd != CmdGenerate {
		t.Errorf("Expected cmd 'generate', got '%s'", req.Cmd)
	}

	var genReq GenerateRequest
	if err := json.Unmarshal(req.Data, &genReq); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}

	if genReq.Path != "/images/spiky.png" {
		t.Errorf("Expected path '/images/spiky.png', got '%s'", genReq.Path)
	}
	if genReq.Engine != "continuous" {
		t.Errorf("Expected engine 'continuous', got '%s'", genReq.Engine)
	}
	if genReq.Duration != 6 {
		t.Errorf("Expected duration 6, got %f", genReq.Duration)
	}
}

func TestDecodeRequestInvalid(t *testing.T) {
	data := []byte(`not valid json`)

	_, err := DecodeRequest(data)
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestEncodeResponse(t *testing.T) {
	resp := &Response{
		Success: true,
	}

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Result is not valid JSON: %v", err)
	}

	if decoded["success"] != true {
		t.Errorf("Expected success true, got %v", decoded["success"])
	}
}

func TestDecodeResponse(t *testing.T) {
	data := []byte(`{"success":true,"data":{"state":"performing"}}`)

	resp, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if !resp.Success {
		t.Error("Expected success to be true")
	}

	if resp.Data == nil {
		t.Error("Expected data to be non-nil")
	}
}

func TestDecodeResponseError(t *testing.T) {
	data := []byte(`{"success":false,"error":"a performance is already active"}`)

	resp, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if resp.Success {
		t.Error("Expected success to be false")
	}

	if resp.Error != "a performance is already active" {
		t.Errorf("Expected busy error, got '%s'", resp.Error)
	}
}

func TestNewSuccessResponse(t *testing.T) {
	statusData := StatusResponse{
		State:    "performing",
		Position: 2.5,
		Duration: 8.0,
	}

	resp, err := NewSuccessResponse(statusData)
	if err != nil {
		t.Fatalf("NewSuccessResponse failed: %v", err)
	}

	if !resp.Success {
		t.Error("Expected success to be true")
	}

	if resp.Data == nil {
		t.Error("Expected data to be non-nil")
	}

	// Verify data can be decoded back
	var decoded StatusResponse
	if err := json.Unmarshal(resp.Data, &decoded); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}

	if decoded.State != "performing" {
		t.Errorf("Expected state 'performing', got '%s'", decoded.State)
	}
	if decoded.Position != 2.5 {
		t.Errorf("Expected position 2.5, got %f", decoded.Position)
	}
}

func TestNewSuccessResponseNilData(t *testing.T) {
	resp, err := NewSuccessResponse(nil)
	if err != nil {
		t.Fatalf("NewSuccessResponse failed: %v", err)
	}

	if !resp.Success {
		t.Error("Expected success to be true")
	}

	if resp.Data != nil {
		t.Error("Expected data to be nil")
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("something went wrong")

	if resp.Success {
		t.Error("Expected success to be false")
	}

	if resp.Error != "something went wrong" {
		t.Errorf("Expected error 'something went wrong', got '%s'", resp.Error)
	}
}

func TestCommandTypes(t *testing.T) {
	commands := []CommandType{
		CmdPing,
		CmdAnalyze,
		CmdGenerate,
		CmdExport,
		CmdStop,
		CmdPause,
		CmdResume,
		CmdStatus,
		CmdSetVolume,
		CmdGetConfig,
		CmdSetConfig,
		CmdQueueAdd,
		CmdQueueList,
		CmdQueueClear,
		CmdQueueNext,
		CmdScanLibrary,
		CmdAnalysisStatus,
		CmdSubscribeBands,
		CmdUnsubscribeBands,
	}

	for _, cmd := range commands {
		// Verify each command serializes correctly
		req := &Request{Cmd: cmd}
		data, err := EncodeRequest(req)
		if err != nil {
			t.Errorf("Failed to encode %s: %v", cmd, err)
		}

		decoded, err := DecodeRequest(data)
		if err != nil {
			t.Errorf("Failed to decode %s: %v", cmd, err)
		}

		if decoded.Cmd != cmd {
			t.Errorf("Expected %s, got %s", cmd, decoded.Cmd)
		}
	}
}

func TestGenerateRequestDefaultsOmitted(t *testing.T) {
	genReq := GenerateRequest{Path: "/images/round.png"}

	data, err := json.Marshal(genReq)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// Unset fields must be omitted so the daemon applies its defaults.
	for _, field := range []string{"sampling", "engine", "duration", "volume", "seed", "enqueue"} {
		if _, ok := decoded[field]; ok {
			t.Errorf("Expected field %q to be omitted when zero", field)
		}
	}
}

func TestExportRequest(t *testing.T) {
	expReq := ExportRequest{
		GenerateRequest: GenerateRequest{
			Path:     "/images/spiky.png",
			Sampling: "regions",
			Duration: 10,
			Seed:     7,
		},
		Out: "/tmp/spiky.wav",
	}

	data, err := json.Marshal(expReq)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded ExportRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Path != "/images/spiky.png" {
		t.Errorf("Expected path '/images/spiky.png', got '%s'", decoded.Path)
	}
	if decoded.Out != "/tmp/spiky.wav" {
		t.Errorf("Expected out '/tmp/spiky.wav', got '%s'", decoded.Out)
	}
	if decoded.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", decoded.Seed)
	}
}

func TestSessionInfo(t *testing.T) {
	info := SessionInfo{
		Source:    "/images/spiky.png",
		Character: "kiki",
		Engine:    "continuous",
		Tempo:     132,
		Duration:  8,
		Events:    96,
		Seed:      12345,
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded SessionInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Character != "kiki" {
		t.Errorf("Expected character 'kiki', got '%s'", decoded.Character)
	}
	if decoded.Events != 96 {
		t.Errorf("Expected 96 events, got %d", decoded.Events)
	}
	if decoded.Queued {
		t.Error("Expected Queued to be false")
	}
}

func TestConfigRequestPartial(t *testing.T) {
	data := []byte(`{"defaultDuration":12,"mediaKeys":false}`)

	var decoded ConfigRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.DefaultDuration == nil || *decoded.DefaultDuration != 12 {
		t.Error("Expected defaultDuration to be set to 12")
	}
	if decoded.MediaKeys == nil || *decoded.MediaKeys {
		t.Error("Expected mediaKeys to be set to false")
	}
	// Untouched fields stay nil so the handler leaves them alone.
	if decoded.SampleRate != nil {
		t.Error("Expected sampleRate to be nil")
	}
	if decoded.DefaultEngine != nil {
		t.Error("Expected defaultEngine to be nil")
	}
}

func TestPushMessage(t *testing.T) {
	msgBytes, err := NewPushMessage(PushBands, BandsResponse{
		Bands:     []int{0, 12, 200, 255},
		Position:  1.25,
		Timestamp: 1700000000000,
	})
	if err != nil {
		t.Fatalf("NewPushMessage failed: %v", err)
	}

	var msg PushMessage
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		t.Fatalf("Push message is not valid JSON: %v", err)
	}

	if msg.Type != PushBands {
		t.Errorf("Expected type %q, got %q", PushBands, msg.Type)
	}

	var bands BandsResponse
	if err := json.Unmarshal(msg.Data, &bands); err != nil {
		t.Fatalf("Failed to decode band data: %v", err)
	}
	if len(bands.Bands) != 4 {
		t.Errorf("Expected 4 bands, got %d", len(bands.Bands))
	}
	if bands.Bands[3] != 255 {
		t.Errorf("Expected band value 255, got %d", bands.Bands[3])
	}
	if bands.Position != 1.25 {
		t.Errorf("Expected position 1.25, got %f", bands.Position)
	}
}
