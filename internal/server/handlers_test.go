package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
	"github.com/ironsheep/idphoto-mcp/internal/session"
)

// createTestImageFile writes a page-sized PNG and returns its path.
func createTestImageFile(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}

	path := filepath.Join(t.TempDir(), "document.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %+v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v", content[0]["type"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

// assertToolError checks for a -32000 response carrying the given code.
func assertToolError(t *testing.T, resp *MCPResponse, code string) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected %s error, got result", code)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("JSON-RPC code: got %d, want -32000", resp.Error.Code)
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("error data should be a map, got %T: %v", resp.Error.Data, resp.Error.Data)
	}
	if data["error_code"] != code {
		t.Errorf("error_code: got %v, want %s", data["error_code"], code)
	}
}

// One 60x80 rectangle per region. On a 400x300 page the four regions start
// at x = 240, 0, 200 and 0, so three distinct candidates survive.
var photoRect = geometry.Rect{X: 10, Y: 10, Width: 60, Height: 80}

func loadDocument(t *testing.T, s *Server) SessionResult {
	t.Helper()
	path := createTestImageFile(t, 400, 300)
	var res SessionResult
	decodeResult(t, callTool(t, s, "document_load", map[string]interface{}{"path": path}), &res)
	return res
}

func TestDocumentLoad(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	res := loadDocument(t, s)

	if res.SessionID == "" {
		t.Fatal("session ID is empty")
	}
	if res.Mode != session.ModeAwaitingSelection {
		t.Errorf("mode: got %s", res.Mode)
	}
	if res.Document == nil || res.Document.Width != 400 || res.Document.Height != 300 {
		t.Errorf("document: got %+v", res.Document)
	}
	if res.Orientation == nil || res.Orientation.Outcome != "already_correct" {
		t.Errorf("orientation: got %+v", res.Orientation)
	}

	wantX := []int{250, 10, 210}
	if len(res.Candidates) != len(wantX) {
		t.Fatalf("candidates: got %d, want %d", len(res.Candidates), len(wantX))
	}
	for i, c := range res.Candidates {
		if c.Index != i || c.X != wantX[i] || c.Y != 10 || c.Width != 60 || c.Height != 80 {
			t.Errorf("candidate %d: got %+v", i, c)
		}
	}
	if res.NoCandidates {
		t.Error("no_candidates should be false")
	}
	if s.sessions.len() != 1 {
		t.Errorf("sessions: got %d, want 1", s.sessions.len())
	}
}

func TestDocumentLoad_NoCandidates(t *testing.T) {
	s := newTestServer(t, fixedDetector())
	res := loadDocument(t, s)

	if !res.NoCandidates || len(res.Candidates) != 0 {
		t.Errorf("expected no candidates, got %+v", res.Candidates)
	}
	if res.Mode != session.ModeAwaitingSelection {
		t.Errorf("mode: got %s", res.Mode)
	}
}

func TestDocumentLoad_Errors(t *testing.T) {
	s := newTestServer(t, fixedDetector())

	textPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(textPath, []byte("not a document"), 0o644); err != nil {
		t.Fatal(err)
	}
	assertToolError(t, callTool(t, s, "document_load", map[string]interface{}{"path": textPath}), "INVALID_INPUT")

	resp := callTool(t, s, "document_load", map[string]interface{}{"path": "/nonexistent/document.pdf"})
	if resp.Error == nil {
		t.Error("expected error for a missing file")
	}
	if s.sessions.len() != 0 {
		t.Errorf("failed loads must not create sessions, got %d", s.sessions.len())
	}
}

func TestExtractionFlow(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	id := loadDocument(t, s).SessionID

	// Point inside the best candidate at (250,10).
	var res SessionResult
	decodeResult(t, callTool(t, s, "photo_select_point", map[string]interface{}{
		"session_id": id, "x": 260, "y": 20,
	}), &res)
	if res.Mode != session.ModeCropped || res.Photo == nil {
		t.Fatalf("after select: mode %s photo %+v", res.Mode, res.Photo)
	}
	// Padded by 30/40: origin (220, 0) and 120x160.
	if res.Photo.Crop.Rect != (geometry.Rect{X: 220, Y: 0, Width: 120, Height: 160}) {
		t.Errorf("crop: got %+v", res.Photo.Crop.Rect)
	}

	decodeResult(t, callTool(t, s, "photo_rotate", map[string]interface{}{
		"session_id": id, "degrees": 90,
	}), &res)
	if res.Photo.Rotation != 90 || res.Photo.Width != 160 || res.Photo.Height != 120 {
		t.Errorf("after rotate: %+v", res.Photo)
	}

	var exp ExportResult
	decodeResult(t, callTool(t, s, "photo_export", map[string]interface{}{
		"session_id": id, "include_data": true,
	}), &exp)
	if filepath.Dir(exp.Path) != s.cfg.OutputDir {
		t.Errorf("export dir: got %s, want %s", filepath.Dir(exp.Path), s.cfg.OutputDir)
	}
	if base := filepath.Base(exp.Path); !strings.HasPrefix(base, "extracted_photo_") || !strings.HasSuffix(base, ".png") {
		t.Errorf("export name: got %s", base)
	}

	f, err := os.Open(exp.Path)
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("exported file is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 120 {
		t.Errorf("exported size: got %v", img.Bounds())
	}
	if _, err := base64.StdEncoding.DecodeString(exp.ImageBase64); err != nil || exp.ImageBase64 == "" {
		t.Errorf("image_base64 not valid: %v", err)
	}

	// Export may be repeated; further selection may not.
	explicit := filepath.Join(t.TempDir(), "photo.png")
	var again ExportResult
	decodeResult(t, callTool(t, s, "photo_export", map[string]interface{}{
		"session_id": id, "path": explicit,
	}), &again)
	if again.Path != explicit || again.ImageBase64 != "" {
		t.Errorf("second export: %+v", again)
	}
	assertToolError(t, callTool(t, s, "photo_select_index", map[string]interface{}{
		"session_id": id, "index": 0,
	}), "INVALID_TRANSITION")
}

func TestPreviewAndScaledSelection(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	id := loadDocument(t, s).SessionID

	// Preview coordinates are rejected before a preview exists.
	assertToolError(t, callTool(t, s, "photo_select_point", map[string]interface{}{
		"session_id": id, "x": 130, "y": 10, "preview": true,
	}), "INVALID_INPUT")

	var prev PreviewResult
	decodeResult(t, callTool(t, s, "document_preview", map[string]interface{}{
		"session_id": id, "max_width": 200,
	}), &prev)
	if prev.Width != 200 || prev.Height != 150 || prev.Scale != 0.5 || prev.DisplayScale != 2 {
		t.Errorf("preview: %+v", prev)
	}
	if prev.MimeType != "image/png" {
		t.Errorf("mime: got %s", prev.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(prev.ImageBase64)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("decoded preview width: got %d", img.Bounds().Dx())
	}

	// (130,10) on the preview is (260,20) on the page.
	var res SessionResult
	decodeResult(t, callTool(t, s, "photo_select_point", map[string]interface{}{
		"session_id": id, "x": 130, "y": 10, "preview": true,
	}), &res)
	if res.Photo == nil || res.Photo.Crop.Source.X != 250 {
		t.Errorf("selected: %+v", res.Photo)
	}
}

func TestManualSelection(t *testing.T) {
	s := newTestServer(t, fixedDetector())
	id := loadDocument(t, s).SessionID

	assertToolError(t, callTool(t, s, "photo_select_manual", map[string]interface{}{
		"session_id": id, "x1": 100, "y1": 100, "x2": 115, "y2": 115,
	}), "SELECTION_TOO_SMALL")

	decodeResult(t, callTool(t, s, "document_preview", map[string]interface{}{
		"session_id": id, "max_width": 200,
	}), &PreviewResult{})

	// Dragged backwards on the half-size preview.
	var res SessionResult
	decodeResult(t, callTool(t, s, "photo_select_manual", map[string]interface{}{
		"session_id": id, "x1": 40, "y1": 50, "x2": 10, "y2": 10, "preview": true,
	}), &res)
	if res.Photo == nil {
		t.Fatal("no photo after manual selection")
	}
	if res.Photo.Crop.Rect != (geometry.Rect{X: 20, Y: 20, Width: 60, Height: 80}) {
		t.Errorf("crop: got %+v", res.Photo.Crop.Rect)
	}
	if res.Photo.Crop.Padding != 0 {
		t.Errorf("manual crop padded by %g", res.Photo.Crop.Padding)
	}

	// The manual selection is outlined on later previews.
	decodeResult(t, callTool(t, s, "document_preview", map[string]interface{}{"session_id": id}), &PreviewResult{})
}

func TestSelectionErrors(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	id := loadDocument(t, s).SessionID

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		code string
	}{
		{"miss", "photo_select_point", map[string]interface{}{"session_id": id, "x": 5, "y": 290}, "NO_HIT"},
		{"index out of range", "photo_select_index", map[string]interface{}{"session_id": id, "index": 3}, "INVALID_INPUT"},
		{"rotate before select", "photo_rotate", map[string]interface{}{"session_id": id, "degrees": 90}, "INVALID_TRANSITION"},
		{"export before select", "photo_export", map[string]interface{}{"session_id": id}, "INVALID_TRANSITION"},
		{"unknown session", "document_candidates", map[string]interface{}{"session_id": "nope"}, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertToolError(t, callTool(t, s, tt.tool, tt.args), tt.code)
		})
	}

	// The session is still waiting for a selection.
	var res SessionResult
	decodeResult(t, callTool(t, s, "document_candidates", map[string]interface{}{"session_id": id}), &res)
	if res.Mode != session.ModeAwaitingSelection {
		t.Errorf("mode: got %s", res.Mode)
	}
}

func TestPhotoRotate_InvalidDegrees(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	id := loadDocument(t, s).SessionID
	decodeResult(t, callTool(t, s, "photo_select_index", map[string]interface{}{"session_id": id, "index": 1}), &SessionResult{})

	assertToolError(t, callTool(t, s, "photo_rotate", map[string]interface{}{
		"session_id": id, "degrees": 45,
	}), "INVALID_INPUT")
}

func TestDocumentRotateRetry(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	id := loadDocument(t, s).SessionID

	var res SessionResult
	decodeResult(t, callTool(t, s, "document_rotate_retry", map[string]interface{}{"session_id": id}), &res)
	if res.Retries != 1 {
		t.Errorf("retries: got %d", res.Retries)
	}
	if res.Mode != session.ModeAwaitingSelection {
		t.Errorf("mode: got %s", res.Mode)
	}
	// The page is now 300x400: regions start at x = 180, 0, 150 and 0.
	wantX := []int{190, 10, 160}
	if len(res.Candidates) != len(wantX) {
		t.Fatalf("candidates: got %d", len(res.Candidates))
	}
	for i, c := range res.Candidates {
		if c.X != wantX[i] {
			t.Errorf("candidate %d x: got %d, want %d", i, c.X, wantX[i])
		}
	}
}

func TestSessionReset(t *testing.T) {
	s := newTestServer(t, fixedDetector(photoRect))
	first := loadDocument(t, s).SessionID
	second := loadDocument(t, s).SessionID

	if first == second {
		t.Fatal("sessions should have distinct IDs")
	}

	var res map[string]interface{}
	decodeResult(t, callTool(t, s, "session_reset", map[string]interface{}{"session_id": first}), &res)
	if res["mode"] != "idle" {
		t.Errorf("mode: got %v", res["mode"])
	}
	if s.sessions.len() != 1 {
		t.Errorf("sessions: got %d, want 1", s.sessions.len())
	}
	assertToolError(t, callTool(t, s, "document_candidates", map[string]interface{}{"session_id": first}), "INVALID_INPUT")

	// The other session is untouched.
	var other SessionResult
	decodeResult(t, callTool(t, s, "document_candidates", map[string]interface{}{"session_id": second}), &other)
	if len(other.Candidates) != 3 {
		t.Errorf("second session candidates: got %d", len(other.Candidates))
	}
}

func TestOCRInfo(t *testing.T) {
	s := newTestServer(t, fixedDetector())
	var info map[string]interface{}
	decodeResult(t, callTool(t, s, "ocr_info", map[string]interface{}{}), &info)
	if info["language"] != "eng" {
		t.Errorf("language: got %v", info["language"])
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t, fixedDetector())
	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, fixedDetector())
	resp := s.handleToolsCall(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json}`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}
