package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ironsheep/idphoto-mcp/internal/candidates"
	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/ocr"
	"github.com/ironsheep/idphoto-mcp/internal/orientation"
	"github.com/ironsheep/idphoto-mcp/internal/overlay"
	"github.com/ironsheep/idphoto-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_load", "photo_export").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Pipeline errors carry their structured form (error_code, message and
// details) as the error data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("Tool failed", "tool", params.Name, "error", err)
		var pe *pipelineerrors.ExtractionError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, -32000, "Tool execution failed", pe.ToMap())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Looks up the session named by session_id
//  3. Drives the session's state machine
//  4. Returns a summary of the new state or an error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Document
	case "document_load":
		return s.handleDocumentLoad(ctx, args)
	case "document_candidates":
		return s.handleDocumentCandidates(args)
	case "document_preview":
		return s.handleDocumentPreview(args)
	case "document_rotate_retry":
		return s.handleDocumentRotateRetry(ctx, args)

	// Selection
	case "photo_select_point":
		return s.handlePhotoSelectPoint(args)
	case "photo_select_index":
		return s.handlePhotoSelectIndex(args)
	case "photo_select_manual":
		return s.handlePhotoSelectManual(args)

	// Photo
	case "photo_rotate":
		return s.handlePhotoRotate(args)
	case "photo_export":
		return s.handlePhotoExport(args)
	case "session_reset":
		return s.handleSessionReset(args)

	// Diagnostics
	case "ocr_info":
		return ocr.GetOCRInfo(s.cfg.OCRLanguage, s.cfg.TessdataPrefix), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Results ===

// CandidateInfo is a ranked candidate as reported to clients.
type CandidateInfo struct {
	Index int `json:"index"`
	candidates.Candidate
}

// PhotoInfo describes the extracted photo.
type PhotoInfo struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Rotation int              `json:"rotation"`
	Crop     imaging.CropSpec `json:"crop"`
}

// SessionResult summarizes a session after a tool call.
type SessionResult struct {
	SessionID    string                `json:"session_id"`
	Mode         session.Mode          `json:"mode"`
	Document     *imaging.DocumentInfo `json:"document,omitempty"`
	Orientation  *orientation.Result   `json:"orientation,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
	Candidates   []CandidateInfo       `json:"candidates"`
	NoCandidates bool                  `json:"no_candidates"`
	Retries      int                   `json:"retries"`
	Photo        *PhotoInfo            `json:"photo,omitempty"`
}

func summarize(ds *documentSession) *SessionResult {
	st := ds.machine.State()
	res := &SessionResult{
		SessionID:   ds.id,
		Mode:        st.Mode,
		Document:    ds.info,
		Orientation: st.Orientation,
		Warnings:    st.Warnings,
		Candidates:  []CandidateInfo{},
		Retries:     st.Retries,
	}
	for i, c := range st.Candidates() {
		res.Candidates = append(res.Candidates, CandidateInfo{Index: i, Candidate: c})
	}
	if st.Detection != nil {
		res.NoCandidates = st.Detection.Empty()
	}
	if st.Photo != nil && st.Crop != nil {
		b := st.Photo.Bounds()
		res.Photo = &PhotoInfo{
			Width:    b.Dx(),
			Height:   b.Dy(),
			Rotation: st.Rotation,
			Crop:     *st.Crop,
		}
	}
	return res
}

// PreviewResult contains the rendered candidate preview.
type PreviewResult struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Scale        float64 `json:"scale"`
	DisplayScale float64 `json:"display_scale"`
	ImageBase64  string  `json:"image_base64"`
	MimeType     string  `json:"mime_type"`
}

// ExportResult reports a written photo.
type ExportResult struct {
	SessionID   string `json:"session_id"`
	Path        string `json:"path"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Rotation    int    `json:"rotation"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type"`
}

// === Document Handlers ===

type documentLoadArgs struct {
	Path string `json:"path"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleDocumentLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	img, info, err := s.loader.LoadFile(a.Path)
	if err != nil {
		return nil, err
	}

	machine := session.NewMachine(s.resolver, s.finder)
	if _, err := machine.Open(ctx, img); err != nil {
		return nil, err
	}

	ds := s.sessions.create(machine, info)
	s.logger.Info("Document loaded",
		"session", ds.id,
		"path", a.Path,
		"width", info.Width,
		"height", info.Height,
		"candidates", len(machine.State().Candidates()),
	)
	return summarize(ds), nil
}

func (s *Server) lookup(args json.RawMessage) (*documentSession, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.sessions.get(a.SessionID)
}

func (s *Server) handleDocumentCandidates(args json.RawMessage) (interface{}, error) {
	ds, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	return summarize(ds), nil
}

type documentPreviewArgs struct {
	SessionID string `json:"session_id"`
	MaxWidth  int    `json:"max_width"`
}

func (s *Server) handleDocumentPreview(args json.RawMessage) (interface{}, error) {
	var a documentPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MaxWidth <= 0 {
		a.MaxWidth = s.cfg.PreviewMaxWidth
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}

	st := ds.machine.State()
	if st.Document == nil {
		return nil, pipelineerrors.NewInvalidTransitionError("preview", st.Mode.String())
	}

	// Manual selections are drawn; padded candidate crops are already boxed.
	var selection *geometry.Rect
	if st.Crop != nil && st.Crop.Padding == 0 {
		r := st.Crop.Source
		selection = &r
	}

	p := overlay.Render(st.Document, st.Candidates(), selection, a.MaxWidth)
	ds.preview = p

	data, err := s.encodeBase64(p.Image)
	if err != nil {
		return nil, err
	}

	b := p.Image.Bounds()
	return &PreviewResult{
		Width:        b.Dx(),
		Height:       b.Dy(),
		Scale:        p.Scale,
		DisplayScale: p.DisplayScale(),
		ImageBase64:  data,
		MimeType:     imaging.MimePNG,
	}, nil
}

func (s *Server) handleDocumentRotateRetry(ctx context.Context, args json.RawMessage) (interface{}, error) {
	ds, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	if _, err := ds.machine.RotateAndRetry(ctx); err != nil {
		return nil, err
	}
	// The old preview no longer matches the page.
	ds.preview = nil
	return summarize(ds), nil
}

// === Selection Handlers ===

type photoSelectPointArgs struct {
	SessionID string  `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Preview   bool    `json:"preview"`
}

// displayScale returns the factor mapping preview coordinates to the page.
func (ds *documentSession) displayScale(preview bool) (float64, error) {
	if !preview {
		return 1, nil
	}
	if ds.preview == nil {
		return 0, pipelineerrors.NewInvalidInputError("no preview has been rendered for this session", nil)
	}
	return ds.preview.DisplayScale(), nil
}

func (s *Server) handlePhotoSelectPoint(args json.RawMessage) (interface{}, error) {
	var a photoSelectPointArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}
	scale, err := ds.displayScale(a.Preview)
	if err != nil {
		return nil, err
	}

	p := geometry.Point{X: a.X * scale, Y: a.Y * scale}
	if _, err := ds.machine.SelectAt(p); err != nil {
		return nil, err
	}
	return summarize(ds), nil
}

type photoSelectIndexArgs struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
}

func (s *Server) handlePhotoSelectIndex(args json.RawMessage) (interface{}, error) {
	var a photoSelectIndexArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := ds.machine.SelectIndex(a.Index); err != nil {
		return nil, err
	}
	return summarize(ds), nil
}

type photoSelectManualArgs struct {
	SessionID string  `json:"session_id"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Preview   bool    `json:"preview"`
}

func (s *Server) handlePhotoSelectManual(args json.RawMessage) (interface{}, error) {
	var a photoSelectManualArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}
	scale, err := ds.displayScale(a.Preview)
	if err != nil {
		return nil, err
	}

	r := imaging.ManualRect(
		geometry.Point{X: a.X1, Y: a.Y1},
		geometry.Point{X: a.X2, Y: a.Y2},
		scale,
	)
	if _, err := ds.machine.SelectManual(r); err != nil {
		return nil, err
	}
	return summarize(ds), nil
}

// === Photo Handlers ===

type photoRotateArgs struct {
	SessionID string `json:"session_id"`
	Degrees   int    `json:"degrees"`
}

func (s *Server) handlePhotoRotate(args json.RawMessage) (interface{}, error) {
	var a photoRotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := ds.machine.RotatePhoto(a.Degrees); err != nil {
		return nil, err
	}
	return summarize(ds), nil
}

type photoExportArgs struct {
	SessionID   string `json:"session_id"`
	Path        string `json:"path"`
	IncludeData bool   `json:"include_data"`
}

func (s *Server) handlePhotoExport(args json.RawMessage) (interface{}, error) {
	var a photoExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.sessions.get(a.SessionID)
	if err != nil {
		return nil, err
	}

	path := a.Path
	if path == "" {
		path = filepath.Join(s.cfg.OutputDir, imaging.ExportFileName(uuid.NewString()[:8]))
	}

	var buf bytes.Buffer
	if err := ds.machine.Export(s.encoder, &buf); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write photo: %w", err)
	}

	st := ds.machine.State()
	b := st.Photo.Bounds()
	res := &ExportResult{
		SessionID: ds.id,
		Path:      path,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Rotation:  st.Rotation,
		MimeType:  imaging.MimePNG,
	}
	if a.IncludeData {
		res.ImageBase64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	s.logger.Info("Photo exported", "session", ds.id, "path", path, "rotation", st.Rotation)
	return res, nil
}

func (s *Server) handleSessionReset(args json.RawMessage) (interface{}, error) {
	ds, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	ds.machine.Reset()
	s.sessions.remove(ds.id)
	return map[string]interface{}{
		"session_id": ds.id,
		"mode":       ds.machine.Mode(),
	}, nil
}

func (s *Server) encodeBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
