package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by document_load",
	}
}

func previewProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Coordinates are on the last document_preview image and are scaled back to the page. Default false (page pixels)",
		"default":     false,
	}
}

func sessionOnlySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": sessionIDProperty(),
		},
		"required": []string{"session_id"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Document
		{
			Name:        "document_load",
			Description: "Load an ID document (PDF, JPEG, PNG, BMP), straighten it by trying all four orientations with OCR, and search it for photo candidates. Starts a new session and returns its ID with the ranked candidates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the document file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_candidates",
			Description: "Return the current state of a session: mode, orientation decision, warnings and ranked photo candidates.",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "document_preview",
			Description: "Render the page scaled to fit a maximum width with candidate boxes drawn and numbered (best in green, others in yellow, a manual selection in red). Returns a base64-encoded PNG and the scale used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum preview width in pixels. Defaults to the configured preview width (700)",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "document_rotate_retry",
			Description: "Rotate the whole page 90 degrees counter-clockwise and search for candidates again. Use when the page is still sideways after loading.",
			InputSchema: sessionOnlySchema(),
		},

		// Selection
		{
			Name:        "photo_select_point",
			Description: "Select the highest-ranked candidate containing a point and crop it with 50% padding.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x":          map[string]interface{}{"type": "number", "description": "X coordinate"},
					"y":          map[string]interface{}{"type": "number", "description": "Y coordinate"},
					"preview":    previewProperty(),
				},
				"required": []string{"session_id", "x", "y"},
			},
		},
		{
			Name:        "photo_select_index",
			Description: "Select a candidate by rank (0 is the best) and crop it with 50% padding.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Candidate rank, 0-based",
						"default":     0,
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "photo_select_manual",
			Description: "Crop a rectangle given by two corners, exactly and without padding. Both sides must be larger than 20 page pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"x1":         map[string]interface{}{"type": "number", "description": "First corner X"},
					"y1":         map[string]interface{}{"type": "number", "description": "First corner Y"},
					"x2":         map[string]interface{}{"type": "number", "description": "Opposite corner X"},
					"y2":         map[string]interface{}{"type": "number", "description": "Opposite corner Y"},
					"preview":    previewProperty(),
				},
				"required": []string{"session_id", "x1", "y1", "x2", "y2"},
			},
		},

		// Photo
		{
			Name:        "photo_rotate",
			Description: "Rotate the extracted photo. Positive degrees rotate clockwise.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"degrees": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{-90, 90, 180},
						"description": "Rotation in degrees",
					},
				},
				"required": []string{"session_id", "degrees"},
			},
		},
		{
			Name:        "photo_export",
			Description: "Write the extracted photo as PNG. Without a path the file is named extracted_photo_<id>.png in the configured output directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute output path",
					},
					"include_data": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the PNG as base64. Default false",
						"default":     false,
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "session_reset",
			Description: "Discard a session and its document.",
			InputSchema: sessionOnlySchema(),
		},

		// Diagnostics
		{
			Name:        "ocr_info",
			Description: "Report whether the OCR engine is available, its version and the configured language.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
