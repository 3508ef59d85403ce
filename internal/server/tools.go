package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Tool names.
const (
	ToolInspectLabels   = "inspect_labels"
	ToolExtractEdges    = "extract_edges"
	ToolMeasureSidewalk = "measure_sidewalk_width"
	ToolMeasureBuffer   = "measure_buffer_width"
	ToolSolveAngle      = "solve_angle"
)

// labelPathProperty describes an argument holding a label file.
func labelPathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description + " (label CSV of x,y,label rows or an 8-bit class-index PNG)",
	}
}

// measureSchema is shared by both measurement tools.
func measureSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pitch0":  labelPathProperty("Absolute path to the labels of the pitch 0° capture"),
			"pitch10": labelPathProperty("Absolute path to the labels of the pitch -10° capture"),
			"capture_root": map[string]interface{}{
				"type":        "string",
				"description": "Root of a capture tree laid out as <root>/<pano_id>/<side>. Used with pano_id, side, pano_heading and bearing instead of pitch0/pitch10.",
			},
			"pano_id": map[string]interface{}{
				"type":        "string",
				"description": "Panorama id of the midpoint",
			},
			"side": map[string]interface{}{
				"type":        "string",
				"description": "Side of the link (side1 or side2)",
			},
			"pano_heading": map[string]interface{}{
				"type":        "number",
				"description": "Heading of the panorama in degrees",
			},
			"bearing": map[string]interface{}{
				"type":        "number",
				"description": "Bearing of the link in degrees",
			},
			"diagnostics_dir": map[string]interface{}{
				"type":        "string",
				"description": "Optional directory for line overlays and edge charts. With capture_root they go under <diagnostics_dir>/<pano_id>/<side>.",
			},
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        ToolInspectLabels,
			Description: "Load a segmentation label file and report its grid size and per-class pixel counts.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": labelPathProperty("Absolute path to the label file"),
					"mask_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to an already cleaned binary mask image, used instead of path",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        ToolExtractEdges,
			Description: "Run mask building, Canny, Hough, horizontal filtering, dedup and band splitting for one surface of one capture. Returns the banded segments, or the raw Hough lines when raw is true. Give either path or mask_path; preview adds a PNG of the mask with the result drawn over it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": labelPathProperty("Absolute path to the label file"),
					"mask_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to an already cleaned binary mask image, used instead of path",
					},
					"class": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"sidewalk", "road"},
						"description": "Surface class to extract (default sidewalk)",
						"default":     "sidewalk",
					},
					"pitch": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{0, -10},
						"description": "Camera pitch of the capture in degrees (default 0)",
						"default":     0,
					},
					"raw": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the Hough lines before filtering",
						"default":     false,
					},
					"preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG of the mask with the returned lines drawn",
						"default":     false,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color of the preview lines (default #FF0000)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor applied to the preview (default 1.0)",
					},
				},
			},
		},
		{
			Name:        ToolMeasureSidewalk,
			Description: "Estimate the sidewalk width in meters from a pitch 0° and a pitch -10° capture. Give either pitch0 and pitch10, or capture_root with the midpoint fields.",
			InputSchema: measureSchema(),
		},
		{
			Name:        ToolMeasureBuffer,
			Description: "Estimate the width of the street buffer between the sidewalk and the road in meters, or report that the two touch. Accepts the same arguments as measure_sidewalk_width.",
			InputSchema: measureSchema(),
		},
		{
			Name:        ToolSolveAngle,
			Description: "Solve the elevation angle of an edge from its centerline offsets at pitch 0° and -10°. With a second pair of offsets, also returns the ground distance between the two edges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"p0": map[string]interface{}{
						"type":        "number",
						"description": "Offset in pixels from the centerline at pitch 0°",
					},
					"p10": map[string]interface{}{
						"type":        "number",
						"description": "Offset in pixels from the centerline at pitch -10°",
					},
					"p0_other": map[string]interface{}{
						"type":        "number",
						"description": "Optional pitch 0° offset of a second edge",
					},
					"p10_other": map[string]interface{}{
						"type":        "number",
						"description": "Optional pitch -10° offset of a second edge",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Camera height in meters (default from configuration)",
					},
				},
				"required": []string{"p0", "p10"},
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
