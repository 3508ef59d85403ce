package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/ironsheep/street-width-mcp/internal/batch"
	"github.com/ironsheep/street-width-mcp/internal/detection"
	"github.com/ironsheep/street-width-mcp/internal/diagnostics"
	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
	"github.com/ironsheep/street-width-mcp/internal/logging"
	"github.com/ironsheep/street-width-mcp/internal/manifest"
	"github.com/ironsheep/street-width-mcp/internal/solver"
)

// errInvalidArgs marks tool failures caused by the caller's arguments.
var errInvalidArgs = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "measure_sidewalk_width").
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
// Bad arguments return -32602, other tool failures -32000 and a panic
// inside a tool -32603.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) (resp *MCPResponse) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Opsf("tool %s panicked: %v", params.Name, r)
			resp = s.errorResponse(req.ID, codeInternal, "Internal error", fmt.Sprint(r))
		}
	}()

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if errors.Is(err, errInvalidArgs) {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolInspectLabels:
		return s.handleInspectLabels(args)
	case ToolExtractEdges:
		return s.handleExtractEdges(args)
	case ToolMeasureSidewalk:
		return s.handleMeasure(ctx, estimate.Sidewalk, args)
	case ToolMeasureBuffer:
		return s.handleMeasure(ctx, estimate.Buffer, args)
	case ToolSolveAngle:
		return s.handleSolveAngle(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Label Handlers ===

type inspectLabelsArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleInspectLabels(args json.RawMessage) (interface{}, error) {
	var a inspectLabelsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArgs)
	}
	return imaging.DescribeLabels(s.cache, a.Path)
}

type extractEdgesArgs struct {
	Path     string  `json:"path"`
	MaskPath string  `json:"mask_path"`
	Class    string  `json:"class"`
	Pitch    int     `json:"pitch"`
	Raw      bool    `json:"raw"`
	Preview  bool    `json:"preview"`
	Color    string  `json:"color"`
	Scale    float64 `json:"scale"`
}

// ExtractEdgesResult is the extract_edges payload. A pipeline failure is
// reported through ErrorCode with an empty segment list.
type ExtractEdgesResult struct {
	Class     string                `json:"class,omitempty"`
	Pitch     int                   `json:"pitch"`
	Count     int                   `json:"count"`
	Segments  []geometry.Segment    `json:"segments,omitempty"`
	Lines     []detection.Line      `json:"lines,omitempty"`
	ErrorCode *estimate.ErrorCode   `json:"error_code,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Preview   *imaging.EncodedImage `json:"preview,omitempty"`
}

func (s *Server) handleExtractEdges(args json.RawMessage) (interface{}, error) {
	var a extractEdgesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.Path == "") == (a.MaskPath == "") {
		return nil, fmt.Errorf("%w: give exactly one of path and mask_path", errInvalidArgs)
	}
	if a.Pitch != solver.PitchLevel && a.Pitch != solver.PitchDown {
		return nil, fmt.Errorf("%w: pitch must be 0 or -10, got %d", errInvalidArgs, a.Pitch)
	}
	lineColor := imaging.Named("red")
	if a.Color != "" {
		c, err := imaging.ParseHexColor(a.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: color: %v", errInvalidArgs, err)
		}
		lineColor = c
	}

	out := &ExtractEdgesResult{Pitch: a.Pitch}
	var mask *image.Gray
	var name string
	if a.MaskPath != "" {
		m, err := detection.LoadMask(a.MaskPath)
		if err != nil {
			return nil, err
		}
		mask, name = m, captureName(a.MaskPath)
	} else {
		if a.Class == "" {
			a.Class = "sidewalk"
		}
		class, err := imaging.ParseClass(a.Class)
		if err != nil || (class != imaging.ClassSidewalk && class != imaging.ClassRoad) {
			return nil, fmt.Errorf("%w: class must be sidewalk or road, got %q", errInvalidArgs, a.Class)
		}
		out.Class = class.String()

		labels, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		m, err := detection.BuildMask(labels, class, s.engine.Config().MinAreaDivisor)
		if err != nil {
			return out, pipelineFailure(out, err)
		}
		mask, name = m, captureName(a.Path)+" "+out.Class
	}

	var strokes []imaging.Stroke
	if a.Raw {
		lines, err := detection.DetectLines(mask, s.engine.Params())
		if err != nil {
			return nil, err
		}
		out.Lines, out.Count = lines.Lines, lines.Count
		for _, l := range lines.Lines {
			strokes = append(strokes, imaging.Stroke{
				X1: float64(l.Start.X), Y1: float64(l.Start.Y),
				X2: float64(l.End.X), Y2: float64(l.End.Y),
				Color: lineColor,
			})
		}
	} else {
		segs, err := s.engine.ExtractMask(mask, a.Pitch, name)
		if err != nil {
			return out, pipelineFailure(out, err)
		}
		out.Segments, out.Count = segs, len(segs)
		for _, seg := range segs {
			strokes = append(strokes, imaging.Stroke{X1: seg.X1, Y1: seg.Y1, X2: seg.X2, Y2: seg.Y2, Color: lineColor})
		}
	}

	if a.Preview {
		canvas := imaging.MaskCanvas(mask, imaging.Named("white"))
		imaging.DrawStrokes(canvas, strokes, 2)
		enc, err := imaging.EncodePNG(canvas, a.Scale)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		out.Preview = enc
	}
	return out, nil
}

// pipelineFailure records a stage error on out. Errors outside the
// pipeline are returned unchanged.
func pipelineFailure(out *ExtractEdgesResult, err error) error {
	code, ok := estimate.CodeOf(err)
	if !ok {
		return err
	}
	out.ErrorCode, out.Reason = &code, err.Error()
	return nil
}

// === Measurement Handlers ===

type measureArgs struct {
	Pitch0  string `json:"pitch0"`
	Pitch10 string `json:"pitch10"`

	CaptureRoot string  `json:"capture_root"`
	PanoID      string  `json:"pano_id"`
	Side        string  `json:"side"`
	PanoHeading float64 `json:"pano_heading"`
	Bearing     float64 `json:"bearing"`

	DiagnosticsDir string `json:"diagnostics_dir"`
}

// MeasureResult is the payload of both measurement tools.
type MeasureResult struct {
	Variant string          `json:"variant"`
	Result  estimate.Result `json:"result"`
	Files   []string        `json:"files,omitempty"`
}

func (s *Server) handleMeasure(ctx context.Context, v estimate.Variant, args json.RawMessage) (interface{}, error) {
	var a measureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.measure(ctx, v, a)
}

// measure runs one location. Explicit capture paths take precedence over a
// capture tree.
func (s *Server) measure(ctx context.Context, v estimate.Variant, a measureArgs) (*MeasureResult, error) {
	cfg := s.engine.Config()
	dir := a.DiagnosticsDir
	if dir == "" && cfg.Diagnostics {
		dir = cfg.DiagnosticsDir
	}

	engine := s.engine
	var renderer *diagnostics.Renderer
	if dir != "" {
		renderer = diagnostics.NewRenderer(cfg.ImageSize, cfg.CenterY, cfg.BandWidth)
		engine = estimate.NewEngine(&cfg, estimate.WithSink(renderer))
	}

	var res estimate.Result
	switch {
	case a.Pitch0 != "" || a.Pitch10 != "":
		if a.Pitch0 == "" || a.Pitch10 == "" {
			return nil, fmt.Errorf("%w: pitch0 and pitch10 must be given together", errInvalidArgs)
		}
		loc := estimate.Location{ID: captureName(a.Pitch0), Dir: dir}
		for _, c := range []struct {
			pitch int
			path  string
		}{{solver.PitchLevel, a.Pitch0}, {solver.PitchDown, a.Pitch10}} {
			labels, err := s.cache.Load(c.path)
			if err != nil {
				return nil, err
			}
			loc.Captures = append(loc.Captures, estimate.Capture{Pitch: c.pitch, Name: captureName(c.path), Labels: labels})
		}
		var err error
		if res, err = engine.Measure(ctx, v, loc); err != nil {
			return nil, err
		}

	case a.CaptureRoot != "":
		if a.PanoID == "" || a.Side == "" {
			return nil, fmt.Errorf("%w: capture_root needs pano_id and side", errInvalidArgs)
		}
		r := batch.NewRunner(engine, batch.Options{
			Root:           a.CaptureRoot,
			Variant:        v,
			Diagnostics:    renderer != nil,
			DiagnosticsDir: dir,
			Cache:          s.cache,
		})
		p := manifest.Point{
			LinkID:      a.PanoID,
			Side:        a.Side,
			PanoID:      a.PanoID,
			PanoHeading: a.PanoHeading,
			Bearing:     a.Bearing,
		}
		var err error
		if res, err = r.MeasurePoint(ctx, p); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: give pitch0 and pitch10, or capture_root", errInvalidArgs)
	}

	out := &MeasureResult{Variant: v.String(), Result: res}
	if renderer != nil {
		out.Files = renderer.Written()
		if err := renderer.Err(); err != nil {
			logging.Opsf("diagnostics: %v", err)
		}
	}
	logging.Diagf("%s: %s", v, res)
	return out, nil
}

// captureName strips the directory, the label suffix and the extension.
func captureName(path string) string {
	base := filepath.Base(path)
	for _, suffix := range manifest.LabelSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// === Solver Handlers ===

type solveAngleArgs struct {
	P0       *float64 `json:"p0"`
	P10      *float64 `json:"p10"`
	P0Other  *float64 `json:"p0_other"`
	P10Other *float64 `json:"p10_other"`
	Scale    float64  `json:"scale"`
}

// SolveAngleResult is the solve_angle payload. Angles are degrees below
// the horizon.
type SolveAngleResult struct {
	Angle      float64  `json:"angle"`
	Seed       float64  `json:"seed"`
	OtherAngle *float64 `json:"other_angle,omitempty"`
	Width      *float64 `json:"width,omitempty"`
}

func (s *Server) handleSolveAngle(args json.RawMessage) (interface{}, error) {
	var a solveAngleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.P0 == nil || a.P10 == nil {
		return nil, fmt.Errorf("%w: p0 and p10 are required", errInvalidArgs)
	}
	if (a.P0Other == nil) != (a.P10Other == nil) {
		return nil, fmt.Errorf("%w: p0_other and p10_other must be given together", errInvalidArgs)
	}

	cfg := s.engine.Config()
	sv := solver.Solver{Scale: cfg.Scale, MaxIterations: cfg.MaxIterations}
	if a.Scale > 0 {
		sv.Scale = a.Scale
	}

	t, err := sv.Angle(*a.P0, *a.P10)
	if err != nil {
		return nil, err
	}
	out := &SolveAngleResult{Angle: t, Seed: solver.Seed(*a.P10)}
	if a.P0Other == nil {
		return out, nil
	}

	other, err := sv.Angle(*a.P0Other, *a.P10Other)
	if err != nil {
		return nil, fmt.Errorf("second edge: %w", err)
	}
	w := solver.Width(t, other, sv.Scale)
	out.OtherAngle, out.Width = &other, &w
	return out, nil
}
