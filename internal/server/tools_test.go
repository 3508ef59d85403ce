package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"inspect_labels",
		"extract_edges",
		"measure_sidewalk_width",
		"measure_buffer_width",
		"solve_angle",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(tools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema has no properties")
			}

			// Every required argument must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required argument %q not in properties", r)
				}
			}
		})
	}
}

func TestToolDefinitions_MeasureSchemasMatch(t *testing.T) {
	var sidewalk, buffer map[string]interface{}
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case ToolMeasureSidewalk:
			sidewalk = tool.InputSchema["properties"].(map[string]interface{})
		case ToolMeasureBuffer:
			buffer = tool.InputSchema["properties"].(map[string]interface{})
		}
	}

	for _, key := range []string{"pitch0", "pitch10", "capture_root", "pano_id", "side", "pano_heading", "bearing", "diagnostics_dir"} {
		if _, ok := sidewalk[key]; !ok {
			t.Errorf("measure_sidewalk_width missing %q", key)
		}
		if _, ok := buffer[key]; !ok {
			t.Errorf("measure_buffer_width missing %q", key)
		}
	}
}

func TestToolDefinitions_ExtractEdgesDefaults(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != ToolExtractEdges {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		class := props["class"].(map[string]interface{})
		if class["default"] != "sidewalk" {
			t.Errorf("class default: got %v", class["default"])
		}
		pitch := props["pitch"].(map[string]interface{})
		if pitch["default"] != 0 {
			t.Errorf("pitch default: got %v", pitch["default"])
		}
		return
	}
	t.Fatal("extract_edges not defined")
}

func TestKnownTool(t *testing.T) {
	if !knownTool(ToolSolveAngle) {
		t.Error("solve_angle should be known")
	}
	if knownTool("image_crop") {
		t.Error("image_crop should not be known")
	}
}
