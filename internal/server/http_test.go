package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Health(t *testing.T) {
	h := NewHTTPHandler(newTestServer())

	rec := doJSON(t, h, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, ServerName, got["service"])
	assert.Equal(t, "test", got["version"])
}

func TestHTTP_Tools(t *testing.T) {
	h := NewHTTPHandler(newTestServer())

	rec := doJSON(t, h, http.MethodGet, "/tools", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Tools, 5)
}

func TestHTTP_Measure(t *testing.T) {
	h := NewHTTPHandler(newTestServer())
	p0, p10 := bufferPair(t, t.TempDir())
	args := map[string]string{"pitch0": p0, "pitch10": p10}

	tests := []struct {
		path string
		want float64
	}{
		{"/measure/sidewalk", 3.862421915616},
		{"/measure/buffer", 1.547955980339},
		{"/measure/street_buffer", 1.547955980339},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.path, args)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got measurePayload
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.NotNil(t, got.Result.Value)
			assert.InDelta(t, tt.want, *got.Result.Value, 1e-6)
		})
	}
}

func TestHTTP_ToolCall(t *testing.T) {
	h := NewHTTPHandler(newTestServer())

	rec := doJSON(t, h, http.MethodPost, "/tools/solve_angle", map[string]float64{"p0": 27, "p10": 9})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got SolveAngleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 15.161018508248, got.Angle, 1e-6)
	assert.Nil(t, got.Width)
}

func TestHTTP_Errors(t *testing.T) {
	h := NewHTTPHandler(newTestServer())
	missing := filepath.Join(t.TempDir(), "missing.csv")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown variant", http.MethodPost, "/measure/curb", map[string]string{}, http.StatusNotFound},
		{"unknown tool", http.MethodPost, "/tools/image_crop", map[string]string{}, http.StatusNotFound},
		{"missing arguments", http.MethodPost, "/measure/sidewalk", map[string]string{}, http.StatusBadRequest},
		{"bad tool arguments", http.MethodPost, "/tools/inspect_labels", map[string]string{}, http.StatusBadRequest},
		{"missing file", http.MethodPost, "/measure/buffer", map[string]string{"pitch0": missing, "pitch10": missing}, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, "/measure/sidewalk", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
