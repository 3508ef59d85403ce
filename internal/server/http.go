package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/logging"
)

// maxBodySize caps HTTP request bodies. Requests carry paths, not images.
const maxBodySize = 1 << 20

type httpError struct {
	Error string `json:"error"`
}

// NewHTTPHandler exposes the tools over plain HTTP:
//
//	GET  /health
//	GET  /tools
//	POST /tools/{name}        body: tool arguments
//	POST /measure/{variant}   variant: sidewalk or buffer
//
// Argument errors answer 400, unknown tools and variants 404 and tool
// failures 422.
func NewHTTPHandler(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": ServerName, "version": s.version})
	})

	r.Get("/tools", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": GetToolDefinitions()})
	})

	r.Post("/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !knownTool(name) {
			writeJSON(w, http.StatusNotFound, httpError{Error: "unknown tool: " + name})
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		result, err := s.executeTool(r.Context(), name, body)
		if err != nil {
			writeToolError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/measure/{variant}", func(w http.ResponseWriter, r *http.Request) {
		v, err := estimate.ParseVariant(chi.URLParam(r, "variant"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, httpError{Error: err.Error()})
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		var a measureArgs
		if err := decodeArgs(body, &a); err != nil {
			writeJSON(w, http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		result, err := s.measure(r.Context(), v, a)
		if err != nil {
			writeToolError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func knownTool(name string) bool {
	for _, t := range GetToolDefinitions() {
		if t.Name == name {
			return true
		}
	}
	return false
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func writeToolError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	if errors.Is(err, errInvalidArgs) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, httpError{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Opsf("http: failed to encode response: %v", err)
	}
}
