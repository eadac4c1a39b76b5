package hrana

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tomyedwab/libsqlhttp/hrana/streams"
	"github.com/tomyedwab/libsqlhttp/sqlexec"
)

// ServerVersion is reported by GET /version.
const ServerVersion = "libsql-do-http-0.1.0"

// Server routes the protocol endpoints and dispatches to the v1 batch
// handler or the pipeline engine. The backend executor is assumed not to be
// safe for concurrent use, so all statement execution is serialized behind
// one mutex.
type Server struct {
	mu       sync.Mutex
	registry *streams.Registry
	engine   *Engine
	backend  sqlexec.Executor
}

func NewServer(backend sqlexec.Executor, registry *streams.Registry) *Server {
	return &Server{
		registry: registry,
		engine:   NewEngine(backend),
		backend:  backend,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	switch {
	case path == "/v2" || path == "/v3":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("method %s not allowed", r.Method))
			return
		}
		writeText(w, http.StatusOK, "OK")

	case path == "/v2/pipeline" || path == "/v3/pipeline":
		version := V2
		if path == "/v3/pipeline" {
			version = V3
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("method %s not allowed", r.Method))
			return
		}
		s.handlePipeline(w, r, version)

	case path == "/" || path == "/v1":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("method %s not allowed", r.Method))
			return
		}
		s.handleV1Batch(w, r)

	case path == "/health":
		writeText(w, http.StatusOK, "OK")

	case path == "/version":
		writeJSON(w, http.StatusOK, map[string]string{"version": ServerVersion})

	default:
		// /v3-protobuf lands here too; the protobuf encoding is not
		// implemented.
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
	}
}

// handlePipeline runs one v2/v3 pipeline: check out the stream named by the
// baton, evaluate the requests in order, and check the stream back in under
// a fresh baton unless the client closed it.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request, version Version) {
	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed pipeline request: %v", err))
		return
	}
	if req.Requests == nil {
		writeError(w, http.StatusBadRequest, "pipeline request is missing requests")
		return
	}

	presented := ""
	if req.Baton != nil {
		presented = *req.Baton
	}

	stream, err := s.registry.Checkout(presented)
	if err != nil {
		if errors.Is(err, streams.ErrInvalidBaton) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	results, closeRequested := s.engine.Run(stream, req.Requests, version)
	s.mu.Unlock()

	resp := PipelineResponse{Results: results}
	if !closeRequested {
		baton, err := s.registry.Checkin(stream)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Baton = &baton
	}
	writeJSON(w, http.StatusOK, &resp)
}

// handleV1Batch runs the stateless v1 statement list. Any failure discards
// the results of the whole batch; statements that already ran are not
// rolled back.
func (s *Server) handleV1Batch(w http.ResponseWriter, r *http.Request) {
	var req V1Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed batch request: %v", err))
		return
	}
	if req.Statements == nil {
		writeError(w, http.StatusBadRequest, "batch request is missing statements")
		return
	}

	s.mu.Lock()
	results, err := runV1Batch(s.backend, req.Statements)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
