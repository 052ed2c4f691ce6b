package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/winitzki/chymyst-go/internal/jc"
	"github.com/winitzki/chymyst-go/internal/scenarios"
)

// extractSiteName extracts the site name from a path like "/sites/{name}/..."
// and returns it along with whatever path remains.
func extractSiteName(path string) (string, string) {
	if !strings.HasPrefix(path, "/sites/") {
		return "", ""
	}
	rest := path[len("/sites/"):]
	idx := strings.Index(rest, "/")
	if idx == -1 {
		return rest, ""
	}
	return rest[:idx], rest[idx:]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /sites
// Lists the names of all currently running sites.
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	names := s.manager.List()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"sites": names}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /sites
// Body: { "name": "...", "kind": "counter" | "single-access" | "readers-writer" }
// Creates and starts a new scenario site.
type createSiteRequest struct {
	Name string        `json:"name"`
	Kind scenarios.Kind `json:"kind"`
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "site name is required", http.StatusBadRequest)
		return
	}

	if _, err := s.manager.Create(req.Name, req.Kind); err != nil {
		s.logger.Warnf("failed to create site: name=%s kind=%s error=%v", req.Name, req.Kind, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Infof("site created: name=%s kind=%s", req.Name, req.Kind)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("site created"))
}

// DELETE /sites/{name}
func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.manager.Delete(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.eventsMu.Lock()
	if e, ok := s.events[name]; ok {
		e.manager.Close()
		delete(s.events, name)
	}
	s.eventsMu.Unlock()

	s.logger.Infof("site deleted: name=%s", name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("site deleted"))
}

// GET /sites/{name}/soup
func (s *Server) handleSoup(w http.ResponseWriter, r *http.Request, name string) {
	h, exists := s.manager.Get(name)
	if !exists {
		http.Error(w, "site not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.LogSoup()))
}

// GET /sites/{name}/volatile/{molecule}
func (s *Server) handleVolatile(w http.ResponseWriter, r *http.Request, name, molecule string) {
	h, exists := s.manager.Get(name)
	if !exists {
		http.Error(w, "site not found", http.StatusNotFound)
		return
	}

	v, err := h.VolatileValue(molecule)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"value": v}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /sites/{name}/emit/{molecule}
// Body: raw JSON payload for the molecule.
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request, name, molecule string) {
	defer r.Body.Close()

	h, exists := s.manager.Get(name)
	if !exists {
		http.Error(w, "site not found", http.StatusNotFound)
		return
	}

	var payload json.RawMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json payload: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.Emit(r.Context(), molecule, payload); err != nil {
		s.logger.Warnf("emit failed: site=%s molecule=%s error=%v", name, molecule, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debugf("emitted: site=%s molecule=%s", name, molecule)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /sites/{name}/emit-blocking/{molecule}?timeout_ms=500
// Body: raw JSON payload for the molecule.
// Returns the reply value, or 408 if the timeout elapsed first.
func (s *Server) handleEmitBlocking(w http.ResponseWriter, r *http.Request, name, molecule string) {
	defer r.Body.Close()

	h, exists := s.manager.Get(name)
	if !exists {
		http.Error(w, "site not found", http.StatusNotFound)
		return
	}

	var payload json.RawMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json payload: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	timeout := 5 * time.Second
	if ms := r.URL.Query().Get("timeout_ms"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			http.Error(w, "invalid timeout_ms: must be a positive integer", http.StatusBadRequest)
			return
		}
		timeout = time.Duration(n) * time.Millisecond
	}

	result, err := h.EmitBlocking(r.Context(), molecule, payload, timeout)
	if err != nil {
		if errors.Is(err, jc.ErrTimedOut) {
			http.Error(w, "timed out waiting for a reply", http.StatusRequestTimeout)
			return
		}
		s.logger.Warnf("emit-blocking failed: site=%s molecule=%s error=%v", name, molecule, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"value": result}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleSiteRoutes routes requests under /sites/... to the handler matching
// the method and remaining path segments.
func (s *Server) handleSiteRoutes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/sites" {
		switch r.Method {
		case http.MethodGet:
			s.handleListSites(w, r)
		case http.MethodPost:
			s.handleCreateSite(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	name, rest := extractSiteName(r.URL.Path)
	if name == "" {
		http.Error(w, "site name is required in path: /sites/{name}/...", http.StatusBadRequest)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodDelete:
		s.handleDeleteSite(w, r, name)
	case rest == "/soup" && r.Method == http.MethodGet:
		s.handleSoup(w, r, name)
	case rest == "/events" && r.Method == http.MethodGet:
		s.handleEvents(w, r, name)
	case strings.HasPrefix(rest, "/volatile/") && r.Method == http.MethodGet:
		s.handleVolatile(w, r, name, strings.TrimPrefix(rest, "/volatile/"))
	case strings.HasPrefix(rest, "/emit-blocking/") && r.Method == http.MethodPost:
		s.handleEmitBlocking(w, r, name, strings.TrimPrefix(rest, "/emit-blocking/"))
	case strings.HasPrefix(rest, "/emit/") && r.Method == http.MethodPost:
		s.handleEmit(w, r, name, strings.TrimPrefix(rest, "/emit/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}
