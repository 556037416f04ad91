// Package web provides the HTTP status and control server for the
// controller daemon.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/trv-controller/internal/status"
)

// Controls is the subset of controller operations exposed over HTTP.
type Controls interface {
	// SetWarmMode switches between warm service and frost protection.
	SetWarmMode(warm bool) error

	// StartBake requests a temporary temperature boost.
	StartBake() error

	// SetWarmC sets the WARM target temperature.
	SetWarmC(c uint8) error

	// SetFrostC sets the FROST target temperature.
	SetFrostC(c uint8) error
}

// Server serves the status page and control endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	controls   Controls
}

// New creates a Server that reads state from the given tracker. controls
// may be nil, disabling the POST endpoints.
func New(addr string, tracker *status.Tracker, controls Controls) *Server {
	s := &Server{tracker: tracker, controls: controls}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/target", s.handleTarget)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleMode accepts POST mode=warm|frost|bake.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if s.controls == nil {
		http.Error(w, "controls disabled", http.StatusNotImplemented)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var err error
	switch mode := r.FormValue("mode"); mode {
	case "warm":
		err = s.controls.SetWarmMode(true)
	case "frost":
		err = s.controls.SetWarmMode(false)
	case "bake":
		err = s.controls.StartBake()
	default:
		http.Error(w, fmt.Sprintf("unknown mode %q", mode), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTarget accepts POST warm=C and/or frost=C.
func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	if s.controls == nil {
		http.Error(w, "controls disabled", http.StatusNotImplemented)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	set := false
	for name, apply := range map[string]func(uint8) error{
		"warm":  s.controls.SetWarmC,
		"frost": s.controls.SetFrostC,
	} {
		v := r.FormValue(name)
		if v == "" {
			continue
		}
		c, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad %s value %q", name, v), http.StatusBadRequest)
			return
		}
		if err := apply(uint8(c)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		set = true
	}
	if !set {
		http.Error(w, "warm or frost value required", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
