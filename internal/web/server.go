// Package web serves the phasecut status page: an HTML view of duty, cycle
// counters and broker state, and the same snapshot as JSON.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/sweeney/phasecut/internal/status"
)

// Server is a status page bound to a listening socket.
type Server struct {
	httpServer *http.Server
	ln         net.Listener
	tracker    *status.Tracker
}

// Listen binds addr and returns a Server ready for Serve. Binding happens
// here so a taken port is reported at startup rather than from a goroutine.
func Listen(addr string, tracker *status.Tracker) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("http listen %s: %w", addr, err)
	}
	s := &Server{ln: ln, tracker: tracker}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s, nil
}

// Handler returns the status routes without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	return mux
}

// Addr is the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve handles requests until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Serve() error {
	return s.httpServer.Serve(s.ln)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// readOnly rejects anything but GET and HEAD.
func readOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if !readOnly(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if !readOnly(w, r) {
		return
	}
	// Counters change every half-cycle; never serve a cached copy.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
