package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"supportdesk/internal/desk"
	"sync"
)

// SnapshotSource is what the status endpoint reads from.
type SnapshotSource interface {
	Snapshot() (desk.Snapshot, bool)
}

// StatusServer exposes the console badges and presence to local tooling.
type StatusServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

type presenceResponse struct {
	Online []string `json:"online"`
}

func NewStatusServer(source SnapshotSource, addr string) *StatusServer {
	return &StatusServer{
		server: &http.Server{
			Addr:    addr,
			Handler: NewStatusHandler(source),
		},
	}
}

func NewStatusHandler(source SnapshotSource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /badges", func(w http.ResponseWriter, r *http.Request) {
		s, ok := source.Snapshot()
		if !ok {
			http.Error(w, "Console not ready", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.Badges)
	})
	mux.HandleFunc("GET /presence", func(w http.ResponseWriter, r *http.Request) {
		s, ok := source.Snapshot()
		if !ok {
			http.Error(w, "Console not ready", http.StatusServiceUnavailable)
			return
		}
		online := s.Online
		if online == nil {
			online = []string{}
		}
		writeJSON(w, presenceResponse{Online: online})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode status response: %v", err)
	}
}

func (s *StatusServer) Start() error {
	log.Printf("Status endpoint started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
