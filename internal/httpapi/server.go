package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/outagemon/internal/scheduler"
)

// SnapshotSource serves the view the scheduler publishes after each cycle.
type SnapshotSource interface {
	Snapshot() scheduler.Snapshot
}

// Server exposes a read-only view of the current day's monitoring state.
// It never touches the live ledger, only per-cycle snapshots.
type Server struct {
	Logger *zap.Logger
	Source SnapshotSource
}

func NewServer(l *zap.Logger, src SnapshotSource) *Server {
	return &Server{Logger: l, Source: src}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/outages", s.handleOutages)

	return r
}

type statusPayload struct {
	Day          string         `json:"day"`
	Devices      int            `json:"devices"`
	Online       int            `json:"online"`
	Offline      int            `json:"offline"`
	OpenOutages  int            `json:"open_outages"`
	TotalOutages int            `json:"total_outages"`
	ByLocation   map[string]int `json:"by_location"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Source.Snapshot()
	p := statusPayload{
		Day:          snap.Summary.Day,
		Devices:      snap.Devices,
		Online:       snap.Online,
		Offline:      snap.Offline,
		OpenOutages:  snap.Summary.OpenOutages,
		TotalOutages: snap.Summary.TotalOutages,
		ByLocation:   snap.Summary.ByLocation,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

func (s *Server) handleOutages(w http.ResponseWriter, r *http.Request) {
	snap := s.Source.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap.Outages)
}
