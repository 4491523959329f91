// Admin HTTP server exposing simulator state and controls.
package admin

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"drivepilot-sim/internal/sim"
)

type Server struct {
	Sim *sim.Simulator
	tpl *template.Template
}

//go:embed templates/index.html
var content embed.FS

func NewServer(simulator *sim.Simulator) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sim: simulator, tpl: tpl}
}

func (s *Server) routes() {
	http.HandleFunc("/", s.handleIndex)
	http.HandleFunc("/tracks", s.handleTracks)
	http.HandleFunc("/decisions", s.handleDecisions)
	http.HandleFunc("/health", s.handleHealth)
	http.HandleFunc("/toggle-detection", s.handleToggleDetection)
	http.HandleFunc("/spawn", s.handleSpawn)
}

func (s *Server) Start(addr string) error {
	s.routes()
	return http.ListenAndServe(addr, nil)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		RunID     string
		Health    sim.Health
		Tracks    []sim.TrackRow
		Decisions []sim.DecisionRow
	}{
		RunID:     s.Sim.RunID(),
		Health:    s.Sim.Health(),
		Tracks:    s.Sim.TracksSnapshot(),
		Decisions: s.Sim.RecentDecisions(),
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Sim.TracksSnapshot())
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Sim.RecentDecisions())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Sim.Health())
}

func (s *Server) handleToggleDetection(w http.ResponseWriter, r *http.Request) {
	state := s.Sim.ToggleDetection()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"detection": state})
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("type")
	if typ == "" {
		typ = "pedestrian"
	}
	rangeM := parseFloat(q.Get("range_m"), 40)
	bearing := parseFloat(q.Get("bearing_deg"), 0)
	speed := parseFloat(q.Get("speed_mps"), 0)
	heading := parseFloat(q.Get("heading_deg"), 0)
	size := q.Get("size")
	if size == "" {
		size = "medium"
	}
	s.Sim.SpawnObstacle(typ, rangeM, bearing, speed, heading, size)
	w.WriteHeader(http.StatusNoContent)
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
