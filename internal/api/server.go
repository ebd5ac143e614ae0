// Package api exposes the dashboard core over HTTP JSON. All rendering is
// external; these handlers only move metrics and threshold state.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"IndexWatch/internal/config"
	"IndexWatch/internal/model"
	"IndexWatch/internal/recorder"
	"IndexWatch/internal/store"
)

// MetricsSource is the fetch side of the core.
type MetricsSource interface {
	GetMetrics(name, code string) (model.Metrics, error)
	ForceRefresh()
}

// Server wires the HTTP boundary.
type Server struct {
	Source MetricsSource
	Store  *store.Store
	Rec    recorder.Recorder
	Groups []config.Group
}

// NewServer creates a Server.
func NewServer(src MetricsSource, st *store.Store, rec recorder.Recorder, groups []config.Group) *Server {
	return &Server{Source: src, Store: st, Rec: rec, Groups: groups}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/indices", s.handleIndices)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/thresholds", s.handleGetThreshold)
	mux.HandleFunc("PUT /api/thresholds", s.handleSetThreshold)
	mux.HandleFunc("GET /api/notes", s.handleGetNotes)
	mux.HandleFunc("POST /api/notes", s.handleAddNote)
	mux.HandleFunc("PUT /api/notes", s.handleUpdateNote)
	mux.HandleFunc("DELETE /api/notes", s.handleDeleteNote)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	return mux
}

type indexDTO struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type groupDTO struct {
	Name    string     `json:"name"`
	Indices []indexDTO `json:"indices"`
}

func (s *Server) handleIndices(w http.ResponseWriter, _ *http.Request) {
	out := make([]groupDTO, 0, len(s.Groups))
	for _, g := range s.Groups {
		dto := groupDTO{Name: g.Name}
		for _, idx := range g.Indices {
			dto.Indices = append(dto.Indices, indexDTO{Name: idx.Name, Code: idx.Code})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type metricsDTO struct {
	Current   float64 `json:"current"`
	HighValue float64 `json:"high_value"`
	HighDate  string  `json:"high_date"`
	LowValue  float64 `json:"low_value"`
	LowDate   string  `json:"low_date"`
	Source    string  `json:"source,omitempty"`
}

type metricsResponse struct {
	Available bool        `json:"available"`
	Metrics   *metricsDTO `json:"metrics,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func toMetricsDTO(m model.Metrics) *metricsDTO {
	return &metricsDTO{
		Current:   m.Current,
		HighValue: m.HighValue,
		HighDate:  m.HighDate.Format("2006-01-02"),
		LowValue:  m.LowValue,
		LowDate:   m.LowDate.Format("2006-01-02"),
		Source:    m.Source,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	code := r.URL.Query().Get("code")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	m, err := s.Source.GetMetrics(name, code)
	if err != nil {
		// Per-index failure is a normal condition; other indices keep working.
		writeJSON(w, http.StatusOK, metricsResponse{
			Available: false,
			Message:   "data unavailable, try refreshing",
		})
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse{Available: true, Metrics: toMetricsDTO(m)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.Source.ForceRefresh()
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

type thresholdDTO struct {
	Name    string  `json:"name"`
	Support float64 `json:"support"`
	Ceiling float64 `json:"ceiling"`
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	t := s.Store.Threshold(name)
	writeJSON(w, http.StatusOK, thresholdDTO{Name: name, Support: t.Support, Ceiling: t.Ceiling})
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "body must carry name, support, ceiling")
		return
	}
	if err := s.Store.SetThreshold(req.Name, req.Support, req.Ceiling); err != nil {
		// The edit is kept in memory; only the disk write failed.
		log.Printf("[WARN] persist threshold %s: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "saved in memory, disk write failed; retry")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type noteRequest struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	notes := s.Store.Notes(name)
	if notes == nil {
		notes = []model.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "body must carry name, date, content")
		return
	}
	err := s.Store.AddNote(req.Name, model.JournalEntry{Date: req.Date, Content: req.Content})
	s.finishMutation(w, r, req.Name, err)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "body must carry name, index, content")
		return
	}
	err := s.Store.UpdateNote(req.Name, req.Index, req.Content)
	s.finishMutation(w, r, req.Name, err)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	idx, err := strconv.Atoi(r.URL.Query().Get("index"))
	if name == "" || err != nil {
		writeError(w, http.StatusBadRequest, "name and index are required")
		return
	}
	s.finishMutation(w, r, name, s.Store.DeleteNote(name, idx))
}

func (s *Server) finishMutation(w http.ResponseWriter, _ *http.Request, name string, err error) {
	switch {
	case errors.Is(err, store.ErrPersist):
		// The edit is kept in memory; only the disk write failed.
		log.Printf("[WARN] persist %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "saved in memory, disk write failed; retry")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, s.Store.Notes(name))
	}
}

type historyDTO struct {
	FetchedAt string      `json:"fetched_at"`
	Source    string      `json:"source,omitempty"`
	Metrics   *metricsDTO `json:"metrics"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.Rec.Recent(name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]historyDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, historyDTO{
			FetchedAt: rec.FetchedAt.Format("2006-01-02 15:04:05"),
			Source:    rec.Source,
			Metrics:   toMetricsDTO(rec.Metrics),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
