package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/slopwatch/internal/engine"
	"github.com/ppiankov/slopwatch/internal/model"
)

const defaultVerdictWindow = time.Hour

// messageRequest is the body of POST /api/messages
type messageRequest struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type messageResponse struct {
	Claims []model.Claim `json:"claims"`
}

type analyzeResponse struct {
	Analyzed int `json:"analyzed"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Role) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "role and content are required")
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = s.now()
	}

	claims, err := s.svc.SubmitMessage(r.Context(), req.SessionID, req.Role, req.Content, req.Timestamp)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Claims: claims})
}

func (s *Server) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdicts, err := s.svc.RecentVerdicts(r.Context(), since)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}
	writeJSON(w, http.StatusOK, verdicts)
}

func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	v, found, err := s.svc.Verdict(r.Context(), claimID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no verdict for claim "+claimID)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.AnalyzePending(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, analyzeResponse{Analyzed: n})
}

// parseSince accepts an RFC3339 timestamp or a duration back from now
func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Add(-defaultVerdictWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, errors.New("since must be an RFC3339 timestamp or a duration like 15m")
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Warn("Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
