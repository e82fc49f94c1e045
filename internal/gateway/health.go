package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Sessions: s.sessions.Len(),
		})
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	LiveSessions  int   `json:"live_sessions"`
	HistoryChats  int   `json:"history_chats"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			UptimeSeconds: int64(time.Since(s.startedAt) / time.Second),
			LiveSessions:  s.sessions.Len(),
			HistoryChats:  len(s.history.AllActiveSessions()),
		})
	}
}
