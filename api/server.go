package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/mars-rovers/game/engine"
	"github.com/wricardo/mars-rovers/game/service"
	"github.com/wricardo/mars-rovers/transport/websocket"
)

// maxBodyBytes bounds request bodies; scripts are the largest payload
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.MissionService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(missionService service.MissionService, hub *websocket.Hub) *Server {
	s := &Server{
		service: missionService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be registered before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Mission operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetMissionState).Methods("GET")
	api.HandleFunc("/sessions/{id}/rovers", s.handleDeploy).Methods("POST")
	api.HandleFunc("/sessions/{id}/script", s.handleRunScript).Methods("POST")
	api.HandleFunc("/sessions/{id}/plan", s.handleRunPlan).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/reports", s.handleGetReports).Methods("GET")
	api.HandleFunc("/sessions/{id}/positions/{x}/{y}", s.handleDescribePosition).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	}
	respondError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "mars-rovers",
		"endpoints": []string{
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}",
			"DELETE /api/sessions/{id}",
			"GET /api/sessions/{id}/state",
			"POST /api/sessions/{id}/rovers",
			"POST /api/sessions/{id}/script",
			"POST /api/sessions/{id}/plan",
			"POST /api/sessions/{id}/reset",
			"GET /api/sessions/{id}/reports",
			"GET /api/sessions/{id}/positions/{x}/{y}",
			"GET /api/configs",
			"POST /api/configs",
			"GET /api/configs/{name}",
			"GET /ws?session={id}",
		},
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigName string `json:"config_name,omitempty"`
	}

	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session, err := s.service.CreateSession(r.Context(), req.ConfigName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Mission Handlers

func (s *Server) handleGetMissionState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetMissionState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.DeployRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Deploy(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.MissionState, result.Events)

	// Compact server log for observability
	rep := result.Report
	fmt.Printf("[DEPLOY] session=%s rover=%d start=(%d,%d,%s) program=%s final=%q saves=%d\n",
		sessionID, rep.Sequence, rep.Start.X, rep.Start.Y, rep.Start.Orientation, rep.Instructions, rep.String(), rep.Saves)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Script string `json:"script"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.RunScript(r.Context(), sessionID, req.Script)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.MissionState, result.Events)

	stop := "completed"
	if !result.Completed {
		stop = fmt.Sprintf("line %d", result.StoppedOnLine)
	}
	fmt.Printf("[SCRIPT] session=%s records=%d rovers=%d stop=%s\n",
		sessionID, result.LinesProcessed, len(result.Reports), stop)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.RunPlan(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.MissionState, result.Events)

	fmt.Printf("[PLAN] session=%s rovers=%d lost=%d\n",
		sessionID, len(result.Reports), engine.CountLost(result.Reports))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, state, []service.MissionEvent{{
		Type:      service.EventReset,
		Message:   "Mission reset to its configuration",
		Timestamp: time.Now(),
	}})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Mission reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetReports(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleDescribePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "x and y must be integers")
		return
	}

	info, err := s.service.DescribePosition(r.Context(), vars["id"], engine.Position{X: x, Y: y})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// broadcast pushes the new state, then each event, to WebSocket watchers
func (s *Server) broadcast(sessionID string, state *engine.MissionState, events []service.MissionEvent) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, state)
	for _, ev := range events {
		s.hub.BroadcastEvent(sessionID, ev.Type, ev)
	}
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if configs == nil {
		configs = []*service.ConfigInfo{}
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.MissionConfig
	}

	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.Name
	}

	missionConfig := req.MissionConfig
	if err := s.service.SaveConfig(r.Context(), configID, &missionConfig); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// Unified Sessions Handler

// handleUnifiedSessions returns a side-by-side summary of several sessions,
// selected by ?sessionIds=a,b or ?configName=sample
func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		for _, session := range all {
			if configName == "" || session.ConfigName == configName {
				sessions = append(sessions, session)
			}
		}
	}

	summaries := make([]map[string]interface{}, 0, len(sessions))
	totalRovers, totalLost := 0, 0
	for _, session := range sessions {
		state := session.MissionState
		if state == nil || state.Grid == nil {
			continue
		}
		totalRovers += state.TotalRovers
		totalLost += state.LostRovers
		summaries = append(summaries, map[string]interface{}{
			"session_id":     session.ID,
			"config_name":    session.ConfigName,
			"grid":           state.Grid,
			"total_rovers":   state.TotalRovers,
			"lost_rovers":    state.LostRovers,
			"saves":          state.Saves,
			"created_at":     session.CreatedAt,
			"last_accessed":  session.LastAccessedAt,
			"lost_positions": state.Grid.LostPositions(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":        len(summaries),
		"total_rovers": totalRovers,
		"lost_rovers":  totalLost,
		"sessions":     summaries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}
