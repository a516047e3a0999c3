package service

import (
	"time"

	"github.com/wricardo/mars-rovers/game/engine"
)

// SessionInfo provides information about a mission session
type SessionInfo struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	MissionState   *engine.MissionState  `json:"mission_state"`
	MissionConfig  *engine.MissionConfig `json:"mission_config"`
}

// DeployRequest describes a single rover deployment
type DeployRequest struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Orientation  string `json:"orientation"`
	Instructions string `json:"instructions"`
}

// DeployResult contains the outcome of one rover deployment
type DeployResult struct {
	Success      bool                 `json:"success"` // false when the rover was lost
	Report       engine.Report        `json:"report"`
	Output       string               `json:"output"`
	MissionState *engine.MissionState `json:"mission_state"`
	Message      string               `json:"message"`
	Events       []MissionEvent       `json:"events,omitempty"`
}

// ScriptResult contains the outcome of a multi-line record script
type ScriptResult struct {
	LinesProcessed int                  `json:"lines_processed"`
	Reports        []engine.Report      `json:"reports"`
	Output         []string             `json:"output"`
	MissionState   *engine.MissionState `json:"mission_state"`
	Events         []MissionEvent       `json:"events,omitempty"`
	Completed      bool                 `json:"completed"`
	StoppedOnLine  int                  `json:"stopped_on_line,omitempty"` // 1-based
	StoppedReason  string               `json:"stopped_reason,omitempty"`
}

// PlanResult contains the outcome of running a config's rover plan
type PlanResult struct {
	Reports      []engine.Report      `json:"reports"`
	Output       []string             `json:"output"`
	MissionState *engine.MissionState `json:"mission_state"`
	Events       []MissionEvent       `json:"events,omitempty"`
}

// MissionEvent represents something that happened during a mission
type MissionEvent struct {
	Type      string          `json:"type"` // "deploy", "move", "lost", "saved", "reset", "grid_replaced"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// Event types
const (
	EventDeploy       = "deploy"
	EventMove         = "move"
	EventLost         = "lost"
	EventSaved        = "saved"
	EventReset        = "reset"
	EventGridReplaced = "grid_replaced"
)

// HistoryOptions configures report history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated rover reports
type HistoryResponse struct {
	Reports      []engine.Report `json:"reports"`
	TotalReports int             `json:"total_reports"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalPages   int             `json:"total_pages"`
	HasNext      bool            `json:"has_next"`
	HasPrevious  bool            `json:"has_previous"`
}

// ConfigInfo provides information about a mission configuration
type ConfigInfo struct {
	Filename      string `json:"filename"`
	ConfigID      string `json:"config_id"` // The identifier to use for session creation
	Name          string `json:"name"`      // Display name
	Description   string `json:"description"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	SeededLost    int    `json:"seeded_lost"`
	PlannedRovers int    `json:"planned_rovers"`
}
