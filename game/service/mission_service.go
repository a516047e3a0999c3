package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mars-rovers/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// MissionService defines all mission-related operations
type MissionService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Rover Operations
	Deploy(ctx context.Context, sessionID string, req DeployRequest) (*DeployResult, error)
	RunScript(ctx context.Context, sessionID, script string) (*ScriptResult, error)
	RunPlan(ctx context.Context, sessionID string) (*PlanResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.MissionState, error)

	// Mission State
	GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error)
	GetReports(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribePosition(ctx context.Context, sessionID string, p engine.Position) (*engine.PositionInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.MissionConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.MissionConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.MissionConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.MissionConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles mission configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.MissionConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.MissionConfig
	SaveConfig(name string, config *engine.MissionConfig) error
}

// Session represents an active mission: one grid, its lost memory and the
// reports of every rover deployed on it
type Session struct {
	ID             string
	Engine         *engine.MissionEngine
	Config         *engine.MissionConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
