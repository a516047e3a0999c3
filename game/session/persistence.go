package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/mars-rovers/game/engine"
	"github.com/wricardo/mars-rovers/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// The mission config is stored inline so a session survives edits to its
// config file.
type PersistedSessionData struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	MissionConfig  *engine.MissionConfig `json:"mission_config,omitempty"`
	MissionState   *engine.MissionState  `json:"mission_state"`
}

// encodeSession marshals a session for storage
func encodeSession(session *service.Session, configID string) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		MissionConfig:  session.Config,
		MissionState:   session.Engine.GetState(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return jsonData, nil
}

// decodeSession rebuilds a session and its engine from stored JSON
func decodeSession(jsonData []byte, configs service.ConfigManager) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	missionConfig := data.MissionConfig
	if missionConfig == nil {
		var err error
		missionConfig, err = loadConfig(configs, data.ConfigName)
		if err != nil {
			return nil, err
		}
	}

	missionEngine, err := engine.NewEngine(missionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission engine: %w", err)
	}

	if data.MissionState != nil {
		if err := missionEngine.SetState(data.MissionState); err != nil {
			return nil, fmt.Errorf("failed to set mission state: %w", err)
		}
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         missionEngine,
		Config:         missionConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

func loadConfig(configs service.ConfigManager, name string) (*engine.MissionConfig, error) {
	if configs == nil {
		return nil, fmt.Errorf("no config manager to load config '%s'", name)
	}
	missionConfig, err := configs.LoadConfig(name)
	if err == nil {
		return missionConfig, nil
	}
	// The built-in default has no file behind it
	if def := configs.GetDefault(); errors.Is(err, service.ErrConfigNotFound) && def != nil && def.Name == name {
		return def, nil
	}
	return nil, fmt.Errorf("failed to load config '%s': %w", name, err)
}

// configIDFromName returns the config ID (filename without extension) for a display name
func configIDFromName(configs service.ConfigManager, displayName string) string {
	if configs == nil {
		return displayName
	}
	list, err := configs.ListConfigs()
	if err != nil {
		return displayName
	}
	for _, config := range list {
		if config.Name == displayName {
			return config.ConfigID
		}
	}
	// If not found, assume the displayName is already the config ID
	return displayName
}
