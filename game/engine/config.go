package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateMissionConfig validates a mission configuration for correctness
func ValidateMissionConfig(config *MissionConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate grid size
	if config.Width < MinGridSize || config.Height < MinGridSize {
		return fmt.Errorf("config validation: width and height must be at least %d, got %dx%d",
			MinGridSize, config.Width, config.Height)
	}

	// Validate seeded lost positions
	seen := make(map[Position]bool, len(config.LostPositions))
	for _, p := range config.LostPositions {
		if p.X < 0 || p.X > config.Width || p.Y < 0 || p.Y > config.Height {
			return fmt.Errorf("config validation: lost position (%d,%d) is outside the %dx%d grid",
				p.X, p.Y, config.Width, config.Height)
		}
		if seen[p] {
			return fmt.Errorf("config validation: lost position (%d,%d) is listed twice", p.X, p.Y)
		}
		seen[p] = true
	}

	// Validate planned rovers
	for i, plan := range config.Rovers {
		if _, err := ParseOrientation(string(plan.Orientation)); err != nil {
			return fmt.Errorf("config validation: rover %d: %v", i+1, err)
		}
		if plan.Instructions == "" {
			return fmt.Errorf("config validation: rover %d: instructions are required", i+1)
		}
		if _, err := ParseInstructions(plan.Instructions); err != nil {
			return fmt.Errorf("config validation: rover %d: %v", i+1, err)
		}
	}

	return nil
}

// LoadMissionConfig loads a mission configuration from a JSON file
func LoadMissionConfig(filename string) (*MissionConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config MissionConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateMissionConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultMissionConfig returns the 5x3 sample mission
func DefaultMissionConfig() *MissionConfig {
	return &MissionConfig{
		Name:        "sample",
		Description: "5x3 plateau with the three sample rovers",
		Width:       5,
		Height:      3,
		Rovers: []RoverPlan{
			{X: 1, Y: 1, Orientation: East, Instructions: "RFRFRFRF"},
			{X: 3, Y: 2, Orientation: North, Instructions: "FRRFLLFFRRFLL"},
			{X: 0, Y: 3, Orientation: West, Instructions: "LLFFFLFLFL"},
		},
	}
}

// InitMissionStateFromConfig creates a fresh mission state for the configuration
func InitMissionStateFromConfig(config *MissionConfig) (*MissionState, error) {
	if config == nil {
		config = DefaultMissionConfig()
	}

	grid, err := NewGridWithLost(config.Width, config.Height, config.LostPositions)
	if err != nil {
		return nil, err
	}

	return &MissionState{
		Grid:       grid,
		Reports:    []Report{},
		ConfigName: config.Name,
	}, nil
}
