package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for mission operations
type Engine interface {
	// Mission state management
	GetState() *MissionState
	SetState(state *MissionState) error
	Reset() *MissionState
	Grid() *Grid
	SetGrid(g *Grid) error

	// Rover operations
	Deploy(start Rover, program []Instruction) Report
	RunPlan() ([]Report, error)

	// Configuration
	GetConfig() *MissionConfig
	SetConfig(config *MissionConfig) error

	// History
	GetReports() []Report
	GetLastReport() *Report

	// Inspection
	DescribePosition(p Position) PositionInfo
}

// MissionEngine implements the Engine interface
type MissionEngine struct {
	state  *MissionState
	config *MissionConfig
}

// NewEngine creates a new mission engine with the provided configuration
func NewEngine(config *MissionConfig) (*MissionEngine, error) {
	if err := ValidateMissionConfig(config); err != nil {
		return nil, err
	}

	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		return nil, err
	}

	return &MissionEngine{
		config: config,
		state:  state,
	}, nil
}

// GetState returns the current mission state
func (e *MissionEngine) GetState() *MissionState {
	return e.state
}

// SetState sets the mission state (used for persistence loading)
func (e *MissionEngine) SetState(state *MissionState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil {
		return fmt.Errorf("state grid cannot be nil")
	}
	if err := checkGridSize(state.Grid); err != nil {
		return err
	}
	if state.Grid.lost == nil {
		state.Grid.lost = make(map[Position]struct{})
	}
	e.state = state
	e.refreshTotals()
	return nil
}

// Reset restores the grid and its lost memory to the configured seeds and
// clears the report history
func (e *MissionEngine) Reset() *MissionState {
	state, err := InitMissionStateFromConfig(e.config)
	if err != nil {
		// config was validated on the way in
		state, _ = InitMissionStateFromConfig(DefaultMissionConfig())
	}
	e.state = state
	return e.state
}

// Grid returns the active grid
func (e *MissionEngine) Grid() *Grid {
	return e.state.Grid
}

// SetGrid replaces the active grid. Reports already produced are kept.
func (e *MissionEngine) SetGrid(g *Grid) error {
	if g == nil {
		return fmt.Errorf("grid cannot be nil")
	}
	if err := checkGridSize(g); err != nil {
		return err
	}
	e.state.Grid = g
	return nil
}

// Deploy runs one rover against the active grid and records its report
func (e *MissionEngine) Deploy(start Rover, program []Instruction) Report {
	final, steps := Run(e.state.Grid, start, program)

	saves := 0
	for _, s := range steps {
		if s.Outcome == OutcomeIgnored {
			saves++
		}
	}

	report := Report{
		ID:           uuid.New().String(),
		Sequence:     len(e.state.Reports) + 1,
		Start:        start,
		Instructions: FormatProgram(program),
		Final:        final,
		Executed:     len(steps),
		Saves:        saves,
		Steps:        steps,
		Timestamp:    time.Now(),
	}

	e.state.Reports = append(e.state.Reports, report)
	e.refreshTotals()
	return report
}

// RunPlan deploys every rover listed in the configuration, in order
func (e *MissionEngine) RunPlan() ([]Report, error) {
	if e.config == nil {
		return nil, fmt.Errorf("no mission config")
	}

	reports := make([]Report, 0, len(e.config.Rovers))
	for i, plan := range e.config.Rovers {
		program, err := ParseInstructions(plan.Instructions)
		if err != nil {
			return reports, fmt.Errorf("rover %d: %w", i+1, err)
		}
		reports = append(reports, e.Deploy(NewRover(plan.X, plan.Y, plan.Orientation), program))
	}
	return reports, nil
}

// GetConfig returns the current mission configuration
func (e *MissionEngine) GetConfig() *MissionConfig {
	return e.config
}

// SetConfig sets a new mission configuration and resets the mission
func (e *MissionEngine) SetConfig(config *MissionConfig) error {
	if err := ValidateMissionConfig(config); err != nil {
		return err
	}

	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		return err
	}

	e.config = config
	e.state = state
	return nil
}

// GetReports returns every report produced since the last reset
func (e *MissionEngine) GetReports() []Report {
	return e.state.Reports
}

// GetLastReport returns the most recent report, or nil if no rover has run
func (e *MissionEngine) GetLastReport() *Report {
	if len(e.state.Reports) == 0 {
		return nil
	}
	return &e.state.Reports[len(e.state.Reports)-1]
}

// DescribePosition explains what the active grid knows about p
func (e *MissionEngine) DescribePosition(p Position) PositionInfo {
	return DescribePosition(e.state.Grid, p)
}

func (e *MissionEngine) refreshTotals() {
	e.state.TotalRovers = len(e.state.Reports)
	e.state.LostRovers = CountLost(e.state.Reports)
	e.state.Saves = CountSaves(e.state.Reports)
}
