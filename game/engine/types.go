package engine

import (
	"encoding/json"
	"sort"
	"time"
)

// Orientation is the compass heading of a rover
type Orientation string

const (
	North Orientation = "N"
	East  Orientation = "E"
	South Orientation = "S"
	West  Orientation = "W"
)

// Instruction is a single rover command character
type Instruction rune

const (
	TurnLeft  Instruction = 'L'
	TurnRight Instruction = 'R'
	Forward   Instruction = 'F'
)

// StepOutcome describes what a single instruction did to the rover
type StepOutcome string

const (
	OutcomeTurned  StepOutcome = "turned"
	OutcomeMoved   StepOutcome = "moved"
	OutcomeLost    StepOutcome = "lost"
	OutcomeIgnored StepOutcome = "ignored" // off-grid move skipped thanks to lost memory
)

const (
	// Validation constants
	MinGridSize = 1
	LostSuffix  = "LOST"
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is the bounded plateau rovers drive on. It spans [0,Width] x [0,Height]
// inclusive and remembers the positions rovers were lost from.
type Grid struct {
	Width  int
	Height int

	lost map[Position]struct{}
}

type gridJSON struct {
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	LostPositions []Position `json:"lost_positions"`
}

// MarshalJSON encodes the grid with its lost positions in a stable order
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{
		Width:         g.Width,
		Height:        g.Height,
		LostPositions: g.LostPositions(),
	})
}

// UnmarshalJSON restores a grid, including its lost-position memory
func (g *Grid) UnmarshalJSON(data []byte) error {
	var raw gridJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Width = raw.Width
	g.Height = raw.Height
	g.lost = make(map[Position]struct{}, len(raw.LostPositions))
	for _, p := range raw.LostPositions {
		g.lost[p] = struct{}{}
	}
	return nil
}

// Rover is a positioned, oriented vehicle. Rovers are values; every
// transition returns a new Rover.
type Rover struct {
	X           int         `json:"x"`
	Y           int         `json:"y"`
	Orientation Orientation `json:"orientation"`
	Lost        bool        `json:"lost"`
}

// Position returns the rover's coordinates
func (r Rover) Position() Position {
	return Position{X: r.X, Y: r.Y}
}

// Step is the trace of a single executed instruction
type Step struct {
	Idx         int         `json:"idx"`
	Instruction string      `json:"instruction"`
	From        Position    `json:"from"`
	To          Position    `json:"to"`
	Orientation Orientation `json:"orientation"`
	Outcome     StepOutcome `json:"outcome"`
}

// Report is the outcome of deploying one rover
type Report struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	Start        Rover     `json:"start"`
	Instructions string    `json:"instructions"`
	Final        Rover     `json:"final"`
	Executed     int       `json:"executed"`
	Saves        int       `json:"saves"`
	Steps        []Step    `json:"steps,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// String renders the report in the "<x> <y> <orientation> [LOST]" format
func (r Report) String() string {
	return FormatRover(r.Final)
}

// RoverPlan is a rover deployment listed in a mission configuration
type RoverPlan struct {
	X            int         `json:"x"`
	Y            int         `json:"y"`
	Orientation  Orientation `json:"orientation"`
	Instructions string      `json:"instructions"`
}

// MissionConfig represents a mission scenario loaded from JSON
type MissionConfig struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	LostPositions []Position  `json:"lost_positions,omitempty"`
	Rovers        []RoverPlan `json:"rovers,omitempty"`
}

// MissionState represents the complete state of a mission
type MissionState struct {
	Grid        *Grid    `json:"grid"`
	Reports     []Report `json:"reports"`
	TotalRovers int      `json:"total_rovers"`
	LostRovers  int      `json:"lost_rovers"`
	Saves       int      `json:"saves"`
	ConfigName  string   `json:"config_name"`
}

// PositionInfo describes a single grid coordinate
type PositionInfo struct {
	Position     Position `json:"position"`
	InBounds     bool     `json:"in_bounds"`
	LostPosition bool     `json:"lost_position"`
	Edge         bool     `json:"edge"`
	Description  string   `json:"description"`
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}
