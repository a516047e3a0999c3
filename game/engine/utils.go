package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidInstruction = errors.New("invalid instruction")
)

// NewRover creates a rover that is not lost. The position is not checked
// against any grid.
func NewRover(x, y int, o Orientation) Rover {
	return Rover{X: x, Y: y, Orientation: o}
}

// ParseOrientation parses one of N, E, S, W
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(s); o {
	case North, East, South, West:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
}

// ParseInstructions converts an instruction string into a program
func ParseInstructions(s string) ([]Instruction, error) {
	program := make([]Instruction, 0, len(s))
	for i, c := range s {
		switch in := Instruction(c); in {
		case TurnLeft, TurnRight, Forward:
			program = append(program, in)
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidInstruction, c, i+1)
		}
	}
	return program, nil
}

// FormatProgram renders a program back to its string form
func FormatProgram(program []Instruction) string {
	var b strings.Builder
	for _, in := range program {
		b.WriteRune(rune(in))
	}
	return b.String()
}

// FormatRover renders "<x> <y> <orientation>" with a LOST suffix when lost
func FormatRover(r Rover) string {
	s := fmt.Sprintf("%d %d %s", r.X, r.Y, r.Orientation)
	if r.Lost {
		s += " " + LostSuffix
	}
	return s
}

// CountLost counts lost rovers in a report list
func CountLost(reports []Report) int {
	count := 0
	for _, r := range reports {
		if r.Final.Lost {
			count++
		}
	}
	return count
}

// CountSaves counts ignored off-grid moves across a report list
func CountSaves(reports []Report) int {
	count := 0
	for _, r := range reports {
		count += r.Saves
	}
	return count
}

// DescribePosition explains what the grid knows about p
func DescribePosition(g *Grid, p Position) PositionInfo {
	info := PositionInfo{
		Position:     p,
		InBounds:     g.InBounds(p),
		LostPosition: g.IsLostPosition(p),
		Edge:         g.IsEdge(p),
	}

	switch {
	case !info.InBounds:
		info.Description = fmt.Sprintf("Off grid - valid range is (0,0) to (%d,%d)", g.Width, g.Height)
	case info.LostPosition:
		info.Description = "A rover was lost from here - off-grid moves from this position are ignored"
	case info.Edge:
		info.Description = "Grid edge - a forward move outward will lose the rover"
	default:
		info.Description = "Interior position - safe in every direction"
	}
	return info
}
