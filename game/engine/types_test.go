package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantErr       bool
	}{
		{"sample", 5, 3, false},
		{"single cell", 1, 1, false},
		{"zero width", 0, 3, true},
		{"zero height", 5, 0, true},
		{"negative", -2, 4, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			grid, err := NewGrid(test.width, test.height)
			if test.wantErr {
				if !errors.Is(err, ErrInvalidGrid) {
					t.Errorf("Expected ErrInvalidGrid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewGrid failed: %v", err)
			}
			if grid.LostCount() != 0 {
				t.Error("New grid should have empty lost memory")
			}
		})
	}
}

func TestNewGridWithLost_RejectsOffGridSeed(t *testing.T) {
	_, err := NewGridWithLost(5, 3, []Position{{5, 4}})
	if !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Expected ErrInvalidSeed, got %v", err)
	}
}

func TestGrid_InBoundsInclusive(t *testing.T) {
	grid := mustGrid(t, 5, 3)

	inside := []Position{{0, 0}, {5, 3}, {5, 0}, {0, 3}, {2, 2}}
	for _, p := range inside {
		if !grid.InBounds(p) {
			t.Errorf("%v should be in bounds", p)
		}
	}

	outside := []Position{{-1, 0}, {6, 0}, {0, 4}, {0, -1}}
	for _, p := range outside {
		if grid.InBounds(p) {
			t.Errorf("%v should be out of bounds", p)
		}
	}
}

func TestGrid_LostPositionsSorted(t *testing.T) {
	grid := mustGrid(t, 5, 3, Position{4, 3}, Position{0, 3}, Position{5, 0})

	expected := []Position{{5, 0}, {0, 3}, {4, 3}}
	if diff := cmp.Diff(expected, grid.LostPositions()); diff != "" {
		t.Errorf("LostPositions mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid_Clone(t *testing.T) {
	grid := mustGrid(t, 5, 3, Position{1, 1})
	clone := grid.Clone()

	MoveForward(clone, NewRover(5, 3, North))

	if grid.LostCount() != 1 {
		t.Error("Mutating the clone should not affect the original")
	}
	if clone.LostCount() != 2 {
		t.Errorf("Expected clone to have 2 lost positions, got %d", clone.LostCount())
	}
}

func TestGrid_JSONKeepsMemory(t *testing.T) {
	grid := mustGrid(t, 5, 3, Position{3, 3})

	data, err := json.Marshal(grid)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"lost_positions":[{"x":3,"y":3}]`) {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var restored Grid
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// The restored memory must still save a rover at (3,3)
	final := ApplyInstructions(&restored, NewRover(0, 3, West), mustProgram(t, "LLFFFLFLFL"))
	if FormatRover(final) != "2 3 S" {
		t.Errorf("Expected '2 3 S' on restored grid, got %q", FormatRover(final))
	}
}

func TestParseOrientation(t *testing.T) {
	for _, s := range []string{"N", "E", "S", "W"} {
		if o, err := ParseOrientation(s); err != nil || string(o) != s {
			t.Errorf("ParseOrientation(%q) = %q, %v", s, o, err)
		}
	}
	for _, s := range []string{"", "n", "NE", "X"} {
		if _, err := ParseOrientation(s); !errors.Is(err, ErrInvalidOrientation) {
			t.Errorf("ParseOrientation(%q): expected ErrInvalidOrientation, got %v", s, err)
		}
	}
}

func TestParseInstructions(t *testing.T) {
	program, err := ParseInstructions("LRF")
	if err != nil {
		t.Fatalf("ParseInstructions failed: %v", err)
	}
	if diff := cmp.Diff([]Instruction{TurnLeft, TurnRight, Forward}, program); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}
	if FormatProgram(program) != "LRF" {
		t.Errorf("FormatProgram: got %q", FormatProgram(program))
	}

	_, err = ParseInstructions("FFxF")
	if !errors.Is(err, ErrInvalidInstruction) {
		t.Fatalf("Expected ErrInvalidInstruction, got %v", err)
	}
	if !strings.Contains(err.Error(), "position 3") {
		t.Errorf("Expected error to name the position, got %v", err)
	}
}

func TestFormatRover(t *testing.T) {
	if got := FormatRover(Rover{X: 1, Y: 1, Orientation: East}); got != "1 1 E" {
		t.Errorf("got %q", got)
	}
	if got := FormatRover(Rover{X: 3, Y: 3, Orientation: North, Lost: true}); got != "3 3 N LOST" {
		t.Errorf("got %q", got)
	}
}

func TestNewRover_AcceptsOutOfBoundsStart(t *testing.T) {
	rover := NewRover(-4, 99, South)
	if rover.X != -4 || rover.Y != 99 || rover.Lost {
		t.Errorf("Unexpected rover: %+v", rover)
	}
}
