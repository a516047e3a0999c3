package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustGrid(t *testing.T, width, height int, lost ...Position) *Grid {
	t.Helper()
	g, err := NewGridWithLost(width, height, lost)
	if err != nil {
		t.Fatalf("NewGridWithLost(%d, %d): %v", width, height, err)
	}
	return g
}

func mustProgram(t *testing.T, s string) []Instruction {
	t.Helper()
	program, err := ParseInstructions(s)
	if err != nil {
		t.Fatalf("ParseInstructions(%q): %v", s, err)
	}
	return program
}

func TestTurn_Table(t *testing.T) {
	tests := []struct {
		from     Orientation
		dir      Instruction
		expected Orientation
	}{
		{North, TurnLeft, West},
		{West, TurnLeft, South},
		{South, TurnLeft, East},
		{East, TurnLeft, North},
		{North, TurnRight, East},
		{East, TurnRight, South},
		{South, TurnRight, West},
		{West, TurnRight, North},
	}

	for _, test := range tests {
		t.Run(string(test.from)+string(test.dir), func(t *testing.T) {
			rover := NewRover(1, 2, test.from)
			turned := Turn(rover, test.dir)
			if turned.Orientation != test.expected {
				t.Errorf("Turn(%s, %c): expected %s, got %s", test.from, test.dir, test.expected, turned.Orientation)
			}
			if turned.X != rover.X || turned.Y != rover.Y {
				t.Errorf("Turn moved the rover from (%d,%d) to (%d,%d)", rover.X, rover.Y, turned.X, turned.Y)
			}
		})
	}
}

func TestTurn_IgnoresForward(t *testing.T) {
	rover := NewRover(1, 1, East)
	if got := Turn(rover, Forward); got != rover {
		t.Errorf("Turn with F changed the rover: %+v", got)
	}
}

func TestMoveForward_WithinGrid(t *testing.T) {
	tests := []struct {
		orientation Orientation
		deltaX      int
		deltaY      int
	}{
		{North, 0, 1},
		{South, 0, -1},
		{East, 1, 0},
		{West, -1, 0},
	}

	for _, test := range tests {
		t.Run(string(test.orientation), func(t *testing.T) {
			grid := mustGrid(t, 5, 6)
			rover := NewRover(2, 2, test.orientation)

			moved := MoveForward(grid, rover)

			if moved.X != rover.X+test.deltaX || moved.Y != rover.Y+test.deltaY {
				t.Errorf("Move %s: expected (%d,%d), got (%d,%d)",
					test.orientation, rover.X+test.deltaX, rover.Y+test.deltaY, moved.X, moved.Y)
			}
			if moved.Lost {
				t.Error("Rover should not be lost inside the grid")
			}
			if grid.LostCount() != 0 {
				t.Errorf("Grid memory should be untouched, got %v", grid.LostPositions())
			}
		})
	}
}

func TestMoveForward_ToEdge(t *testing.T) {
	grid := mustGrid(t, 5, 6)

	tests := []struct {
		name     string
		rover    Rover
		expected Position
	}{
		{"north", NewRover(4, 5, North), Position{4, 6}},
		{"south", NewRover(4, 1, South), Position{4, 0}},
		{"west", NewRover(1, 5, West), Position{0, 5}},
		{"east", NewRover(4, 5, East), Position{5, 5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			moved := MoveForward(grid, test.rover)
			if moved.Position() != test.expected {
				t.Errorf("expected %v, got %v", test.expected, moved.Position())
			}
			if moved.Lost {
				t.Error("moving onto the boundary must not lose the rover")
			}
		})
	}
}

func TestMoveForward_OffGridPositive(t *testing.T) {
	grid := mustGrid(t, 2, 2)
	rover := NewRover(2, 2, North)

	moved := MoveForward(grid, rover)

	if !moved.Lost {
		t.Fatal("Expected rover to be lost")
	}
	if moved.Position() != rover.Position() {
		t.Errorf("Lost rover should stay at its last valid position %v, got %v", rover.Position(), moved.Position())
	}
	if !grid.IsLostPosition(Position{2, 2}) {
		t.Error("Expected (2,2) to be recorded as a lost position")
	}
}

func TestMoveForward_OffGridNegative(t *testing.T) {
	grid := mustGrid(t, 2, 2)
	rover := NewRover(2, 0, South)

	moved := MoveForward(grid, rover)

	if !moved.Lost {
		t.Fatal("Expected rover to be lost")
	}
	if diff := cmp.Diff([]Position{{2, 0}}, grid.LostPositions()); diff != "" {
		t.Errorf("lost positions mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveForward_SavedByPreviousRover(t *testing.T) {
	grid := mustGrid(t, 2, 2)
	rover := NewRover(2, 2, North)

	first := MoveForward(grid, rover)
	if !first.Lost {
		t.Fatal("First rover should be lost")
	}

	second := MoveForward(grid, rover)
	if second.Lost {
		t.Error("Second rover should be saved by the first rover's loss")
	}
	if second != rover {
		t.Errorf("Saved rover should not move, got %+v", second)
	}
	if grid.LostCount() != 1 {
		t.Errorf("Expected one lost position, got %d", grid.LostCount())
	}
}

func TestMoveForward_SavedOnlyAtSamePosition(t *testing.T) {
	grid := mustGrid(t, 2, 2, Position{2, 2})

	// Same edge, different cell: no protection
	moved := MoveForward(grid, NewRover(1, 2, North))
	if !moved.Lost {
		t.Error("Rover at (1,2) should not be protected by a loss at (2,2)")
	}

	// Same cell, different direction off the grid: still protected
	moved = MoveForward(grid, NewRover(2, 2, East))
	if moved.Lost {
		t.Error("Lost memory is per position, not per direction")
	}
}

func TestRun_Trace(t *testing.T) {
	grid := mustGrid(t, 5, 3)
	final, steps := Run(grid, NewRover(3, 2, North), mustProgram(t, "FRRFLLFFRRFLL"))

	if !final.Lost {
		t.Fatal("Expected rover to be lost")
	}

	// F (moved), R, R, F (moved), L, L, F (moved), F (lost), then stop
	if len(steps) != 8 {
		t.Fatalf("Expected 8 executed steps, got %d", len(steps))
	}
	last := steps[len(steps)-1]
	if last.Outcome != OutcomeLost {
		t.Errorf("Expected last step to be lost, got %s", last.Outcome)
	}
	if last.Idx != 8 || last.Instruction != "F" {
		t.Errorf("Unexpected last step: %+v", last)
	}
	if steps[1].Outcome != OutcomeTurned || steps[1].Orientation != East {
		t.Errorf("Unexpected second step: %+v", steps[1])
	}
}

func TestRun_SkipsUnknownInstructions(t *testing.T) {
	grid := mustGrid(t, 5, 3)
	final, steps := Run(grid, NewRover(0, 0, North), []Instruction{Forward, 'X', Forward})

	if final.Position() != (Position{0, 2}) {
		t.Errorf("Expected (0,2), got %v", final.Position())
	}
	if len(steps) != 2 {
		t.Errorf("Expected 2 steps, got %d", len(steps))
	}
}
