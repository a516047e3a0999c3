package input

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/wricardo/mars-rovers/game/engine"
)

// State is the driver's current grid and rover definition. It is passed into
// and returned from every Apply call; nothing is kept between calls.
type State struct {
	Grid  *engine.Grid
	Rover *engine.Rover
}

// Apply folds one record into the state. Program records run the current
// rover on the current grid and return its final position. The rover
// definition itself is left as-is, so a second program record without a new
// rover record starts again from the same place.
func (s State) Apply(rec Record) (State, *engine.Rover, error) {
	switch r := rec.(type) {
	case nil:
		return s, nil, nil

	case GridRecord:
		grid, err := engine.NewGrid(r.Width, r.Height)
		if err != nil {
			return s, nil, err
		}
		s.Grid = grid
		return s, nil, nil

	case RoverRecord:
		rover := engine.NewRover(r.X, r.Y, r.Orientation)
		s.Rover = &rover
		return s, nil, nil

	case ProgramRecord:
		if s.Grid == nil {
			return s, nil, ErrNoGrid
		}
		if s.Rover == nil {
			return s, nil, ErrNoRover
		}
		final := engine.ApplyInstructions(s.Grid, *s.Rover, r.Program)
		return s, &final, nil
	}

	return s, nil, fmt.Errorf("%w: unsupported record %T", ErrMalformedRecord, rec)
}

// ProcessLine parses and applies a single line
func (s State) ProcessLine(line string) (State, *engine.Rover, error) {
	rec, err := Parse(line)
	if err != nil {
		return s, nil, err
	}
	return s.Apply(rec)
}

// LineError wraps a failure with the offending line
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Process reads records from r and writes one report line per program record
// to w. It stops at the first bad record and returns the state reached so far.
func Process(ctx context.Context, r io.Reader, w io.Writer, state State) (State, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		lineNo++
		line := scanner.Text()

		next, final, err := state.ProcessLine(line)
		if err != nil {
			return state, &LineError{Line: lineNo, Text: line, Err: err}
		}
		state = next

		if final != nil {
			if _, err := fmt.Fprintln(w, engine.FormatRover(*final)); err != nil {
				return state, fmt.Errorf("failed to write report: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return state, fmt.Errorf("failed to read input: %w", err)
	}
	return state, nil
}
