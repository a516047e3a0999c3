package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mars-rovers/game/engine"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrNoGrid          = errors.New("instructions received before any grid definition")
	ErrNoRover         = errors.New("instructions received before any rover definition")
)

// Kind identifies the type of an input record
type Kind string

const (
	KindGrid    Kind = "grid"
	KindRover   Kind = "rover"
	KindProgram Kind = "program"
)

// Record is one parsed, non-blank input line
type Record interface {
	Kind() Kind
}

// GridRecord defines (or replaces) the active grid
type GridRecord struct {
	Width  int
	Height int
}

// RoverRecord defines (or replaces) the current rover
type RoverRecord struct {
	X           int
	Y           int
	Orientation engine.Orientation
}

// ProgramRecord runs the current rover on the current grid
type ProgramRecord struct {
	Program []engine.Instruction
}

func (GridRecord) Kind() Kind    { return KindGrid }
func (RoverRecord) Kind() Kind   { return KindRover }
func (ProgramRecord) Kind() Kind { return KindProgram }

// Parse turns a line into a record. Blank lines yield a nil record and no error.
func Parse(line string) (Record, error) {
	fields := strings.Fields(line)

	switch len(fields) {
	case 0:
		return nil, nil

	case 1:
		program, err := engine.ParseInstructions(fields[0])
		if err != nil {
			return nil, malformed(line, err)
		}
		return ProgramRecord{Program: program}, nil

	case 2:
		width, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, malformed(line, err)
		}
		height, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed(line, err)
		}
		return GridRecord{Width: width, Height: height}, nil

	case 3:
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, malformed(line, err)
		}
		y, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed(line, err)
		}
		o, err := engine.ParseOrientation(fields[2])
		if err != nil {
			return nil, malformed(line, err)
		}
		return RoverRecord{X: x, Y: y, Orientation: o}, nil
	}

	return nil, fmt.Errorf("%w: '%s' is an unknown instruction (expected 1, 2 or 3 fields, got %d)",
		ErrMalformedRecord, line, len(fields))
}

func malformed(line string, cause error) error {
	return fmt.Errorf("%w: '%s': %v", ErrMalformedRecord, line, cause)
}
