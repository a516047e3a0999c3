package engine

var leftOf = map[Orientation]Orientation{
	North: West,
	West:  South,
	South: East,
	East:  North,
}

var rightOf = map[Orientation]Orientation{
	North: East,
	East:  South,
	South: West,
	West:  North,
}

// Turn rotates the rover 90 degrees. Instructions other than L and R
// leave the rover unchanged.
func Turn(r Rover, dir Instruction) Rover {
	switch dir {
	case TurnLeft:
		r.Orientation = leftOf[r.Orientation]
	case TurnRight:
		r.Orientation = rightOf[r.Orientation]
	}
	return r
}

// ahead returns the position one unit in front of the rover
func ahead(r Rover) Position {
	p := r.Position()
	switch r.Orientation {
	case North:
		p.Y++
	case South:
		p.Y--
	case East:
		p.X++
	case West:
		p.X--
	}
	return p
}

// MoveForward steps the rover one unit in its current orientation.
//
// If the step would leave the grid and a rover was already lost from the
// current position, the move is ignored. Otherwise the current position is
// recorded in the grid's memory and the rover is returned lost, at its last
// valid position.
func MoveForward(g *Grid, r Rover) Rover {
	moved, _ := moveForward(g, r)
	return moved
}

func moveForward(g *Grid, r Rover) (Rover, StepOutcome) {
	next := ahead(r)
	if g.InBounds(next) {
		r.X, r.Y = next.X, next.Y
		return r, OutcomeMoved
	}

	if g.IsLostPosition(r.Position()) {
		return r, OutcomeIgnored
	}

	g.markLost(r.Position())
	r.Lost = true
	return r, OutcomeLost
}

// ApplyInstructions runs the program left to right and returns the final
// rover. Processing stops as soon as the rover is lost.
func ApplyInstructions(g *Grid, r Rover, program []Instruction) Rover {
	final, _ := Run(g, r, program)
	return final
}

// Run is ApplyInstructions with a per-instruction trace
func Run(g *Grid, r Rover, program []Instruction) (Rover, []Step) {
	steps := make([]Step, 0, len(program))

	for i, in := range program {
		if r.Lost {
			break
		}

		from := r.Position()
		var outcome StepOutcome

		switch in {
		case Forward:
			r, outcome = moveForward(g, r)
		case TurnLeft, TurnRight:
			r = Turn(r, in)
			outcome = OutcomeTurned
		default:
			continue
		}

		steps = append(steps, Step{
			Idx:         i + 1,
			Instruction: string(in),
			From:        from,
			To:          r.Position(),
			Orientation: r.Orientation,
			Outcome:     outcome,
		})
	}

	return r, steps
}
