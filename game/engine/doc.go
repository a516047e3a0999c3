// Package engine provides the rover simulation core for the Mars Rovers mission server.
//
// The engine package implements:
//   - Grid bounds and the lost-position memory
//   - Orientation turns and forward movement
//   - Lost detection and rescue at previously lost positions
//   - The instruction-sequence reducer and per-step traces
//   - Mission configuration loading and validation
//
// Core Types:
//
// Grid is a rectangle spanning [0,Width] x [0,Height] that remembers where
// rovers fell off. Rover is a value holding position, orientation and the lost
// flag. MissionEngine wraps a grid and the reports of every deployed rover,
// configured by a MissionConfig loaded from JSON.
//
// Usage:
//
//	grid, err := engine.NewGrid(5, 3)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	program, _ := engine.ParseInstructions("FRRFLLFFRRFLL")
//	final := engine.ApplyInstructions(grid, engine.NewRover(3, 2, engine.North), program)
//	fmt.Println(engine.FormatRover(final)) // 3 3 N LOST
//
// Rules:
//
// A forward move that would leave the grid loses the rover at its last valid
// position and records that position on the grid. A later rover standing on a
// recorded position ignores the same off-grid move. Once lost, a rover ignores
// the rest of its instructions. Rovers on one grid run one at a time.
package engine
