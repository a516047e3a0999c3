// Package input parses mission record lines and drives the engine with them.
//
// A mission script is a sequence of lines:
//
//	5 3          grid definition (width height)
//	1 1 E        rover definition (x y orientation)
//	RFRFRFRF     instructions for the current rover
//
// Blank lines are ignored. Any line that is not 1, 2 or 3 whitespace
// separated fields, or whose fields do not parse, is ErrMalformedRecord.
// Instructions before a grid or rover definition fail with ErrNoGrid or
// ErrNoRover.
package input
