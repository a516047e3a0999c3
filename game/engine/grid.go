package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGrid = errors.New("invalid grid")
	ErrInvalidSeed = errors.New("lost position outside grid")
)

// NewGrid creates a grid with an empty lost-position memory.
// Width and height must both be at least MinGridSize.
func NewGrid(width, height int) (*Grid, error) {
	if err := checkGridSize(&Grid{Width: width, Height: height}); err != nil {
		return nil, err
	}
	return &Grid{
		Width:  width,
		Height: height,
		lost:   make(map[Position]struct{}),
	}, nil
}

// NewGridWithLost creates a grid whose memory already holds the given lost positions
func NewGridWithLost(width, height int, lost []Position) (*Grid, error) {
	g, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	for _, p := range lost {
		if !g.InBounds(p) {
			return nil, fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrInvalidSeed, p.X, p.Y, width, height)
		}
		g.lost[p] = struct{}{}
	}
	return g, nil
}

// InBounds reports whether p lies within [0,Width] x [0,Height]
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X <= g.Width && p.Y >= 0 && p.Y <= g.Height
}

// IsLostPosition reports whether a rover has already been lost from p
func (g *Grid) IsLostPosition(p Position) bool {
	_, ok := g.lost[p]
	return ok
}

// LostPositions returns the remembered positions sorted by y, then x
func (g *Grid) LostPositions() []Position {
	out := make([]Position, 0, len(g.lost))
	for p := range g.lost {
		out = append(out, p)
	}
	sortPositions(out)
	return out
}

// LostCount returns the number of remembered positions
func (g *Grid) LostCount() int {
	return len(g.lost)
}

// Clone returns an independent copy of the grid and its memory
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Width:  g.Width,
		Height: g.Height,
		lost:   make(map[Position]struct{}, len(g.lost)),
	}
	for p := range g.lost {
		c.lost[p] = struct{}{}
	}
	return c
}

// IsEdge reports whether p is on the grid boundary
func (g *Grid) IsEdge(p Position) bool {
	if !g.InBounds(p) {
		return false
	}
	return p.X == 0 || p.Y == 0 || p.X == g.Width || p.Y == g.Height
}

// markLost records p in the lost-position memory. MoveForward is the only caller.
func (g *Grid) markLost(p Position) {
	if g.lost == nil {
		g.lost = make(map[Position]struct{})
	}
	g.lost[p] = struct{}{}
}

// checkGridSize rejects grids restored without going through NewGrid
func checkGridSize(g *Grid) error {
	if g.Width < MinGridSize || g.Height < MinGridSize {
		return fmt.Errorf("%w: dimensions must be at least %d, got %dx%d", ErrInvalidGrid, MinGridSize, g.Width, g.Height)
	}
	return nil
}
