// Package memory provides an in-process worksheet store for development
// runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/antyra/ranksync/internal/sheet"
)

type cellKey struct {
	row, col int
}

// Store keeps worksheet grids and fills in memory. It implements both
// sheet.Store and sheet.BulkWriter. Unknown worksheets read as empty.
type Store struct {
	mu    sync.Mutex
	grids map[string][][]string
	fills map[string]map[cellKey]sheet.Color
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		grids: map[string][][]string{},
		fills: map[string]map[cellKey]sheet.Color{},
	}
}

// Seed replaces the grid behind ref.
func (s *Store) Seed(ref sheet.Ref, grid [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[ref.String()] = copyGrid(grid)
}

// ReadGrid returns a copy of the stored grid.
func (s *Store) ReadGrid(_ context.Context, ref sheet.Ref) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGrid(s.grids[ref.String()]), nil
}

// UpdateCell sets one cell, growing the grid as needed.
func (s *Store) UpdateCell(_ context.Context, ref sheet.Ref, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ref.String()
	grid := s.grids[key]
	for len(grid) <= row {
		grid = append(grid, nil)
	}
	for len(grid[row]) <= col {
		grid[row] = append(grid[row], "")
	}
	grid[row][col] = value
	s.grids[key] = grid
	return nil
}

// UpdateGrid replaces rows starting at the 0-based grid row.
func (s *Store) UpdateGrid(_ context.Context, ref sheet.Ref, startRow int, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ref.String()
	grid := s.grids[key]
	for len(grid) < startRow+len(values) {
		grid = append(grid, nil)
	}
	for i, row := range values {
		grid[startRow+i] = append([]string(nil), row...)
	}
	s.grids[key] = grid
	return nil
}

// ClearBackgrounds removes fills across the data block under the header.
func (s *Store) ClearBackgrounds(_ context.Context, ref sheet.Ref, rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fills := s.fills[ref.String()]
	for k := range fills {
		if k.row >= 1 && k.row < 1+rows && k.col < cols {
			delete(fills, k)
		}
	}
	return nil
}

// ApplyBackgrounds records the given fills.
func (s *Store) ApplyBackgrounds(_ context.Context, ref sheet.Ref, highlights []sheet.Highlight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ref.String()
	fills := s.fills[key]
	if fills == nil {
		fills = map[cellKey]sheet.Color{}
		s.fills[key] = fills
	}
	for _, h := range highlights {
		fills[cellKey{row: h.Row, col: h.Col}] = h.Color
	}
	return nil
}

// Grid returns a copy of the current grid for assertions.
func (s *Store) Grid(ref sheet.Ref) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGrid(s.grids[ref.String()])
}

// Fill reports the fill on one cell, if any.
func (s *Store) Fill(ref sheet.Ref, row, col int) (sheet.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.fills[ref.String()][cellKey{row: row, col: col}]
	return c, ok
}

// FillCount reports how many cells of the worksheet carry a fill.
func (s *Store) FillCount(ref sheet.Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fills[ref.String()])
}

func copyGrid(grid [][]string) [][]string {
	out := make([][]string, 0, len(grid))
	for _, row := range grid {
		out = append(out, append([]string(nil), row...))
	}
	return out
}
