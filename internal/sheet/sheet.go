// Package sheet defines the worksheet access layer used by the sync engine.
package sheet

import (
	"context"
	"fmt"
)

// Ref addresses one worksheet inside a spreadsheet.
type Ref struct {
	SpreadsheetID string
	SheetID       int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.SpreadsheetID, r.SheetID)
}

// Color is an RGB fill with channels in [0,1].
type Color struct {
	Red   float64
	Green float64
	Blue  float64
}

// Fills used for rank highlights.
var (
	// ColorBest marks the best-ranked cell of a keyword row, RGB 183,215,168.
	ColorBest = Color{Red: 183.0 / 255.0, Green: 215.0 / 255.0, Blue: 168.0 / 255.0}
	// ColorReference marks the reference-domain cell, RGB 255,235,156.
	ColorReference = Color{Red: 1, Green: 235.0 / 255.0, Blue: 156.0 / 255.0}
	// ColorClear resets a cell fill to white.
	ColorClear = Color{Red: 1, Green: 1, Blue: 1}
)

// Highlight paints one cell. Row and Col are 0-based grid coordinates with
// the header at row 0.
type Highlight struct {
	Row   int
	Col   int
	Color Color
}

// Store reads and writes one worksheet. All coordinates are 0-based grid
// positions counting the header row.
type Store interface {
	ReadGrid(ctx context.Context, ref Ref) ([][]string, error)
	UpdateCell(ctx context.Context, ref Ref, row, col int, value string) error
	// ClearBackgrounds resets fills on the data block: rows data rows
	// below the header, cols columns from the left edge.
	ClearBackgrounds(ctx context.Context, ref Ref, rows, cols int) error
	ApplyBackgrounds(ctx context.Context, ref Ref, highlights []Highlight) error
}

// BulkWriter is implemented by stores that can replace a block of rows in
// one call. startRow is the 0-based grid row the first value row lands on.
type BulkWriter interface {
	UpdateGrid(ctx context.Context, ref Ref, startRow int, values [][]string) error
}

// ColumnLetter renders a 0-based column index in A1 notation.
func ColumnLetter(col int) string {
	letters := ""
	for col >= 0 {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
	}
	return letters
}
