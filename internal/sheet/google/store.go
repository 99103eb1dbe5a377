// Package google implements the worksheet store on the Google Sheets API.
package google

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/antyra/ranksync/internal/sheet"
)

// Store reads and writes worksheets through the Sheets API. Worksheet
// titles are resolved from sheet IDs once and cached for the process
// lifetime.
type Store struct {
	svc    *sheets.Service
	logger *zap.Logger

	mu     sync.Mutex
	titles map[string]string
}

// New builds a Store authorized by a service account credentials file.
func New(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Store, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{svc: svc, logger: logger, titles: map[string]string{}}, nil
}

// ReadGrid fetches the worksheet's whole used range as strings.
func (s *Store) ReadGrid(ctx context.Context, ref sheet.Ref) ([][]string, error) {
	title, err := s.sheetTitle(ctx, ref)
	if err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(ref.SpreadsheetID, fmt.Sprintf("'%s'", title)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", ref, err)
	}
	grid := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// UpdateCell writes one cell. row and col are 0-based grid coordinates.
func (s *Store) UpdateCell(ctx context.Context, ref sheet.Ref, row, col int, value string) error {
	title, err := s.sheetTitle(ctx, ref)
	if err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]any{{value}}}
	_, err = s.svc.Spreadsheets.Values.
		Update(ref.SpreadsheetID, cellRangeA1(title, row, col), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update cell %s on %s: %w", cellRangeA1(title, row, col), ref, err)
	}
	return nil
}

// UpdateGrid replaces a block of rows starting at the 0-based grid row.
func (s *Store) UpdateGrid(ctx context.Context, ref sheet.Ref, startRow int, values [][]string) error {
	if len(values) == 0 {
		return nil
	}
	title, err := s.sheetTitle(ctx, ref)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(values))
	for _, row := range values {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		rows = append(rows, cells)
	}
	vr := &sheets.ValueRange{Values: rows}
	_, err = s.svc.Spreadsheets.Values.
		Update(ref.SpreadsheetID, gridRangeA1(title, startRow), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update grid on %s: %w", ref, err)
	}
	return nil
}

// ClearBackgrounds resets fills across the data block under the header.
func (s *Store) ClearBackgrounds(ctx context.Context, ref sheet.Ref, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	req := &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          ref.SheetID,
				StartRowIndex:    1,
				EndRowIndex:      int64(1 + rows),
				StartColumnIndex: 0,
				EndColumnIndex:   int64(cols),
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{BackgroundColor: apiColor(sheet.ColorClear)},
			},
			Fields: "userEnteredFormat.backgroundColor",
		},
	}
	return s.batchUpdate(ctx, ref, []*sheets.Request{req})
}

// ApplyBackgrounds paints the given highlights in one batch.
func (s *Store) ApplyBackgrounds(ctx context.Context, ref sheet.Ref, highlights []sheet.Highlight) error {
	if len(highlights) == 0 {
		return nil
	}
	reqs := make([]*sheets.Request, 0, len(highlights))
	for _, h := range highlights {
		reqs = append(reqs, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          ref.SheetID,
					StartRowIndex:    int64(h.Row),
					EndRowIndex:      int64(h.Row + 1),
					StartColumnIndex: int64(h.Col),
					EndColumnIndex:   int64(h.Col + 1),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{BackgroundColor: apiColor(h.Color)},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}
	return s.batchUpdate(ctx, ref, reqs)
}

func (s *Store) batchUpdate(ctx context.Context, ref sheet.Ref, reqs []*sheets.Request) error {
	_, err := s.svc.Spreadsheets.
		BatchUpdate(ref.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("format worksheet %s: %w", ref, err)
	}
	return nil
}

// sheetTitle maps a sheet ID to its tab title, caching every tab of the
// spreadsheet on the first lookup.
func (s *Store) sheetTitle(ctx context.Context, ref sheet.Ref) (string, error) {
	key := ref.String()
	s.mu.Lock()
	title, ok := s.titles[key]
	s.mu.Unlock()
	if ok {
		return title, nil
	}

	resp, err := s.svc.Spreadsheets.Get(ref.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inspect spreadsheet %s: %w", ref.SpreadsheetID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		k := sheet.Ref{SpreadsheetID: ref.SpreadsheetID, SheetID: sh.Properties.SheetId}.String()
		s.titles[k] = sh.Properties.Title
		if sh.Properties.SheetId == ref.SheetID {
			title = sh.Properties.Title
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("sheet %d not found in spreadsheet %s", ref.SheetID, ref.SpreadsheetID)
	}
	s.logger.Debug("resolved worksheet titles",
		zap.String("spreadsheet", ref.SpreadsheetID),
		zap.Int("sheets", len(resp.Sheets)),
	)
	return title, nil
}

func cellString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func cellRangeA1(title string, row, col int) string {
	return fmt.Sprintf("'%s'!%s%d", title, sheet.ColumnLetter(col), row+1)
}

func gridRangeA1(title string, startRow int) string {
	return fmt.Sprintf("'%s'!A%d", title, startRow+1)
}

func apiColor(c sheet.Color) *sheets.Color {
	return &sheets.Color{Red: c.Red, Green: c.Green, Blue: c.Blue}
}
