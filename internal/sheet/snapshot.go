package sheet

import (
	"fmt"
	"strings"

	"github.com/antyra/ranksync/internal/rank"
)

// ParseSnapshot interprets a raw worksheet grid. The first row must be a
// header whose first cell is "Keyword" (matched case-insensitively); later
// header cells naming a tracked domain become ranking columns. Data rows
// are padded to the header width so a full rewrite preserves untracked
// cells, and rows wider than the header keep their extra cells.
func ParseSnapshot(grid [][]string, domains []string) (rank.Snapshot, error) {
	if len(grid) == 0 {
		return rank.Snapshot{}, fmt.Errorf("worksheet is empty")
	}
	header := grid[0]
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), "keyword") {
		return rank.Snapshot{}, fmt.Errorf("first header cell must be Keyword")
	}

	snap := rank.Snapshot{Header: append([]string(nil), header...)}
	seen := make(map[string]bool, len(domains))
	for idx, cell := range header {
		name := strings.TrimSpace(cell)
		for _, domain := range domains {
			if seen[domain] || !strings.EqualFold(name, domain) {
				continue
			}
			seen[domain] = true
			snap.Columns = append(snap.Columns, rank.Column{Index: idx, Domain: domain})
			break
		}
	}

	for _, raw := range grid[1:] {
		width := len(header)
		if len(raw) > width {
			width = len(raw)
		}
		cells := make([]string, width)
		copy(cells, raw)
		snap.Rows = append(snap.Rows, rank.Row{
			Keyword: strings.TrimSpace(cells[0]),
			Cells:   cells,
		})
	}
	return snap, nil
}
