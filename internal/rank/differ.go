package rank

// Differ computes worksheet updates from a previous snapshot plus fresh
// ranking results. It is pure: no I/O, no clock.
type Differ struct {
	// Reference is the domain whose column carries improvement markers
	// and the reference highlight.
	Reference string
}

// Plan builds the full replacement grid (row order preserved), the cells
// whose label changed, and the highlight annotations for one worksheet.
//
// results maps keyword -> domain -> Result. Rows with a blank keyword, and
// rows whose keyword has no results entry, pass through byte-for-byte and
// receive no annotations. Columns not tracking a configured domain are
// never touched.
func (d Differ) Plan(snap Snapshot, results map[string]map[string]Result) Plan {
	plan := Plan{Grid: make([][]string, 0, len(snap.Rows))}
	for i, row := range snap.Rows {
		cells := append([]string(nil), row.Cells...)
		res := results[row.Keyword]
		if row.Keyword == "" || res == nil {
			plan.Grid = append(plan.Grid, cells)
			continue
		}
		plan.Keywords++

		refCol := -1
		bestCol, bestPos := -1, 0
		for _, col := range snap.Columns {
			if col.Domain == d.Reference {
				refCol = col.Index
			}
			r, ok := res[col.Domain]
			if !ok {
				continue
			}
			old := cells[col.Index]
			label := FormatResult(r)
			if col.Domain == d.Reference && r.Found {
				if prev, parsed := ParseLabel(old); parsed && r.Position < prev {
					label += " " + ImprovementMarker
				}
			}
			if label != old {
				plan.Changes = append(plan.Changes, CellChange{
					Row:     i,
					Col:     col.Index,
					Keyword: row.Keyword,
					Domain:  col.Domain,
					Old:     old,
					New:     label,
				})
			}
			cells[col.Index] = label
			if r.Found && (bestCol == -1 || r.Position < bestPos) {
				bestCol, bestPos = col.Index, r.Position
			}
		}

		// Best-rank wins when the reference cell holds both.
		if refCol >= 0 && refCol != bestCol {
			plan.Annotations = append(plan.Annotations, Annotation{Row: i, Col: refCol, Style: StyleReference})
		}
		if bestCol >= 0 {
			plan.Annotations = append(plan.Annotations, Annotation{Row: i, Col: bestCol, Style: StyleBest})
		}
		plan.Grid = append(plan.Grid, cells)
	}
	return plan
}
