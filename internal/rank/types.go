// Package rank defines the core domain types shared across the sync engine.
package rank

import (
	"time"
)

// Target identifies one tracked domain and the worksheet it syncs into.
// Domain doubles as the reference domain of that worksheet.
type Target struct {
	Domain      string
	SheetID     int64
	DisplayName string
}

// Result is one keyword/domain ranking lookup.
type Result struct {
	Keyword string
	Domain  string
	// Position is the 1-based organic position; meaningful only when Found.
	Position int
	Found    bool
	// Failed marks a lookup whose retries were exhausted.
	Failed    bool
	FetchedAt time.Time
}

// Display labels written into worksheet cells.
const (
	LabelNotRanked = "Not Ranked"
	LabelError     = "Error"
	// ImprovementMarker is appended to a reference-domain label whose
	// position improved since the previous sync.
	ImprovementMarker = "↑"
)

// Style names a cell highlight produced by the differ.
type Style string

// Supported highlight styles.
const (
	StyleReference Style = "reference"
	StyleBest      Style = "best"
)

// Column maps a worksheet grid column to a tracked domain.
type Column struct {
	// Index is the 0-based column position in the grid.
	Index  int
	Domain string
}

// Row is one data row of a worksheet snapshot. Cells holds the raw row
// padded to the header width, so untracked columns survive a rewrite.
type Row struct {
	Keyword string
	Cells   []string
}

// Snapshot is the parsed state of one worksheet: the raw header, the
// domain columns recognized in it, and the data rows in sheet order.
type Snapshot struct {
	Header  []string
	Columns []Column
	Rows    []Row
}

// ColumnFor returns the column tracking the given domain.
func (s Snapshot) ColumnFor(domain string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Domain == domain {
			return c, true
		}
	}
	return Column{}, false
}

// Domains lists the tracked domains in column order.
func (s Snapshot) Domains() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, c.Domain)
	}
	return out
}

// Annotation asks for a highlight on one data cell. Row is the 0-based
// data row (header excluded), Col the 0-based grid column.
type Annotation struct {
	Row   int
	Col   int
	Style Style
}

// CellChange records one label that differs from the previous snapshot.
type CellChange struct {
	Row     int
	Col     int
	Keyword string
	Domain  string
	Old     string
	New     string
}

// Plan is the differ's output for one worksheet: the full data block to
// write (row order preserved), the cells that actually changed, and the
// highlights to apply after values land.
type Plan struct {
	Grid        [][]string
	Changes     []CellChange
	Annotations []Annotation
	Keywords    int
}

// DomainResult reports the outcome of one domain's sync job.
type DomainResult struct {
	Domain          string
	Succeeded       bool
	Err             error
	KeywordsChecked int
	CellsChanged    int
	Duration        time.Duration
	ArchiveURI      string
}

// RunTrigger records what started a run.
type RunTrigger string

// Supported run triggers.
const (
	TriggerCLI      RunTrigger = "cli"
	TriggerAPI      RunTrigger = "api"
	TriggerSchedule RunTrigger = "schedule"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Supported run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Run is the persisted header of one sync run.
type Run struct {
	ID        string
	Trigger   RunTrigger
	Status    RunStatus
	Started   time.Time
	Finished  *time.Time
	Processed int
	Failed    int
}

// StoredDomainResult is the persisted form of a DomainResult.
type StoredDomainResult struct {
	RunID           string
	Domain          string
	Succeeded       bool
	Error           string
	KeywordsChecked int
	CellsChanged    int
	DurationMS      int64
	ArchiveURI      string
}

// RunSummary aggregates a finished run for callers and notifications.
type RunSummary struct {
	ID        string
	Trigger   RunTrigger
	Status    RunStatus
	Started   time.Time
	Finished  time.Time
	Domains   []DomainResult
	Processed int
	Failed    int
}

// StoreDomainResult converts an in-memory result for persistence.
func StoreDomainResult(runID string, r DomainResult) StoredDomainResult {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	return StoredDomainResult{
		RunID:           runID,
		Domain:          r.Domain,
		Succeeded:       r.Succeeded,
		Error:           errText,
		KeywordsChecked: r.KeywordsChecked,
		CellsChanged:    r.CellsChanged,
		DurationMS:      r.Duration.Milliseconds(),
		ArchiveURI:      r.ArchiveURI,
	}
}
