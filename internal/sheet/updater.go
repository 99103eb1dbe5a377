package sheet

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/metrics"
	"github.com/antyra/ranksync/internal/rank"
)

// Updater lands a differ plan on a worksheet: values first, then fills.
type Updater struct {
	store  Store
	logger *zap.Logger
}

// NewUpdater builds an Updater around the given store.
func NewUpdater(store Store, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{store: store, logger: logger}
}

// Apply writes the plan's labels and repaints highlights. Stores that
// implement BulkWriter receive the whole data block in one call; others
// get one UpdateCell per changed label. Fills are cleared across the data
// block before the plan's highlights go on.
func (u *Updater) Apply(ctx context.Context, ref Ref, plan rank.Plan) error {
	if len(plan.Grid) == 0 {
		u.logger.Warn("no data rows to update", zap.String("worksheet", ref.String()))
		return nil
	}

	if bulk, ok := u.store.(BulkWriter); ok {
		if err := bulk.UpdateGrid(ctx, ref, 1, plan.Grid); err != nil {
			return fmt.Errorf("update grid: %w", err)
		}
		metrics.IncSheetWrite("bulk")
	} else {
		for _, ch := range plan.Changes {
			if err := u.store.UpdateCell(ctx, ref, ch.Row+1, ch.Col, ch.New); err != nil {
				return fmt.Errorf("update cell %s%d: %w", ColumnLetter(ch.Col), ch.Row+2, err)
			}
		}
		if len(plan.Changes) > 0 {
			metrics.IncSheetWrite("cells")
		}
	}

	cols := 0
	for _, row := range plan.Grid {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if err := u.store.ClearBackgrounds(ctx, ref, len(plan.Grid), cols); err != nil {
		return fmt.Errorf("clear backgrounds: %w", err)
	}

	highlights := make([]Highlight, 0, len(plan.Annotations))
	for _, a := range plan.Annotations {
		highlights = append(highlights, Highlight{Row: a.Row + 1, Col: a.Col, Color: styleColor(a.Style)})
	}
	if err := u.store.ApplyBackgrounds(ctx, ref, highlights); err != nil {
		return fmt.Errorf("apply backgrounds: %w", err)
	}
	return nil
}

func styleColor(s rank.Style) Color {
	if s == rank.StyleReference {
		return ColorReference
	}
	return ColorBest
}
