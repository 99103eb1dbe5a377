// Package archive renders worksheet snapshots to CSV and ships them to a
// blob store after each domain sync.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/clock/system"
	"github.com/antyra/ranksync/internal/rank"
)

const (
	defaultPrefix   = "rankings"
	timestampLayout = "20060102T150405Z"
)

// RenderCSV serializes a header plus data rows as RFC 4180 CSV.
func RenderCSV(header []string, grid [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range grid {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Archiver uploads post-sync snapshots under
// <prefix>/<domain>/<timestamp>_<runID>.csv.
type Archiver struct {
	store  rank.BlobStore
	prefix string
	clock  rank.Clock
	logger *zap.Logger
}

// New builds an Archiver writing into the given blob store.
func New(store rank.BlobStore, prefix string, clock rank.Clock, logger *zap.Logger) *Archiver {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, prefix: prefix, clock: clock, logger: logger}
}

// ArchiveSnapshot renders the worksheet state and stores it, returning the
// archive URI.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, runID, domain string, header []string, grid [][]string) (string, error) {
	data, err := RenderCSV(header, grid)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%s/%s_%s.csv", a.prefix, domain, a.clock.Now().UTC().Format(timestampLayout), runID)
	uri, err := a.store.PutObject(ctx, path, "text/csv", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store archive: %w", err)
	}
	a.logger.Debug("archived worksheet snapshot",
		zap.String("run_id", runID),
		zap.String("domain", domain),
		zap.String("uri", uri),
		zap.Int("bytes", len(data)),
	)
	return uri, nil
}
