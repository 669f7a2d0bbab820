// Package worker turns snapshot messages into mirrored copies of the itinerary.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"shiori/internal/amqp"
	"shiori/internal/export"
	"shiori/internal/log"
	"shiori/internal/projection"
	"shiori/internal/sheets"
	"shiori/internal/storage"
	"shiori/internal/transfer"
)

// MirrorFile is the name of the plain-text export written into the mirror directory.
const MirrorFile = "shiori.txt"

// MirrorWorker writes the latest snapshot as a text booklet and, optionally,
// into a spreadsheet. Snapshots older than the last one handled are skipped.
type MirrorWorker struct {
	dir      string
	exporter sheets.Exporter
	logger   *slog.Logger

	mu          sync.Mutex
	lastVersion int64
}

func NewMirrorWorker(dir string, exporter sheets.Exporter, logger *slog.Logger) (*MirrorWorker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	return &MirrorWorker{dir: dir, exporter: exporter, logger: log.OrDefault(logger)}, nil
}

// HandleSnapshot is an amqp.Handler. Undecodable tokens are rejected so the
// broker does not redeliver them.
func (w *MirrorWorker) HandleSnapshot(ctx context.Context, msg *amqp.SnapshotMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if msg.Version <= w.lastVersion {
		w.logger.InfoContext(ctx, "Skipping stale snapshot",
			log.FieldVersion, msg.Version, "last_version", w.lastVersion)
		return nil
	}

	entries, err := transfer.Decode(msg.Token)
	if err != nil {
		return amqp.Reject(fmt.Errorf("decode snapshot %s: %w", msg.MessageID, err))
	}
	view := projection.Build(entries)

	path := filepath.Join(w.dir, MirrorFile)
	if err := storage.WriteFileAtomic(path, []byte(export.Text(view))); err != nil {
		return fmt.Errorf("write mirror file: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.ExportItinerary(ctx, view); err != nil {
			return fmt.Errorf("export to sheets: %w", err)
		}
	}

	w.lastVersion = msg.Version
	w.logger.InfoContext(ctx, "Snapshot mirrored",
		log.FieldOperation, log.OpMirror,
		log.FieldVersion, msg.Version,
		log.FieldCount, len(entries),
		log.FieldTotal, view.Total)
	return nil
}

// LastVersion is the version of the last mirrored snapshot.
func (w *MirrorWorker) LastVersion() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastVersion
}
