package track

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultSaveDelay is how long a dirty store waits before hitting disk, so
// a burst of record updates coalesces into one write.
const DefaultSaveDelay = 1 * time.Second

// stateSource is what the writer persists. Satisfied by *Store.
type stateSource interface {
	EncodeState() ([]byte, error)
}

// Writer debounces store persistence. MarkDirty records that state changed;
// the owning loop calls MaybeFlush on its tick and the write lands once the
// delay since the first unsaved change has elapsed. Flush writes
// synchronously for shutdown. The writer is not safe for concurrent use;
// like the store, it belongs to a single goroutine.
type Writer struct {
	path   string
	delay  time.Duration
	logger *slog.Logger

	dirty   bool
	dirtyAt time.Time

	now func() time.Time
}

// NewWriter creates a writer targeting path. A non-positive delay falls
// back to DefaultSaveDelay.
func NewWriter(path string, delay time.Duration, logger *slog.Logger) *Writer {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		path:   path,
		delay:  delay,
		logger: logger,
		now:    time.Now,
	}
}

// MarkDirty notes that the store changed. The debounce window is anchored
// at the first unsaved change; later calls inside the window do not push
// the write further out.
func (w *Writer) MarkDirty() {
	if w.dirty {
		return
	}

	w.dirty = true
	w.dirtyAt = w.now()
}

// Dirty reports whether unsaved changes are pending.
func (w *Writer) Dirty() bool {
	return w.dirty
}

// MaybeFlush writes the store if it is dirty and the debounce delay has
// elapsed. A failed write leaves the dirty flag set so the next tick
// retries.
func (w *Writer) MaybeFlush(src stateSource) error {
	if !w.dirty || w.now().Sub(w.dirtyAt) < w.delay {
		return nil
	}

	return w.Flush(src)
}

// Flush writes the store immediately regardless of the debounce window.
// The file is written to a temp path and renamed into place so readers
// never observe a partial state file.
func (w *Writer) Flush(src stateSource) error {
	data, err := src.EncodeState()
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if err := atomic.WriteFile(w.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	w.dirty = false

	w.logger.Debug("state file written",
		slog.String("path", w.path),
		slog.Int("bytes", len(data)),
	)

	return nil
}
