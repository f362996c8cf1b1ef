// Package runout streams detector event records into CSV batch files.
//
// A writer produces either one unbounded file (batch size zero) or a
// numbered sequence stem_0.csv, stem_1.csv, ... capped at the batch
// size, with the column header repeated at the top of every file.
package runout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
)

// ErrClosed is returned by Header and Write after Close.
var ErrClosed = errors.New("batch writer closed")

// Config describes where records go and how they are split.
type Config struct {
	// Dir is the output directory, created if missing. Empty means the
	// current working directory.
	Dir string
	// Filename is the base file name, e.g. "sim_data.csv". Batch files
	// derive their names from its stem.
	Filename string
	// BatchSize caps records per file. Zero writes a single file.
	BatchSize int64
}

// BatchWriter is the event sink used for production runs. Not safe for
// concurrent use; the runtime serializes pulse execution.
type BatchWriter struct {
	cfg    Config
	stem   string
	ext    string
	logger logging.Logger

	columns []string
	file    *os.File
	out     *csv.Writer
	batch   int
	inFile  int64
	total   int64
	files   []string
	closed  bool
}

// NewBatchWriter validates the config and prepares the output directory.
// No file is created until the first header arrives.
func NewBatchWriter(cfg Config, logger logging.Logger) (*BatchWriter, error) {
	if cfg.Filename == "" {
		return nil, errors.New("output filename required")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("negative batch size %d", cfg.BatchSize)
	}
	if logger == nil {
		logger = logging.Noop()
	}
	ext := filepath.Ext(cfg.Filename)
	if ext == "" {
		ext = ".csv"
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %q: %w", cfg.Dir, err)
		}
	}
	return &BatchWriter{
		cfg:    cfg,
		stem:   strings.TrimSuffix(cfg.Filename, ext),
		ext:    ext,
		logger: logger,
	}, nil
}

// Header records the column schema and opens the first batch file.
// Engines deliver the header once per run, so repeated identical headers
// are accepted; a different schema mid-stream is an error.
func (w *BatchWriter) Header(columns []string) error {
	if w.closed {
		return ErrClosed
	}
	if len(columns) == 0 {
		return errors.New("empty header")
	}
	if w.columns != nil {
		if !equalColumns(w.columns, columns) {
			return fmt.Errorf("header changed mid-stream: got %v, want %v", columns, w.columns)
		}
		return nil
	}
	w.columns = append([]string(nil), columns...)
	return w.openNext()
}

// Write appends one record, rotating to the next batch file when the
// current one is full.
func (w *BatchWriter) Write(values []string) error {
	if w.closed {
		return ErrClosed
	}
	if w.columns == nil {
		return errors.New("record before header")
	}
	if len(values) != len(w.columns) {
		return fmt.Errorf("record width %d does not match header width %d", len(values), len(w.columns))
	}
	if w.cfg.BatchSize > 0 && w.inFile >= w.cfg.BatchSize {
		if err := w.closeCurrent(); err != nil {
			return err
		}
		if err := w.openNext(); err != nil {
			return err
		}
	}
	if err := w.out.Write(values); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.inFile++
	w.total++
	return nil
}

// Close flushes and closes the open batch file. Safe to call twice.
func (w *BatchWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	return w.closeCurrent()
}

// Files lists the paths written so far, in order.
func (w *BatchWriter) Files() []string {
	return append([]string(nil), w.files...)
}

// Records reports the total record count across all batch files.
func (w *BatchWriter) Records() int64 { return w.total }

func (w *BatchWriter) openNext() error {
	name := w.stem + w.ext
	if w.cfg.BatchSize > 0 {
		name = fmt.Sprintf("%s_%d%s", w.stem, w.batch, w.ext)
	}
	path := filepath.Join(w.cfg.Dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create batch file %q: %w", path, err)
	}
	out := csv.NewWriter(file)
	if err := out.Write(w.columns); err != nil {
		file.Close()
		return fmt.Errorf("write header to %q: %w", path, err)
	}
	w.file = file
	w.out = out
	w.inFile = 0
	w.files = append(w.files, path)
	w.logger.Info("opened batch file",
		logging.String("path", path),
		logging.Int("batch", w.batch))
	return nil
}

func (w *BatchWriter) closeCurrent() error {
	w.out.Flush()
	flushErr := w.out.Error()
	closeErr := w.file.Close()
	w.file = nil
	w.out = nil
	w.batch++
	if flushErr != nil {
		return fmt.Errorf("flush batch file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close batch file: %w", closeErr)
	}
	return nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
