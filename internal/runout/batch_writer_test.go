package runout

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func writeRecords(t *testing.T, w *BatchWriter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := []string{strconv.Itoa(i), "1.5", "2.5"}
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}
}

func TestBatchSizeZeroWritesSingleFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(Config{Dir: dir, Filename: "events.csv"}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.Header([]string{"id", "x", "y"}); err != nil {
		t.Fatalf("Header: %v", err)
	}
	writeRecords(t, w, 5)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files := w.Files()
	if len(files) != 1 {
		t.Fatalf("Files() = %v, want exactly one", files)
	}
	if want := filepath.Join(dir, "events.csv"); files[0] != want {
		t.Errorf("file path = %q, want %q", files[0], want)
	}
	rows := readRows(t, files[0])
	if len(rows) != 6 {
		t.Fatalf("row count = %d, want header + 5 records", len(rows))
	}
	if rows[0][0] != "id" || rows[0][2] != "y" {
		t.Errorf("header row = %v", rows[0])
	}
	if w.Records() != 5 {
		t.Errorf("Records() = %d, want 5", w.Records())
	}
}

func TestRotationSplitsBatchesAndRepeatsHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(Config{Dir: dir, Filename: "events.csv", BatchSize: 3}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.Header([]string{"id", "x", "y"}); err != nil {
		t.Fatalf("Header: %v", err)
	}
	writeRecords(t, w, 8)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files := w.Files()
	wantNames := []string{"events_0.csv", "events_1.csv", "events_2.csv"}
	if len(files) != len(wantNames) {
		t.Fatalf("Files() = %v, want %d batches", files, len(wantNames))
	}
	wantRecords := []int{3, 3, 2}
	for i, path := range files {
		if got := filepath.Base(path); got != wantNames[i] {
			t.Errorf("batch %d name = %q, want %q", i, got, wantNames[i])
		}
		rows := readRows(t, path)
		if rows[0][0] != "id" {
			t.Errorf("batch %d missing header row: %v", i, rows[0])
		}
		if got := len(rows) - 1; got != wantRecords[i] {
			t.Errorf("batch %d record count = %d, want %d", i, got, wantRecords[i])
		}
	}
	if w.Records() != 8 {
		t.Errorf("Records() = %d, want 8", w.Records())
	}
}

func TestRepeatedHeaderAcceptedMismatchRejected(t *testing.T) {
	w, err := NewBatchWriter(Config{Dir: t.TempDir(), Filename: "events.csv"}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	cols := []string{"id", "x"}
	if err := w.Header(cols); err != nil {
		t.Fatalf("first Header: %v", err)
	}
	// Engines re-deliver the header at the start of every run.
	if err := w.Header(cols); err != nil {
		t.Fatalf("repeated identical Header: %v", err)
	}
	if err := w.Header([]string{"id", "x", "extra"}); err == nil {
		t.Fatal("Header with different schema succeeded, want error")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWriteBeforeHeaderFails(t *testing.T) {
	w, err := NewBatchWriter(Config{Dir: t.TempDir(), Filename: "events.csv"}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.Write([]string{"1"}); err == nil {
		t.Fatal("Write before Header succeeded, want error")
	}
}

func TestRecordWidthMismatchFails(t *testing.T) {
	w, err := NewBatchWriter(Config{Dir: t.TempDir(), Filename: "events.csv"}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.Header([]string{"id", "x"}); err != nil {
		t.Fatalf("Header: %v", err)
	}
	if err := w.Write([]string{"1", "2", "3"}); err == nil {
		t.Fatal("Write with wrong width succeeded, want error")
	}
}

func TestCloseIsIdempotentAndBlocksWrites(t *testing.T) {
	w, err := NewBatchWriter(Config{Dir: t.TempDir(), Filename: "events.csv"}, logging.Noop())
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.Header([]string{"id"}); err != nil {
		t.Fatalf("Header: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Write([]string{"1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write after Close = %v, want ErrClosed", err)
	}
	if err := w.Header([]string{"id"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Header after Close = %v, want ErrClosed", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewBatchWriter(Config{Filename: ""}, logging.Noop()); err == nil {
		t.Error("empty filename accepted, want error")
	}
	if _, err := NewBatchWriter(Config{Filename: "x.csv", BatchSize: -1}, logging.Noop()); err == nil {
		t.Error("negative batch size accepted, want error")
	}
}
