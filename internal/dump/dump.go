// Package dump writes report snapshots to numbered flat files.
//
// Each dump goes to the first free name in <prefix>0, <prefix>1, ... inside
// the target directory. Files are created with O_EXCL, so an existing dump is
// never overwritten even when two writers race for the same index. An empty
// snapshot produces no file.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"brd/internal/report"
)

// ErrNoReports is returned when there is nothing to write.
var ErrNoReports = errors.New("no reports to dump")

// maxIndex bounds the search for a free file name.
const maxIndex = 1 << 20

// Result describes a completed dump.
type Result struct {
	Path  string
	Count int
	Bytes int64
}

// Writer creates dump files in Dir named Prefix followed by an index.
type Writer struct {
	Dir    string
	Prefix string
}

// NewWriter returns a writer for dir and prefix.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{Dir: dir, Prefix: prefix}
}

// Write persists reports, one rendering per line, in the given order.
func (w *Writer) Write(reports []report.Report) (Result, error) {
	if len(reports) == 0 {
		return Result{}, ErrNoReports
	}
	file, path, err := w.create()
	if err != nil {
		return Result{}, err
	}

	buf := bufio.NewWriter(file)
	var written int64
	for _, r := range reports {
		n, err := buf.WriteString(r.String() + "\n")
		written += int64(n)
		if err != nil {
			discard(file, path)
			return Result{}, fmt.Errorf("write dump %s: %w", path, err)
		}
	}
	if err := buf.Flush(); err != nil {
		discard(file, path)
		return Result{}, fmt.Errorf("flush dump %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return Result{}, fmt.Errorf("close dump %s: %w", path, err)
	}
	return Result{Path: path, Count: len(reports), Bytes: written}, nil
}

// discard closes and removes a partially written dump so its index can be
// reused and no truncated file is left behind.
func discard(file dumpFile, path string) {
	_ = file.Close()
	_ = os.Remove(path)
}

func (w *Writer) create() (dumpFile, string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	for i := 0; i < maxIndex; i++ {
		path := filepath.Join(dir, w.Prefix+strconv.Itoa(i))
		file, err := openExclusive(path)
		if err == nil {
			return file, path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, "", fmt.Errorf("create dump file: %w", err)
	}
	return nil, "", fmt.Errorf("create dump file: no free name for prefix %q in %s", w.Prefix, dir)
}
