package dump

import (
	"io"
	"os"
)

// dumpFile is the part of *os.File the writer needs.
type dumpFile interface {
	io.Writer
	Close() error
}

// openExclusive creates path, failing when it already exists.
// It is a package-level variable so tests can override it.
var openExclusive = func(path string) (dumpFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// SetOpenForTests overrides the exclusive file opener during tests.
func SetOpenForTests(fn func(string) (dumpFile, error)) func() {
	previous := openExclusive
	openExclusive = fn
	return func() {
		openExclusive = previous
	}
}
