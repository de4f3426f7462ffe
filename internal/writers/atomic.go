// internal/writers/atomic.go
package writers

import (
	"io"
	"os"
	"path/filepath"
)

// Output resolves the destination for an app: stdout when path is empty,
// otherwise a temp file that only lands at path on Commit. A failed run
// leaves no partial output file behind.
type Output struct {
	W    io.Writer
	path string
	tmp  *os.File
}

// OpenOutput prepares the destination.
func OpenOutput(stdout io.Writer, path string) (*Output, error) {
	if path == "" {
		return &Output{W: stdout}, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, err
	}
	return &Output{W: tmp, path: path, tmp: tmp}, nil
}

// Commit atomically renames the temp file into place.
func (o *Output) Commit() error {
	if o.tmp == nil {
		return nil
	}
	if err := o.tmp.Close(); err != nil {
		_ = os.Remove(o.tmp.Name())
		return err
	}
	return os.Rename(o.tmp.Name(), o.path)
}

// Abort discards any partial file.
func (o *Output) Abort() {
	if o.tmp == nil {
		return
	}
	_ = o.tmp.Close()
	_ = os.Remove(o.tmp.Name())
}
