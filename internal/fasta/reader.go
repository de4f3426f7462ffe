// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logannye/rosalind/internal/rerr"
)

// Record is one parsed FASTA sequence.
type Record struct {
	ID  string
	Seq []byte
}

// ReadContigs parses every record of a FASTA file. The FM-index needs whole
// contigs, so records are not windowed.
func ReadContigs(path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reference %s: %v", rerr.ErrInvalidInput, path, err)
	}
	defer rc.Close()

	var out []Record
	err = scan(rc, func(r Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: reference %s holds no FASTA records", rerr.ErrInvalidInput, path)
	}
	return out, nil
}

// scan parses FASTA from r and emits whole records.
func scan(r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	const maxLine = 64 * 1024 * 1024 // allow very long single-line sequences
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id  string
		seq []byte
		n   int
	)
	flush := func() error {
		if id == "" && len(seq) == 0 {
			return nil
		}
		if id == "" {
			return rerr.Invalidf("record %d: sequence before first header", n)
		}
		rec := Record{ID: id, Seq: bytes.ToUpper(append([]byte(nil), seq...))}
		seq = seq[:0]
		return emit(rec)
	}

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id = parseHeaderID(line[1:])
			n++
			if id == "" {
				return rerr.Invalidf("record %d: empty FASTA header", n)
			}
			continue
		}
		seq = append(seq, line...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: fasta scan: %v", rerr.ErrInvalidInput, err)
	}
	return flush()
}

func parseHeaderID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}

// Open opens a sequence file, handling gzip transparently (magic number or
// .gz suffix). Shared with the FASTQ reader.
func Open(path string) (io.ReadCloser, error) {
	return openReader(path)
}

// openReader handles gzip transparently, by magic number or .gz suffix.
func openReader(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	_, _ = fh.Seek(0, io.SeekStart)
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
