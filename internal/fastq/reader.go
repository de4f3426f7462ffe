// internal/fastq/reader.go
package fastq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/logannye/rosalind/internal/fasta"
	"github.com/logannye/rosalind/internal/rerr"
)

// Read is one sequencing read. Qual is nil for plain one-read-per-line
// input.
type Read struct {
	ID   string
	Seq  []byte
	Qual []byte
}

// Count scans path and returns the number of reads. The aligner sizes its
// evaluator blocks from this before the streaming pass.
func Count(path string) (int, error) {
	n := 0
	err := ForEach(path, func(Read) error {
		n++
		return nil
	})
	return n, err
}

// ForEach streams reads in input order. FASTQ is detected by a leading '@';
// anything else is treated as one read per line.
func ForEach(path string, visit func(Read) error) error {
	rc, err := fasta.Open(path)
	if err != nil {
		return fmt.Errorf("%w: reads %s: %v", rerr.ErrInvalidInput, path, err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 1<<20)
	first, err := br.Peek(1)
	if err == io.EOF {
		return fmt.Errorf("%w: reads %s: empty file", rerr.ErrInvalidInput, path)
	}
	if err != nil {
		return fmt.Errorf("%w: reads %s: %v", rerr.ErrInvalidInput, path, err)
	}
	if first[0] == '@' {
		err = scanFASTQ(br, visit)
	} else {
		err = scanPlain(br, visit)
	}
	if err != nil {
		return fmt.Errorf("reads %s: %w", path, err)
	}
	return nil
}

func scanFASTQ(r io.Reader, visit func(Read) error) error {
	sc := newScanner(r)
	record := 0
	for sc.Scan() {
		header := bytes.TrimSpace(sc.Bytes())
		if len(header) == 0 {
			continue
		}
		record++
		if header[0] != '@' {
			return rerr.Invalidf("record %d: FASTQ header must start with '@', got %q", record, header[0])
		}
		id := string(firstField(header[1:]))

		seq, ok := nextLine(sc)
		if !ok {
			return rerr.Invalidf("record %d: truncated after header", record)
		}
		plus, ok := nextLine(sc)
		if !ok || len(plus) == 0 || plus[0] != '+' {
			return rerr.Invalidf("record %d: missing '+' separator", record)
		}
		qual, ok := nextLine(sc)
		if !ok {
			return rerr.Invalidf("record %d: missing quality line", record)
		}
		if len(qual) != len(seq) {
			return rerr.Invalidf("record %d: quality length %d != sequence length %d", record, len(qual), len(seq))
		}
		if err := visit(Read{
			ID:   id,
			Seq:  bytes.ToUpper(append([]byte(nil), seq...)),
			Qual: append([]byte(nil), qual...),
		}); err != nil {
			return err
		}
	}
	return sc.Err()
}

func scanPlain(r io.Reader, visit func(Read) error) error {
	sc := newScanner(r)
	record := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		record++
		if err := visit(Read{
			ID:  fmt.Sprintf("read%d", record),
			Seq: bytes.ToUpper(append([]byte(nil), line...)),
		}); err != nil {
			return err
		}
	}
	return sc.Err()
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return sc
}

func nextLine(sc *bufio.Scanner) ([]byte, bool) {
	if !sc.Scan() {
		return nil, false
	}
	return bytes.TrimSpace(sc.Bytes()), true
}

func firstField(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexAny(b, " \t"); i >= 0 {
		return b[:i]
	}
	return b
}
