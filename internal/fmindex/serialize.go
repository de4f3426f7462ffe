// internal/fmindex/serialize.go
//
// Versioned on-disk format so a built index can be reused across runs. The
// layout is implementation-defined and guarded by the magic header.
package fmindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"

	"github.com/logannye/rosalind/internal/rerr"
)

var magic = [8]byte{'R', 'F', 'M', 'X', '0', '0', '0', '1'}

// WriteTo serializes the index.
func (x *Index) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	header := []int64{
		int64(x.n), int64(x.primary), int64(x.blockSize), int64(x.sampleRate),
		int64(len(x.words)), int64(len(x.checkpoints)), int64(len(x.samples)),
	}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, x.words); err != nil {
		return err
	}
	for _, cp := range x.checkpoints {
		if err := binary.Write(bw, binary.LittleEndian, cp[:]); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, x.samples); err != nil {
		return err
	}
	ambig, err := x.ambig.ToBytes()
	if err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int64(len(ambig))); err != nil {
		return err
	}
	if _, err := bw.Write(ambig); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadFrom deserializes an index written by WriteTo.
func ReadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var got [8]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, fmt.Errorf("%w: short index header: %v", rerr.ErrInvalidInput, err)
	}
	if got != magic {
		return nil, fmt.Errorf("%w: bad index magic %q", rerr.ErrInvalidInput, got[:])
	}
	header := make([]int64, 7)
	for i := range header {
		if err := binary.Read(br, binary.LittleEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("%w: truncated index header: %v", rerr.ErrInvalidInput, err)
		}
	}
	x := &Index{
		n:           int(header[0]),
		primary:     int(header[1]),
		blockSize:   int(header[2]),
		sampleRate:  int(header[3]),
		words:       make([]uint64, header[4]),
		checkpoints: make([][4]uint32, header[5]),
		samples:     make([]int32, header[6]),
		ambig:       roaring.New(),
	}
	if err := binary.Read(br, binary.LittleEndian, x.words); err != nil {
		return nil, fmt.Errorf("%w: truncated BWT: %v", rerr.ErrInvalidInput, err)
	}
	for i := range x.checkpoints {
		if err := binary.Read(br, binary.LittleEndian, x.checkpoints[i][:]); err != nil {
			return nil, fmt.Errorf("%w: truncated checkpoints: %v", rerr.ErrInvalidInput, err)
		}
	}
	if err := binary.Read(br, binary.LittleEndian, x.samples); err != nil {
		return nil, fmt.Errorf("%w: truncated SA samples: %v", rerr.ErrInvalidInput, err)
	}
	var ambigLen int64
	if err := binary.Read(br, binary.LittleEndian, &ambigLen); err != nil {
		return nil, fmt.Errorf("%w: truncated ambiguity bitmap: %v", rerr.ErrInvalidInput, err)
	}
	ambig := make([]byte, ambigLen)
	if _, err := io.ReadFull(br, ambig); err != nil {
		return nil, fmt.Errorf("%w: truncated ambiguity bitmap: %v", rerr.ErrInvalidInput, err)
	}
	if err := x.ambig.UnmarshalBinary(ambig); err != nil {
		return nil, fmt.Errorf("%w: ambiguity bitmap: %v", rerr.ErrInvalidInput, err)
	}

	// Rebuild the C-array from the terminal checkpoint.
	totals := x.checkpoints[len(x.checkpoints)-1]
	x.c[0] = 1
	x.c[1] = x.c[0] + int(totals[0])
	x.c[2] = x.c[1] + int(totals[1])
	x.c[3] = x.c[2] + int(totals[2])
	x.cN = x.c[3] + int(totals[3])

	if err := x.Validate(); err != nil {
		return nil, err
	}
	return x, nil
}

// Save writes the index to path via a temp file and atomic rename.
func (x *Index) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fmindex-*")
	if err != nil {
		return err
	}
	if err := x.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads an index file produced by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrom(f)
}
