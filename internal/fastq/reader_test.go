package fastq

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/rerr"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, path string) []Read {
	t.Helper()
	var out []Read
	require.NoError(t, ForEach(path, func(r Read) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestFASTQ(t *testing.T) {
	path := write(t, "r.fq", "@r1 extra\nACGT\n+\nIIII\n@r2\nggtt\n+r2\nJJJJ\n")
	reads := collect(t, path)
	require.Len(t, reads, 2)
	assert.Equal(t, "r1", reads[0].ID)
	assert.Equal(t, []byte("ACGT"), reads[0].Seq)
	assert.Equal(t, []byte("IIII"), reads[0].Qual)
	assert.Equal(t, []byte("GGTT"), reads[1].Seq)
}

func TestPlainOneReadPerLine(t *testing.T) {
	path := write(t, "r.txt", "ACGT\n\nttaa\n")
	reads := collect(t, path)
	require.Len(t, reads, 2)
	assert.Equal(t, "read1", reads[0].ID)
	assert.Nil(t, reads[0].Qual)
	assert.Equal(t, []byte("TTAA"), reads[1].Seq)
}

func TestCount(t *testing.T) {
	path := write(t, "r.fq", "@a\nAC\n+\nII\n@b\nGT\n+\nII\n@c\nTT\n+\nII\n")
	n, err := Count(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestQualityLengthMismatch(t *testing.T) {
	path := write(t, "bad.fq", "@a\nACGT\n+\nII\n")
	err := ForEach(path, func(Read) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrInvalidInput))
	assert.Contains(t, err.Error(), "record 1")
}

func TestTruncatedRecord(t *testing.T) {
	path := write(t, "bad.fq", "@a\nACGT\n")
	err := ForEach(path, func(Read) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrInvalidInput))
}

func TestEmptyFileRejected(t *testing.T) {
	path := write(t, "empty.fq", "")
	err := ForEach(path, func(Read) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrInvalidInput))
}
