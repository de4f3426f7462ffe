package align

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/fastq"
	"github.com/logannye/rosalind/internal/fmindex"
	"github.com/logannye/rosalind/internal/refseq"
	"github.com/logannye/rosalind/internal/rerr"
	"github.com/logannye/rosalind/pkg/blockproc"
)

func indexed(t *testing.T, name, ref string) IndexedContig {
	t.Helper()
	seq, err := refseq.Encode([]byte(ref))
	require.NoError(t, err)
	x, err := fmindex.Build(seq, 4, 4)
	require.NoError(t, err)
	return IndexedContig{Name: name, Len: len(ref), Index: x}
}

func TestExactMatchCandidatesOrdered(t *testing.T) {
	a := New(Config{MaxMismatches: 0, CandidateCap: 16, MinReadLength: 2, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", "ACGTACGTACGTACGT")})

	got, err := a.AlignRead(fastq.Read{ID: "r", Seq: []byte("CGTA")})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 3)
	for i, want := range []int{1, 5, 9} {
		assert.Equal(t, want, got.Candidates[i].Pos)
		assert.Equal(t, 0, got.Candidates[i].Mismatches)
	}
}

func TestMismatchForking(t *testing.T) {
	//                  0123456789
	ref := "AAAACGTTTTGGGG"
	a := New(Config{MaxMismatches: 1, CandidateCap: 16, MinReadLength: 2, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", ref)})

	// "ACGA" matches ref[3:7]="ACGT" with one mismatch at the last base.
	got, err := a.AlignRead(fastq.Read{ID: "r", Seq: []byte("ACGA")})
	require.NoError(t, err)
	require.NotEmpty(t, got.Candidates)
	assert.Equal(t, 3, got.Candidates[0].Pos)
	assert.Equal(t, 1, got.Candidates[0].Mismatches)

	// With no budget there is no placement.
	strict := New(Config{MaxMismatches: 0, CandidateCap: 16, MinReadLength: 2, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", ref)})
	got, err = strict.AlignRead(fastq.Read{ID: "r", Seq: []byte("ACGA")})
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
}

func TestPerfectPlacementsPrecedeMismatched(t *testing.T) {
	ref := "ACGTACGAACGT" // CGTA at 1; CGAA at 5 is one mismatch from CGTA
	a := New(Config{MaxMismatches: 1, CandidateCap: 16, MinReadLength: 2, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", ref)})
	got, err := a.AlignRead(fastq.Read{ID: "r", Seq: []byte("CGTA")})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got.Candidates), 2)
	assert.Equal(t, Candidate{Contig: "ref", Pos: 1, Mismatches: 0}, got.Candidates[0])
	for _, c := range got.Candidates[1:] {
		assert.Equal(t, 1, c.Mismatches)
	}
}

func TestNSplitSeeding(t *testing.T) {
	ref := "ACGTACGTACGTACGT"
	a := New(Config{MaxMismatches: 0, CandidateCap: 16, MinReadLength: 3, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", ref)})

	// Seed is the longest N-free segment "GTACG"; the read start is mapped
	// back through the seed offset.
	got, err := a.AlignRead(fastq.Read{ID: "r", Seq: []byte("ACNGTACG")})
	require.NoError(t, err)
	require.NotEmpty(t, got.Candidates)
	for _, c := range got.Candidates {
		assert.Equal(t, "GTACG", ref[c.Pos+3:c.Pos+8])
	}
}

func TestShortAndEmptyReads(t *testing.T) {
	a := New(Config{MaxMismatches: 0, CandidateCap: 16, MinReadLength: 8, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", "ACGTACGTACGTACGT")})

	got, err := a.AlignRead(fastq.Read{ID: "tiny", Seq: []byte("ACG")})
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)

	got, err = a.AlignRead(fastq.Read{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
}

func TestOversizeReadRejected(t *testing.T) {
	a := New(Config{MaxMismatches: 0, CandidateCap: 16, MinReadLength: 2, MaxReadLength: 4},
		[]IndexedContig{indexed(t, "ref", "ACGTACGTACGTACGT")})
	_, err := a.AlignRead(fastq.Read{ID: "big", Seq: []byte("ACGTACGT")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrInputTooLarge))
}

func TestMapQ(t *testing.T) {
	assert.Equal(t, byte(0), Aligned{}.MapQ())
	one := Aligned{Candidates: []Candidate{{Pos: 3}}}
	assert.Equal(t, byte(60), one.MapQ())
	oneMM := Aligned{Candidates: []Candidate{{Pos: 3, Mismatches: 2}}}
	assert.Equal(t, byte(40), oneMM.MapQ())
	tied := Aligned{Candidates: []Candidate{{Pos: 3}, {Pos: 9}}}
	assert.Equal(t, byte(3), tied.MapQ())
}

func TestProcessorBatchesInInputOrder(t *testing.T) {
	ref := "ACGTACGTACGTACGT"
	a := New(Config{MaxMismatches: 0, CandidateCap: 4, MinReadLength: 2, MaxReadLength: 64},
		[]IndexedContig{indexed(t, "ref", ref)})

	reads := []fastq.Read{
		{ID: "a", Seq: []byte("ACGT")},
		{ID: "b", Seq: []byte("CGTA")},
		{ID: "c", Seq: []byte("TTTT")},
		{ID: "d", Seq: []byte("GTAC")},
		{ID: "e", Seq: []byte("ACGT")},
	}
	cursor := 0
	var emitted []string
	p := &Processor{
		Aligner:   a,
		BatchSize: 2,
		Next: func() (fastq.Read, bool, error) {
			if cursor >= len(reads) {
				return fastq.Read{}, false, nil
			}
			r := reads[cursor]
			cursor++
			return r, true, nil
		},
		Emit: func(al Aligned) error {
			emitted = append(emitted, al.Read.ID)
			return nil
		},
	}

	root, err := blockproc.Execute[Boundary, Summary](p, blockproc.Options[Boundary]{
		Blocks: 3, // ⌈5/2⌉
		Hash:   HashBoundary,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, root.Reads)
	assert.Equal(t, 4, root.Placed) // "TTTT" is absent from the reference
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, emitted)
}
