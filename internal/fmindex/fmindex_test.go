package fmindex

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/refseq"
)

func build(t *testing.T, ref string, blockSize, sampleRate int) *Index {
	t.Helper()
	seq, err := refseq.Encode([]byte(ref))
	require.NoError(t, err)
	x, err := Build(seq, blockSize, sampleRate)
	require.NoError(t, err)
	return x
}

func naiveRank(ref string, sym byte, i int) int {
	// Rank over the sentinel-free BWT built by brute force.
	text := ref + "$"
	rows := make([]int, len(text))
	for j := range rows {
		rows[j] = j
	}
	sort.Slice(rows, func(a, b int) bool {
		return suffixLess(text, rows[a], rows[b])
	})
	var bwt []byte
	for _, p := range rows {
		if p == 0 {
			continue // sentinel character dropped
		}
		bwt = append(bwt, text[p-1])
	}
	count := 0
	for _, b := range bwt[:i] {
		if b == sym {
			count++
		}
	}
	return count
}

func suffixLess(text string, a, b int) bool {
	// '$' sorts below every base, 'N' above.
	rank := func(c byte) int {
		switch c {
		case '$':
			return 0
		case 'A':
			return 1
		case 'C':
			return 2
		case 'G':
			return 3
		case 'T':
			return 4
		}
		return 5
	}
	for a < len(text) && b < len(text) {
		if ra, rb := rank(text[a]), rank(text[b]); ra != rb {
			return ra < rb
		}
		a++
		b++
	}
	return a >= len(text)
}

func TestRankScenario(t *testing.T) {
	x := build(t, "ACGTACGTACGT", 4, 4)
	a, _, _ := refseq.CodeOf('A')
	g, _, _ := refseq.CodeOf('G')
	assert.Equal(t, 3, x.Rank(a, 12))
	assert.Equal(t, 3, x.Rank(g, 12))

	total := 0
	for sym := uint8(0); sym < 4; sym++ {
		total += x.Rank(sym, 12)
	}
	assert.Equal(t, 12, total)
}

func TestRankMatchesNaiveEverywhere(t *testing.T) {
	refs := []string{
		"ACGTCGTA",
		"AAAA",
		"GATTACAGATTACA",
		"ACGTNNACGTACGTNACG",
		strings.Repeat("ACGT", 70), // several checkpoint blocks at B_fm=64
	}
	for _, ref := range refs {
		x := build(t, ref, 64, 8)
		for i := 0; i <= len(ref); i++ {
			sum := 0
			for _, base := range []byte("ACGT") {
				code, _, _ := refseq.CodeOf(base)
				got := x.Rank(code, i)
				assert.Equal(t, naiveRank(ref, base, i), got, "ref=%q sym=%c i=%d", ref, base, i)
				sum += got
			}
			sum += x.rankN(i)
			assert.Equal(t, i, sum, "ref=%q i=%d rank sum", ref, i)
		}
		assert.NoError(t, x.Validate())
	}
}

func TestRankMonotone(t *testing.T) {
	x := build(t, "GATTACAGATTACAGGCCNN", 4, 4)
	for sym := uint8(0); sym < 4; sym++ {
		prev := 0
		for i := 0; i <= x.Len(); i++ {
			r := x.Rank(sym, i)
			assert.GreaterOrEqual(t, r, prev)
			prev = r
		}
	}
}

func TestBWTInversionRestoresReference(t *testing.T) {
	for _, ref := range []string{"ACGTCGTA", "GATTACA", "AACCGGTTN", strings.Repeat("TGCA", 33)} {
		x := build(t, ref, 8, 4)
		assert.Equal(t, []byte(strings.ToUpper(ref)), x.Invert(), "ref=%q", ref)
	}
}

func TestSearchAndLocate(t *testing.T) {
	ref := "ACGTACGTACGTACGT"
	x := build(t, ref, 4, 4)

	iv := x.Search([]byte("CGTA"))
	require.False(t, iv.Empty())
	var positions []int
	for row := iv.Lo; row < iv.Hi; row++ {
		positions = append(positions, x.Locate(row))
	}
	sort.Ints(positions)
	assert.Equal(t, []int{1, 5, 9}, positions)
}

func TestSearchSubstringContainsItsOrigin(t *testing.T) {
	ref := "GATTACAGGCCTTAGACCA"
	x := build(t, ref, 8, 4)
	for start := 0; start+5 <= len(ref); start++ {
		sub := ref[start : start+5]
		iv := x.Search([]byte(sub))
		require.False(t, iv.Empty(), "substring %q", sub)
		found := false
		for row := iv.Lo; row < iv.Hi; row++ {
			if x.Locate(row) == start {
				found = true
			}
		}
		assert.True(t, found, "substring %q at %d", sub, start)
	}
}

func TestSearchAbsentPatternIsEmpty(t *testing.T) {
	x := build(t, "AAAACCCC", 4, 4)
	assert.True(t, x.Search([]byte("GT")).Empty())
	assert.True(t, x.Search([]byte("ANA")).Empty(), "N matches nothing")
}

func TestLFWalksWholeText(t *testing.T) {
	ref := "TGCATGCAGT"
	x := build(t, ref, 4, 4)
	// Starting at row 0 (the sentinel suffix) and applying LF n+1 times
	// must visit every row exactly once and return to row 0.
	seen := make(map[int]bool)
	j := 0
	for i := 0; i <= x.Len(); i++ {
		assert.False(t, seen[j], "row %d revisited", j)
		seen[j] = true
		j = x.LF(j)
	}
	assert.Equal(t, 0, j)
}

func TestSerializationRoundTrip(t *testing.T) {
	ref := strings.Repeat("ACGTTGCAN", 21)
	x := build(t, ref, 16, 8)

	var buf bytes.Buffer
	require.NoError(t, x.WriteTo(&buf))
	y, err := ReadFrom(&buf)
	require.NoError(t, err)

	assert.Equal(t, x.Len(), y.Len())
	assert.Equal(t, x.Primary(), y.Primary())
	assert.Equal(t, []byte(ref), y.Invert())
	iv1, iv2 := x.Search([]byte("TTGCA")), y.Search([]byte("TTGCA"))
	assert.Equal(t, iv1, iv2)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte("NOTANINDEXFILE??")))
	assert.Error(t, err)
}

func TestSaveLoadFile(t *testing.T) {
	x := build(t, "GATTACAGATTACA", 4, 4)
	path := t.TempDir() + "/ref.fmx"
	require.NoError(t, x.Save(path))
	y, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, x.Invert(), y.Invert())
}
