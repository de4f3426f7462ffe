// internal/fmindex/fmindex.go
//
// Blocked FM-index over a 2-bit reference. The BWT is stored sentinel-free:
// the sentinel character is deleted from the transform and its row (the
// primary index) is remembered, so rank runs over exactly N entries and
// Σ_σ rank(σ, i) = i holds for every prefix. Queries work in the full
// (N+1)-row space; per-block checkpoints keep the in-block rank scan
// cache-resident.
package fmindex

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/logannye/rosalind/internal/refseq"
	"github.com/logannye/rosalind/internal/rerr"
)

const (
	// DefaultBlockSize is the rank checkpoint stride B_fm.
	DefaultBlockSize = 512
	// DefaultSampleRate is the suffix-array sampling rate s.
	DefaultSampleRate = 16

	basesPerWord = 32
)

// Interval is a half-open row range [Lo, Hi) in the full (N+1)-row space.
type Interval struct {
	Lo int
	Hi int
}

// Width returns the number of matching rows.
func (iv Interval) Width() int { return iv.Hi - iv.Lo }

// Empty reports whether no matches remain.
func (iv Interval) Empty() bool { return iv.Hi <= iv.Lo }

// Index is the blocked FM-index.
type Index struct {
	words       []uint64        // sentinel-free BWT, 2-bit packed
	ambig       *roaring.Bitmap // N positions within the BWT
	n           int             // BWT length = reference length
	primary     int             // row of the deleted sentinel character
	blockSize   int
	checkpoints [][4]uint32 // cumulative A,C,G,T counts at each block start
	c           [4]int      // C-array rows: C[σ] = first row of σ-suffixes
	cN          int         // first row of N-suffixes
	sampleRate  int
	samples     []int32 // SA values at rows ≡ 0 (mod sampleRate)
}

// Build constructs the index from a reference. blockSize and sampleRate of 0
// select the defaults.
func Build(ref *refseq.Sequence, blockSize, sampleRate int) (*Index, error) {
	if ref.Len() == 0 {
		return nil, rerr.Invalidf("empty reference")
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	n := ref.Len()

	// Text codes: $=0, A=1, C=2, G=3, T=4, N=5.
	text := make([]int32, n+1)
	for i := 0; i < n; i++ {
		code, ambiguous := ref.Code(i)
		if ambiguous {
			text[i] = 5
		} else {
			text[i] = int32(code) + 1
		}
	}
	sa := suffixArray(text, 6)

	x := &Index{
		words:      make([]uint64, (n+basesPerWord-1)/basesPerWord),
		ambig:      roaring.New(),
		n:          n,
		blockSize:  blockSize,
		sampleRate: sampleRate,
		samples:    make([]int32, (n+1+sampleRate-1)/sampleRate),
	}

	bi := 0 // sentinel-free BWT index
	var totals [4]uint32
	numBlocks := (n + blockSize - 1) / blockSize
	x.checkpoints = make([][4]uint32, numBlocks+1)

	for row := 0; row <= n; row++ {
		if row%sampleRate == 0 {
			x.samples[row/sampleRate] = sa[row]
		}
		p := sa[row]
		if p == 0 {
			x.primary = row
			continue
		}
		ch := text[p-1]
		if bi%blockSize == 0 {
			x.checkpoints[bi/blockSize] = totals
		}
		if ch == 5 {
			x.ambig.Add(uint32(bi))
		} else {
			code := uint64(ch - 1)
			x.words[bi/basesPerWord] |= code << uint((bi%basesPerWord)*2)
			totals[ch-1]++
		}
		bi++
	}
	x.checkpoints[numBlocks] = totals

	// C-array: the sentinel owns row 0; N-suffixes follow the T block.
	x.c[0] = 1
	x.c[1] = x.c[0] + int(totals[0])
	x.c[2] = x.c[1] + int(totals[1])
	x.c[3] = x.c[2] + int(totals[2])
	x.cN = x.c[3] + int(totals[3])
	return x, nil
}

// Len returns the BWT length (reference length, sentinel excluded).
func (x *Index) Len() int { return x.n }

// Rows returns the number of rows in the conceptual sorted rotation matrix.
func (x *Index) Rows() int { return x.n + 1 }

// Primary returns the row at which the sentinel character was deleted.
func (x *Index) Primary() int { return x.primary }

// BlockSize returns the rank checkpoint stride.
func (x *Index) BlockSize() int { return x.blockSize }

// Full returns the interval covering every row.
func (x *Index) Full() Interval { return Interval{Lo: 0, Hi: x.n + 1} }

// code returns the 2-bit code at sentinel-free BWT index bi.
func (x *Index) code(bi int) uint8 {
	return uint8(x.words[bi/basesPerWord]>>uint((bi%basesPerWord)*2)) & 3
}

// Rank counts symbol sym (refseq code, 0..3) in the sentinel-free BWT prefix
// [0, i). Checkpoint lookup plus a linear scan over at most blockSize
// entries; ambiguous (N) entries never count.
func (x *Index) Rank(sym uint8, i int) int {
	if i < 0 {
		return 0
	}
	if i > x.n {
		i = x.n
	}
	blk := i / x.blockSize
	count := int(x.checkpoints[blk][sym])
	for bi := blk * x.blockSize; bi < i; bi++ {
		if x.code(bi) == sym && !x.ambig.Contains(uint32(bi)) {
			count++
		}
	}
	return count
}

// rankN counts N entries in the sentinel-free BWT prefix [0, i).
func (x *Index) rankN(i int) int {
	if i <= 0 {
		return 0
	}
	return int(x.ambig.Rank(uint32(i - 1)))
}

// rankRows is Rank against a bound expressed in full row space.
func (x *Index) rankRows(sym uint8, row int) int {
	if row > x.primary {
		row--
	}
	return x.Rank(sym, row)
}

// Extend narrows iv to the rows whose rotations start with sym followed by
// the suffix iv already matches (one backward-search step).
func (x *Index) Extend(iv Interval, sym uint8) Interval {
	return Interval{
		Lo: x.c[sym] + x.rankRows(sym, iv.Lo),
		Hi: x.c[sym] + x.rankRows(sym, iv.Hi),
	}
}

// LF maps row j to the row of the preceding text position.
func (x *Index) LF(j int) int {
	if j == x.primary {
		return 0
	}
	bi := j
	if j > x.primary {
		bi = j - 1
	}
	if x.ambig.Contains(uint32(bi)) {
		return x.cN + x.rankN(bi)
	}
	sym := x.code(bi)
	return x.c[sym] + x.Rank(sym, bi)
}

// Locate resolves row j to its reference position by LF-walking to the
// nearest sampled row.
func (x *Index) Locate(j int) int {
	steps := 0
	for j%x.sampleRate != 0 {
		j = x.LF(j)
		steps++
	}
	pos := int(x.samples[j/x.sampleRate]) + steps
	if pos > x.n {
		pos -= x.n + 1 // walk wrapped through the sentinel
	}
	return pos
}

// Search backward-searches an exact ASCII pattern, returning the matching
// interval. Patterns containing N (which matches nothing) or symbols outside
// the alphabet produce an empty interval.
func (x *Index) Search(pattern []byte) Interval {
	iv := x.Full()
	for i := len(pattern) - 1; i >= 0; i-- {
		code, ambiguous, ok := refseq.CodeOf(pattern[i])
		if !ok || ambiguous {
			return Interval{}
		}
		iv = x.Extend(iv, code)
		if iv.Empty() {
			return Interval{}
		}
	}
	return iv
}

// Invert reconstructs the reference from the transform (round-trip check).
func (x *Index) Invert() []byte {
	out := make([]byte, x.n)
	j := 0 // row of the sentinel suffix; its BWT char is the last text byte
	for i := x.n - 1; i >= 0; i-- {
		bi := j
		if j > x.primary {
			bi = j - 1
		}
		if x.ambig.Contains(uint32(bi)) {
			out[i] = 'N'
		} else {
			out[i] = refseq.BaseOf(x.code(bi))
		}
		j = x.LF(j)
	}
	return out
}

// Validate checks the structural invariants: rank(σ,0)=0, Σ_σ rank(σ,N)+N's
// = N, and rank monotonicity at block edges. Cheap enough for load-time use.
func (x *Index) Validate() error {
	total := x.rankN(x.n)
	for sym := uint8(0); sym < 4; sym++ {
		if x.Rank(sym, 0) != 0 {
			return fmt.Errorf("%w: rank(%d,0) != 0", rerr.ErrInvalidInput, sym)
		}
		total += x.Rank(sym, x.n)
	}
	if total != x.n {
		return fmt.Errorf("%w: symbol ranks sum to %d, want %d", rerr.ErrInvalidInput, total, x.n)
	}
	for k := 1; k < len(x.checkpoints); k++ {
		for sym := 0; sym < 4; sym++ {
			if x.checkpoints[k][sym] < x.checkpoints[k-1][sym] {
				return fmt.Errorf("%w: rank(%d) decreases at checkpoint %d", rerr.ErrInvalidInput, sym, k)
			}
		}
	}
	return nil
}
