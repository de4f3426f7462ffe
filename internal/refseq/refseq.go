// internal/refseq/refseq.go
//
// Immutable reference sequences over {A,C,G,T,N}: 2-bit packed bases with a
// parallel ambiguity bitmap for N positions. Constructed once, shared
// read-only by every downstream consumer.
package refseq

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/logannye/rosalind/internal/rerr"
)

const basesPerWord = 32 // 2 bits per base

// CodeOf maps an ASCII base to its 2-bit code. ambiguous is true for N
// (stored as code 0 with the ambiguity bit). ok is false for symbols outside
// {A,C,G,T,N} (case-insensitive; U is accepted as T).
func CodeOf(b byte) (code uint8, ambiguous, ok bool) {
	switch b {
	case 'A', 'a':
		return 0, false, true
	case 'C', 'c':
		return 1, false, true
	case 'G', 'g':
		return 2, false, true
	case 'T', 't', 'U', 'u':
		return 3, false, true
	case 'N', 'n':
		return 0, true, true
	}
	return 0, false, false
}

// BaseOf is the inverse of CodeOf for unambiguous codes.
func BaseOf(code uint8) byte {
	return "ACGT"[code&3]
}

// Sequence is a 2-bit packed DNA sequence.
type Sequence struct {
	words []uint64
	n     int
	ambig *roaring.Bitmap
}

// Encode packs seq. Symbols outside {A,C,G,T,N} yield InvalidInput with the
// offending position.
func Encode(seq []byte) (*Sequence, error) {
	s := &Sequence{
		words: make([]uint64, (len(seq)+basesPerWord-1)/basesPerWord),
		n:     len(seq),
		ambig: roaring.New(),
	}
	for i, b := range seq {
		code, ambiguous, ok := CodeOf(b)
		if !ok {
			return nil, rerr.Invalidf("symbol %q at position %d", b, i)
		}
		if ambiguous {
			s.ambig.Add(uint32(i))
		}
		s.words[i/basesPerWord] |= uint64(code) << uint((i%basesPerWord)*2)
	}
	return s, nil
}

// Len returns the number of bases.
func (s *Sequence) Len() int { return s.n }

// Code returns the 2-bit code at i and whether the position is ambiguous.
func (s *Sequence) Code(i int) (uint8, bool) {
	code := uint8(s.words[i/basesPerWord]>>uint((i%basesPerWord)*2)) & 3
	return code, s.ambig.Contains(uint32(i))
}

// Base returns the ASCII base at i ('N' for ambiguous positions).
func (s *Sequence) Base(i int) byte {
	code, ambiguous := s.Code(i)
	if ambiguous {
		return 'N'
	}
	return BaseOf(code)
}

// Ambiguous reports whether position i holds an N.
func (s *Sequence) Ambiguous(i int) bool { return s.ambig.Contains(uint32(i)) }

// AmbiguousCount returns the number of N positions.
func (s *Sequence) AmbiguousCount() int { return int(s.ambig.GetCardinality()) }

// Bytes decodes the whole sequence into a fresh buffer.
func (s *Sequence) Bytes() []byte {
	out := make([]byte, s.n)
	for i := 0; i < s.n; i++ {
		out[i] = s.Base(i)
	}
	return out
}

// Contig pairs a named reference sequence with its coordinate offset, for
// multi-contig references and region-shifted evaluation.
type Contig struct {
	Name   string
	Seq    *Sequence
	Offset int
}
