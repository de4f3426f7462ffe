// internal/align/aligner.go
//
// FM-index backed read alignment. Each read seeds an interval spanning the
// whole BWT and is extended backward from its 3' end one symbol at a time;
// on a mismatch the search forks over the three alternative symbols while
// the budget lasts. Surviving intervals are locate()-resolved and reported
// as candidates, ordered by (mismatches, position) under a configurable cap.
package align

import (
	"sort"

	"github.com/logannye/rosalind/internal/fastq"
	"github.com/logannye/rosalind/internal/fmindex"
	"github.com/logannye/rosalind/internal/refseq"
	"github.com/logannye/rosalind/internal/rerr"
)

// Candidate is one reference placement of a read.
type Candidate struct {
	Contig     string
	Pos        int // 0-based read start on the contig
	Mismatches int
}

// Aligned is a read with its candidate placements.
type Aligned struct {
	Read       fastq.Read
	Candidates []Candidate
}

// MapQ derives a deterministic mapping quality from the candidate set:
// 0 for unplaced reads, 3 when the best placement is ambiguous, otherwise
// 60 stepped down by mismatch count.
func (a Aligned) MapQ() byte {
	if len(a.Candidates) == 0 {
		return 0
	}
	best := a.Candidates[0]
	if len(a.Candidates) > 1 && a.Candidates[1].Mismatches == best.Mismatches {
		return 3
	}
	q := 60 - 10*best.Mismatches
	if q < 0 {
		q = 0
	}
	return byte(q)
}

// Config holds alignment parameters.
type Config struct {
	MaxMismatches int
	CandidateCap  int // M, per read
	MinReadLength int // shorter reads get zero candidates
	MaxReadLength int // longer reads are rejected with InputTooLarge
}

// IndexedContig pairs a contig with its FM-index.
type IndexedContig struct {
	Name  string
	Len   int
	Index *fmindex.Index
}

// Aligner aligns reads against one or more indexed contigs.
type Aligner struct {
	cfg     Config
	contigs []IndexedContig
}

// New creates an aligner.
func New(cfg Config, contigs []IndexedContig) *Aligner {
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = 64
	}
	return &Aligner{cfg: cfg, contigs: contigs}
}

// AlignRead produces the candidate set for one read. Reads shorter than the
// minimum are emitted with zero candidates; reads exceeding the read buffer
// are a typed error.
func (a *Aligner) AlignRead(r fastq.Read) (Aligned, error) {
	if a.cfg.MaxReadLength > 0 && len(r.Seq) > a.cfg.MaxReadLength {
		return Aligned{}, rerr.ErrInputTooLarge
	}
	out := Aligned{Read: r}
	if len(r.Seq) < a.cfg.MinReadLength {
		return out, nil
	}

	seedStart, seedLen := longestSeed(r.Seq)
	if seedLen < a.cfg.MinReadLength {
		return out, nil
	}
	seed := r.Seq[seedStart : seedStart+seedLen]

	for _, contig := range a.contigs {
		hits := searchApprox(contig.Index, seed, a.cfg.MaxMismatches, a.cfg.CandidateCap)
		for _, h := range hits {
			readStart := h.pos - seedStart
			if readStart < 0 || readStart+len(r.Seq) > contig.Len {
				continue
			}
			out.Candidates = append(out.Candidates, Candidate{
				Contig:     contig.Name,
				Pos:        readStart,
				Mismatches: h.mismatches,
			})
		}
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		ci, cj := out.Candidates[i], out.Candidates[j]
		if ci.Mismatches != cj.Mismatches {
			return ci.Mismatches < cj.Mismatches
		}
		if ci.Contig != cj.Contig {
			return ci.Contig < cj.Contig
		}
		return ci.Pos < cj.Pos
	})
	if len(out.Candidates) > a.cfg.CandidateCap {
		out.Candidates = out.Candidates[:a.cfg.CandidateCap]
	}
	return out, nil
}

// longestSeed returns the leftmost longest N-free segment of seq.
func longestSeed(seq []byte) (start, length int) {
	bestStart, bestLen := 0, 0
	segStart := 0
	flush := func(end int) {
		if l := end - segStart; l > bestLen {
			bestStart, bestLen = segStart, l
		}
	}
	for i, b := range seq {
		if b == 'N' || b == 'n' {
			flush(i)
			segStart = i + 1
		}
	}
	flush(len(seq))
	return bestStart, bestLen
}

type hit struct {
	pos        int
	mismatches int
}

// searchApprox runs the forked backward search for pattern with at most k
// mismatches. Exploration is depth-first with the exact symbol tried before
// the alternatives in A<C<G<T order, so the traversal is deterministic; the
// same position reached along several paths keeps its lowest mismatch count.
func searchApprox(x *fmindex.Index, pattern []byte, k, candidateCap int) []hit {
	best := make(map[int]int) // pos → min mismatches
	exploreBudget := candidateCap * 64

	var dfs func(iv fmindex.Interval, i, mm int)
	dfs = func(iv fmindex.Interval, i, mm int) {
		if exploreBudget <= 0 {
			return
		}
		if i < 0 {
			exploreBudget--
			for row := iv.Lo; row < iv.Hi; row++ {
				pos := x.Locate(row)
				if prev, ok := best[pos]; !ok || mm < prev {
					best[pos] = mm
				}
			}
			return
		}
		code, ambiguous, ok := refseq.CodeOf(pattern[i])
		if ok && !ambiguous {
			if next := x.Extend(iv, code); !next.Empty() {
				dfs(next, i-1, mm)
			}
		}
		if mm < k {
			for alt := uint8(0); alt < 4; alt++ {
				if ok && !ambiguous && alt == code {
					continue
				}
				if next := x.Extend(iv, alt); !next.Empty() {
					dfs(next, i-1, mm+1)
				}
			}
		}
	}
	dfs(x.Full(), len(pattern)-1, 0)

	out := make([]hit, 0, len(best))
	for pos, mm := range best {
		out = append(out, hit{pos: pos, mismatches: mm})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].mismatches != out[j].mismatches {
			return out[i].mismatches < out[j].mismatches
		}
		return out[i].pos < out[j].pos
	})
	return out
}
