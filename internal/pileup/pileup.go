// internal/pileup/pileup.go
//
// Streaming pileup construction. A window covers one variant block's worth
// of reference positions; reads contribute the slice of their alignment that
// overlaps the window, so a read crossing a block edge is applied piecewise
// by consecutive blocks without duplicating evidence.
package pileup

import (
	"math"

	"github.com/logannye/rosalind/internal/refseq"
)

// CIGAR operation kinds. Match and Del consume reference; Match, Ins and
// SoftClip consume read.
const (
	Match    = 'M'
	Ins      = 'I'
	Del      = 'D'
	SoftClip = 'S'
	RefSkip  = 'N' // consumes reference, leaves no evidence
)

// CigarOp is one CIGAR operation.
type CigarOp struct {
	Kind byte
	Len  int
}

// Read is an aligned read as the pileup consumes it.
type Read struct {
	Name  string
	Chrom string
	Pos   int // 0-based leftmost reference coordinate
	MapQ  byte
	Cigar []CigarOp
	Seq   []byte
}

// End returns the half-open reference end of the alignment.
func (r Read) End() int {
	end := r.Pos
	for _, op := range r.Cigar {
		switch op.Kind {
		case Match, Del, RefSkip:
			end += op.Len
		}
	}
	return end
}

// Column aggregates the evidence at one reference position. The three
// log-space accumulators per symbol are what the genotype likelihoods need;
// they are additive, so column construction order is the read input order
// and nothing else.
type Column struct {
	Pos      int
	Depth    int
	Counts   [4]int
	MapQSums [4]float64
	// Per-symbol log10 accumulators over the observations carrying that
	// symbol: Σlog(1-ε), Σlog(ε), and Σlog(½(1-ε)+ε/6) with ε from MAPQ.
	LogMatch [4]float64
	LogErr   [4]float64
	LogHet   [4]float64
	// Insertion evidence: inserted sequence → read support, anchored here.
	Inserts map[string]int
	// Deletion evidence: deleted length → read support, anchored here.
	Dels map[int]int
}

// Window is the set of columns for one variant block [Start, End).
type Window struct {
	Start int
	End   int
	Cols  []Column
}

// NewWindow allocates columns for [start, end).
func NewWindow(start, end int) *Window {
	w := &Window{Start: start, End: end, Cols: make([]Column, end-start)}
	for i := range w.Cols {
		w.Cols[i].Pos = start + i
	}
	return w
}

func (w *Window) col(pos int) *Column {
	if pos < w.Start || pos >= w.End {
		return nil
	}
	return &w.Cols[pos-w.Start]
}

// Add walks the read's CIGAR and contributes every base, insertion and
// deletion that lands inside the window. Calls outside the window are
// no-ops, which is what makes piecewise application across blocks exact.
func (w *Window) Add(r Read) {
	eps := math.Pow(10, -float64(r.MapQ)/10)
	logMatch := math.Log10(1 - eps)
	logErr := math.Log10(eps)
	logHet := math.Log10(0.5*(1-eps) + eps/6)
	if r.MapQ == 0 {
		// ε=1 would zero out the match likelihood entirely.
		logMatch = math.Log10(0.25)
		logHet = math.Log10(0.25)
	}

	refPos, readOff := r.Pos, 0
	for _, op := range r.Cigar {
		switch op.Kind {
		case Match:
			for k := 0; k < op.Len; k++ {
				if c := w.col(refPos + k); c != nil {
					code, ambiguous, ok := refseq.CodeOf(r.Seq[readOff+k])
					if ok && !ambiguous {
						c.Counts[code]++
						c.MapQSums[code] += float64(r.MapQ)
						c.LogMatch[code] += logMatch
						c.LogErr[code] += logErr
						c.LogHet[code] += logHet
						c.Depth++
					}
				}
			}
			refPos += op.Len
			readOff += op.Len
		case Ins:
			if c := w.col(refPos - 1); c != nil {
				if c.Inserts == nil {
					c.Inserts = make(map[string]int)
				}
				c.Inserts[string(r.Seq[readOff:readOff+op.Len])]++
			}
			readOff += op.Len
		case Del:
			if c := w.col(refPos - 1); c != nil {
				if c.Dels == nil {
					c.Dels = make(map[int]int)
				}
				c.Dels[op.Len]++
			}
			refPos += op.Len
		case RefSkip:
			refPos += op.Len
		case SoftClip:
			readOff += op.Len
		}
	}
}
