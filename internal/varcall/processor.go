// internal/varcall/processor.go
//
// The variant caller as a block processor: one block is b_v reference
// positions. The rolling boundary carries the set of in-flight reads
// crossing the block edge plus the one read pulled past the edge, so the
// input stream is consumed exactly once in coordinate order.
package varcall

import (
	"fmt"
	"hash/fnv"

	"github.com/google/btree"

	"github.com/logannye/rosalind/internal/pileup"
	"github.com/logannye/rosalind/internal/rerr"
)

// Flight is an in-flight read: it entered the pileup in an earlier block and
// still covers positions at or past the current block edge.
type Flight struct {
	Read pileup.Read
	Seq  int // arrival order; columns must see contributions in input order
	End  int
}

func flightLess(a, b *Flight) bool { return a.Seq < b.Seq }

// Boundary is the caller's rolling boundary.
type Boundary struct {
	Block   int
	PrevPos int // sortedness watermark
	NextSeq int
	Pending *pileup.Read // first read at or past the block edge
	Flights *btree.BTreeG[*Flight]
}

// HashBoundary digests the boundary deterministically.
func HashBoundary(b Boundary) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "varcall:%d:%d:%d", b.Block, b.PrevPos, b.NextSeq)
	if b.Pending != nil {
		_, _ = fmt.Fprintf(h, ":pending=%s@%d", b.Pending.Name, b.Pending.Pos)
	}
	if b.Flights != nil {
		b.Flights.Ascend(func(f *Flight) bool {
			_, _ = fmt.Fprintf(h, ":%s@%d/%d", f.Read.Name, f.Read.Pos, f.End)
			return true
		})
	}
	return h.Sum64()
}

// Summary aggregates block results; variants are flushed downstream as each
// column is scored, so the summary stays bounded.
type Summary struct {
	Columns  int
	Variants int
	MaxDepth int
}

// Processor drives streaming variant calling under the evaluator.
type Processor struct {
	Cfg Config
	// Next pulls the next aligned read in coordinate order.
	Next func() (pileup.Read, bool, error)
	// Emit receives variants in output order.
	Emit func(Variant) error
}

// Blocks returns T for the configured region.
func (p *Processor) Blocks() int {
	span := p.Cfg.RegionEnd - p.Cfg.RegionStart
	if span <= 0 {
		return 1
	}
	return (span + p.Cfg.BlockSize - 1) / p.Cfg.BlockSize
}

// InitBoundary starts at the region's first block with no in-flight reads.
func (p *Processor) InitBoundary() (Boundary, error) {
	return Boundary{
		PrevPos: -1 << 60,
		Flights: btree.NewG(16, flightLess),
	}, nil
}

// ProcessBlock builds the pileup window for block index and scores it.
func (p *Processor) ProcessBlock(b Boundary, index int) (Boundary, Summary, error) {
	if b.Block != index {
		return b, Summary{}, fmt.Errorf("caller boundary at block %d, expected %d", b.Block, index)
	}
	start := p.Cfg.RegionStart + index*p.Cfg.BlockSize
	end := start + p.Cfg.BlockSize
	if end > p.Cfg.RegionEnd {
		end = p.Cfg.RegionEnd
	}

	w := pileup.NewWindow(start, end)

	// In-flight reads contribute first, in arrival order; survivors keep
	// flying past this block's edge.
	next := btree.NewG(16, flightLess)
	b.Flights.Ascend(func(f *Flight) bool {
		w.Add(f.Read)
		if f.End > end {
			next.ReplaceOrInsert(f)
		}
		return true
	})
	b.Flights = next

	// Consume the input stream up to the block edge.
	for {
		var r pileup.Read
		if b.Pending != nil {
			r = *b.Pending
			b.Pending = nil
		} else {
			read, ok, err := p.Next()
			if err != nil {
				return b, Summary{}, err
			}
			if !ok {
				break
			}
			if read.Pos < b.PrevPos {
				return b, Summary{}, fmt.Errorf("%w: read %s at %d after position %d",
					rerr.ErrUnsortedInput, read.Name, read.Pos, b.PrevPos)
			}
			b.PrevPos = read.Pos
			r = read
		}
		if r.Pos >= end {
			b.Pending = &r
			break
		}
		// Reads on other contigs or outside the region are skipped, not
		// an error.
		if r.Chrom != "" && r.Chrom != p.Cfg.Chrom {
			continue
		}
		if r.End() <= p.Cfg.RegionStart || r.Pos >= p.Cfg.RegionEnd {
			continue
		}
		if int(r.MapQ) < p.Cfg.MinMapQ {
			continue
		}
		w.Add(r)
		if r.End() > end {
			b.Flights.ReplaceOrInsert(&Flight{Read: r, Seq: b.NextSeq, End: r.End()})
		}
		b.NextSeq++
	}

	var s Summary
	for i := range w.Cols {
		c := &w.Cols[i]
		if c.Depth > s.MaxDepth {
			s.MaxDepth = c.Depth
		}
		for _, v := range CallColumn(p.Cfg, c) {
			if err := p.Emit(v); err != nil {
				return b, s, err
			}
			s.Variants++
		}
	}
	s.Columns = len(w.Cols)

	b.Block = index + 1
	return b, s, nil
}

// MergeSummaries adds block counts.
func (p *Processor) MergeSummaries(l, r Summary) Summary {
	maxDepth := l.MaxDepth
	if r.MaxDepth > maxDepth {
		maxDepth = r.MaxDepth
	}
	return Summary{
		Columns:  l.Columns + r.Columns,
		Variants: l.Variants + r.Variants,
		MaxDepth: maxDepth,
	}
}
