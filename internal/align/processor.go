// internal/align/processor.go
package align

import (
	"fmt"
	"hash/fnv"

	"github.com/logannye/rosalind/internal/fastq"
)

// Boundary is the aligner's rolling boundary: the index of the next read to
// consume from the input stream.
type Boundary struct {
	NextRead int
}

// HashBoundary digests a boundary for error reports and replay.
func HashBoundary(b Boundary) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "align:%d", b.NextRead)
	return h.Sum64()
}

// Summary aggregates one batch of aligned reads. It stays bounded: aligned
// reads are flushed downstream as they are produced, the summary carries
// counts only.
type Summary struct {
	Reads      int
	Placed     int
	Candidates int
}

// Processor exposes the aligner to the compressed evaluator: one block is a
// contiguous batch of reads in input order.
type Processor struct {
	Aligner   *Aligner
	BatchSize int
	// Next pulls the next read in input order; ok=false at end of input.
	Next func() (fastq.Read, bool, error)
	// Emit receives each aligned read, in input order.
	Emit func(Aligned) error
}

// InitBoundary starts at the first read.
func (p *Processor) InitBoundary() (Boundary, error) { return Boundary{}, nil }

// ProcessBlock aligns one batch.
func (p *Processor) ProcessBlock(b Boundary, index int) (Boundary, Summary, error) {
	if want := index * p.BatchSize; b.NextRead != want {
		return b, Summary{}, fmt.Errorf("aligner boundary at read %d, block %d starts at %d", b.NextRead, index, want)
	}
	var s Summary
	for n := 0; n < p.BatchSize; n++ {
		read, ok, err := p.Next()
		if err != nil {
			return b, s, err
		}
		if !ok {
			break
		}
		aligned, err := p.Aligner.AlignRead(read)
		if err != nil {
			return b, s, fmt.Errorf("read %d (%s): %w", b.NextRead+n+1, read.ID, err)
		}
		if err := p.Emit(aligned); err != nil {
			return b, s, err
		}
		s.Reads++
		s.Candidates += len(aligned.Candidates)
		if len(aligned.Candidates) > 0 {
			s.Placed++
		}
	}
	return Boundary{NextRead: b.NextRead + s.Reads}, s, nil
}

// MergeSummaries adds batch counts.
func (p *Processor) MergeSummaries(l, r Summary) Summary {
	return Summary{
		Reads:      l.Reads + r.Reads,
		Placed:     l.Placed + r.Placed,
		Candidates: l.Candidates + r.Candidates,
	}
}
