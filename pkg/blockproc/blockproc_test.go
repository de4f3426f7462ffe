package blockproc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/space"
)

// gcContent is a toy plugin: per-block GC counts over a sequence.
type gcContent struct {
	seq       []byte
	blockSize int
}

type gcBoundary struct{ off int }

type gcSummary struct{ gc, total int }

func (p *gcContent) InitBoundary() (gcBoundary, error) { return gcBoundary{}, nil }

func (p *gcContent) ProcessBlock(b gcBoundary, i int) (gcBoundary, gcSummary, error) {
	end := b.off + p.blockSize
	if end > len(p.seq) {
		end = len(p.seq)
	}
	s := gcSummary{total: end - b.off}
	for _, c := range p.seq[b.off:end] {
		if c == 'G' || c == 'C' {
			s.gc++
		}
	}
	return gcBoundary{off: end}, s, nil
}

func (p *gcContent) MergeSummaries(l, r gcSummary) gcSummary {
	return gcSummary{gc: l.gc + r.gc, total: l.total + r.total}
}

func TestPluginInheritsSpaceBound(t *testing.T) {
	seq := make([]byte, 40_000)
	for i := range seq {
		seq[i] = "ACGT"[i%4]
	}
	blockSize := int(math.Sqrt(float64(len(seq)))) // 200
	p := &gcContent{seq: seq, blockSize: blockSize}
	T := (len(seq) + blockSize - 1) / blockSize

	acct := space.New()
	root, err := Execute[gcBoundary, gcSummary](p, Options[gcBoundary]{
		Blocks:        T,
		BoundaryCells: blockSize,
		Acct:          acct,
	})
	require.NoError(t, err)
	assert.Equal(t, len(seq), root.total)
	assert.Equal(t, len(seq)/2, root.gc)

	assert.NoError(t, acct.CheckBound(space.Envelope{Alpha: 2, Beta: 1, Gamma: 8}, blockSize, T))
}

func TestPluginPartitionInvariance(t *testing.T) {
	seq := []byte("GATTACAGATTACAGGCC")
	run := func(blockSize int) gcSummary {
		p := &gcContent{seq: seq, blockSize: blockSize}
		T := (len(seq) + blockSize - 1) / blockSize
		root, err := Execute[gcBoundary, gcSummary](p, Options[gcBoundary]{Blocks: T})
		require.NoError(t, err)
		return root
	}
	assert.Equal(t, run(3), run(7))
	assert.Equal(t, run(1), run(18))
}
