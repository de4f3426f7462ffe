// pkg/blockproc/blockproc.go
package blockproc

// Package blockproc is the stable execution contract for engine extensions.
// A plugin is a block processor: it derives a summary from each block given
// the boundary carried in from the previous block, and merges sibling
// summaries associatively. Plugins run under the compressed evaluator and so
// inherit the engine's sublinear working-set guarantee automatically, as
// long as their summaries stay bounded. A processor must not retain
// references to a boundary or summary after the method returns.

import (
	"github.com/logannye/rosalind/internal/evaluator"
	"github.com/logannye/rosalind/internal/space"
)

// Processor is implemented by every block processor, built-in or extension.
// B is the boundary type, S the block summary type.
type Processor[B, S any] interface {
	// InitBoundary produces the boundary for block 0, typically from the
	// processor's own configuration.
	InitBoundary() (B, error)

	// ProcessBlock evaluates one block: it consumes the incoming boundary,
	// returns the boundary for the next block and this block's summary.
	// It must be deterministic in (boundary, index).
	ProcessBlock(boundary B, index int) (B, S, error)

	// MergeSummaries combines two sibling summaries into their parent.
	// Must be associative; need not be commutative.
	MergeSummaries(left, right S) S
}

// Options size one plugin execution.
type Options[B any] struct {
	// Blocks is the number of blocks T.
	Blocks int
	// BoundaryCells and SummaryCells are the logical sizes reported to the
	// accountant. Zero means 1.
	BoundaryCells int
	SummaryCells  int
	// Acct, when non-nil, observes the execution's dynamic working set.
	Acct *space.Accountant
	// Hash, when non-nil, enables boundary digests in errors and replay.
	Hash func(B) uint64
}

// Execute runs the processor over Options.Blocks blocks and returns the root
// summary.
func Execute[B, S any](p Processor[B, S], opts Options[B]) (S, error) {
	var zero S
	ev, err := evaluator.New(
		evaluator.Config{
			Blocks:        opts.Blocks,
			BoundaryCells: opts.BoundaryCells,
			SummaryCells:  opts.SummaryCells,
			Acct:          opts.Acct,
		},
		p.ProcessBlock,
		p.MergeSummaries,
		opts.Hash,
	)
	if err != nil {
		return zero, err
	}
	initial, err := p.InitBoundary()
	if err != nil {
		return zero, err
	}
	return ev.Run(initial)
}
