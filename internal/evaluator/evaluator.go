// internal/evaluator/evaluator.go
//
// Generic compressed evaluator. A computation of T blocks whose summaries
// combine under an associative merge is evaluated as a DFS over an implicit
// height-compressed binary tree, materialized as an iterative loop: one
// rolling boundary, a merge stack of depth ≤ ⌈log₂T⌉, and a two-bit-per-merge
// progress ledger. Working memory is O(B + T + log T).
package evaluator

import (
	"fmt"

	"github.com/logannye/rosalind/internal/ledger"
	"github.com/logannye/rosalind/internal/rerr"
	"github.com/logannye/rosalind/internal/space"
)

// BlockFunc evaluates one block from the given boundary, returning the
// boundary for the next block and this block's summary. It must be
// deterministic and must not retain references to prior state.
type BlockFunc[B, S any] func(boundary B, index int) (B, S, error)

// MergeFunc combines two sibling summaries into their parent. It must be
// associative; it need not be commutative, and it is assumed total.
type MergeFunc[S any] func(left, right S) S

// HashFunc reduces a boundary to a reproducible 64-bit digest used in error
// reports and replay verification. Optional.
type HashFunc[B any] func(B) uint64

// Config sizes one evaluation.
type Config struct {
	// Blocks is T, the number of blocks to evaluate. Must be ≥ 1.
	Blocks int
	// BoundaryCells and SummaryCells are the logical sizes reported to the
	// accountant for the rolling boundary and one merge-stack frame.
	// Zero means 1.
	BoundaryCells int
	SummaryCells  int
	// Acct observes the dynamic working set. Optional.
	Acct *space.Accountant
}

type frame[S any] struct {
	level   int
	summary S
}

// Evaluator runs block evaluations. One instance per evaluation; no global
// state, no locks.
type Evaluator[B, S any] struct {
	cfg    Config
	block  BlockFunc[B, S]
	merge  MergeFunc[S]
	hash   HashFunc[B]
	hashes []uint64 // boundary digest before each block, recorded by Run
}

// New validates cfg and constructs an evaluator.
func New[B, S any](cfg Config, block BlockFunc[B, S], merge MergeFunc[S], hash HashFunc[B]) (*Evaluator[B, S], error) {
	if cfg.Blocks < 1 {
		return nil, fmt.Errorf("evaluator: block count %d must be ≥ 1", cfg.Blocks)
	}
	if block == nil || merge == nil {
		return nil, fmt.Errorf("evaluator: block and merge functions are required")
	}
	if cfg.BoundaryCells <= 0 {
		cfg.BoundaryCells = 1
	}
	if cfg.SummaryCells <= 0 {
		cfg.SummaryCells = 1
	}
	return &Evaluator[B, S]{cfg: cfg, block: block, merge: merge, hash: hash}, nil
}

// Run evaluates all T blocks from the initial boundary and returns the root
// summary. Block failures are fatal and carry the failing block index plus
// the boundary digest so the caller can replay that single block.
func (e *Evaluator[B, S]) Run(initial B) (S, error) {
	var zero S
	T := e.cfg.Blocks
	acct := e.cfg.Acct

	ld := ledger.New(T)
	if acct != nil {
		acct.Alloc("ledger", (ld.SizeBits()+63)/64)
		defer acct.Free("ledger", (ld.SizeBits()+63)/64)
		acct.Alloc("boundary", e.cfg.BoundaryCells)
		defer acct.Free("boundary", e.cfg.BoundaryCells)
	}

	if e.hash != nil {
		e.hashes = make([]uint64, T)
	}

	var stack []frame[S]
	boundary := initial

	for i := 0; i < T; i++ {
		if e.hash != nil {
			e.hashes[i] = e.hash(boundary)
		}
		next, summary, err := e.block(boundary, i)
		if err != nil {
			return zero, fmt.Errorf("block %d (boundary %016x): %w", i, e.digest(boundary), err)
		}
		boundary = next

		// Bubble the summary up the implicit tree.
		s, level, j := summary, 0, i
		for j&1 == 1 {
			parent := j >> 1
			ld.MarkRight(level+1, parent)
			if err := ld.CheckMerge(level+1, parent); err != nil {
				return zero, rerr.Violate(err)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if acct != nil {
				acct.Free("stack", e.cfg.SummaryCells)
			}
			if top.level != level {
				return zero, rerr.Violate(fmt.Errorf(
					"%w: merge stack holds level %d, expected sibling at level %d",
					rerr.ErrLedgerCorruption, top.level, level))
			}
			s = e.merge(top.summary, s)
			level++
			j = parent
		}
		if ld.Tracked(level+1, j>>1) {
			ld.MarkLeft(level+1, j>>1)
		}
		stack = append(stack, frame[S]{level: level, summary: s})
		if acct != nil {
			acct.Alloc("stack", e.cfg.SummaryCells)
		}
	}

	if err := ld.Complete(); err != nil {
		return zero, rerr.Violate(err)
	}

	// Right-spine finalization: remaining frames are the roots of complete
	// subtrees, leftmost (largest) at the bottom; fold them left to right.
	root := stack[0].summary
	for k := 1; k < len(stack); k++ {
		root = e.merge(root, stack[k].summary)
	}
	if acct != nil {
		acct.Free("stack", len(stack)*e.cfg.SummaryCells)
	}
	return root, nil
}

// BoundaryHash returns the digest recorded before block i in the last Run.
// Valid only when a HashFunc was supplied.
func (e *Evaluator[B, S]) BoundaryHash(i int) uint64 {
	return e.hashes[i]
}

// Replay re-derives boundaries from the initial state through block upto and
// compares each digest against the ones recorded by Run, surfacing
// BoundaryMismatch on divergence. It performs no merging.
func (e *Evaluator[B, S]) Replay(initial B, upto int) error {
	if e.hash == nil || e.hashes == nil {
		return fmt.Errorf("evaluator: replay requires boundary hashes from a prior run")
	}
	if upto < 0 || upto >= e.cfg.Blocks {
		return fmt.Errorf("evaluator: replay index %d out of range [0,%d)", upto, e.cfg.Blocks)
	}
	boundary := initial
	for i := 0; i <= upto; i++ {
		if got, want := e.hash(boundary), e.hashes[i]; got != want {
			return rerr.Violate(fmt.Errorf("%w: block %d boundary %016x, recorded %016x",
				rerr.ErrBoundaryMismatch, i, got, want))
		}
		next, _, err := e.block(boundary, i)
		if err != nil {
			return fmt.Errorf("replay block %d: %w", i, err)
		}
		boundary = next
	}
	return nil
}

func (e *Evaluator[B, S]) digest(b B) uint64 {
	if e.hash == nil {
		return 0
	}
	return e.hash(b)
}
