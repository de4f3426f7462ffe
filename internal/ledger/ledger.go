// internal/ledger/ledger.go
//
// Progress ledger for the implicit merge tree: two bits per merge,
// {left-child-done, right-child-done}, set monotonically and never cleared
// during an evaluation. Merges are numbered level by level; only complete
// sibling pairs own a slot, the right-leaning spine is finalized outside the
// ledger.
package ledger

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/logannye/rosalind/internal/rerr"
)

// Ledger tracks merge completion for an evaluation over T blocks.
type Ledger struct {
	bits    *bitset.BitSet
	offsets []int // slot offset of each parent level (level 1 at offsets[0])
	counts  []int // merges at each parent level: floor(T / 2^level)
	blocks  int
	merges  int
}

// New creates a ledger for numBlocks leaf blocks.
func New(numBlocks int) *Ledger {
	if numBlocks < 1 {
		panic(fmt.Sprintf("ledger: invalid block count %d", numBlocks))
	}
	var (
		offsets []int
		counts  []int
		total   int
	)
	for n := numBlocks / 2; n > 0; n /= 2 {
		offsets = append(offsets, total)
		counts = append(counts, n)
		total += n
	}
	return &Ledger{
		bits:    bitset.New(uint(2 * total)),
		offsets: offsets,
		counts:  counts,
		blocks:  numBlocks,
		merges:  total,
	}
}

// Blocks returns the leaf block count T.
func (l *Ledger) Blocks() int { return l.blocks }

// Merges returns the number of ledger-tracked merges (≤ T-1).
func (l *Ledger) Merges() int { return l.merges }

// SizeBits returns the ledger size in bits (2 per merge).
func (l *Ledger) SizeBits() int { return 2 * l.merges }

// Tracked reports whether parent (level ≥ 1, index p at that level) owns a
// ledger slot, i.e. both of its children exist.
func (l *Ledger) Tracked(level, p int) bool {
	return level >= 1 && level <= len(l.counts) && p < l.counts[level-1]
}

func (l *Ledger) slot(level, p int) int {
	if !l.Tracked(level, p) {
		panic(fmt.Sprintf("ledger: no slot for level=%d parent=%d (T=%d)", level, p, l.blocks))
	}
	return l.offsets[level-1] + p
}

// MarkLeft records completion of the left child of parent (level, p).
func (l *Ledger) MarkLeft(level, p int) {
	l.bits.Set(uint(2 * l.slot(level, p)))
}

// MarkRight records completion of the right child of parent (level, p).
func (l *Ledger) MarkRight(level, p int) {
	l.bits.Set(uint(2*l.slot(level, p) + 1))
}

// LeftDone reports the left-child bit of parent (level, p).
func (l *Ledger) LeftDone(level, p int) bool {
	return l.bits.Test(uint(2 * l.slot(level, p)))
}

// RightDone reports the right-child bit of parent (level, p).
func (l *Ledger) RightDone(level, p int) bool {
	return l.bits.Test(uint(2*l.slot(level, p) + 1))
}

// CheckMerge verifies that parent (level, p) may merge: both child bits set.
func (l *Ledger) CheckMerge(level, p int) error {
	if !l.LeftDone(level, p) || !l.RightDone(level, p) {
		return fmt.Errorf("%w: merge at level %d parent %d with children left=%v right=%v",
			rerr.ErrLedgerCorruption, level, p, l.LeftDone(level, p), l.RightDone(level, p))
	}
	return nil
}

// Complete verifies every tracked merge saw both children.
func (l *Ledger) Complete() error {
	want := uint(2 * l.merges)
	if got := l.bits.Count(); got != want {
		return fmt.Errorf("%w: %d of %d ledger bits set after evaluation",
			rerr.ErrLedgerCorruption, got, want)
	}
	return nil
}
