// internal/space/accountant.go
//
// Logical-cell accounting for one evaluation. The accountant covers the
// dynamic working set only: rolling boundary, merge-stack summaries, ledger,
// active workspace slices. The FM-index and reference are inputs and the
// output buffers are bounded separately, so neither is counted.
package space

import (
	"fmt"
	"math"
	"sort"

	"github.com/logannye/rosalind/internal/rerr"
)

// Accountant tracks logical cells. Single-writer: it belongs to exactly one
// evaluation and needs no locking.
type Accountant struct {
	current int
	peak    int
	byComp  map[string]int
	peakBy  map[string]int
}

// New returns an empty accountant.
func New() *Accountant {
	return &Accountant{
		byComp: make(map[string]int),
		peakBy: make(map[string]int),
	}
}

// Alloc records cells acquired by component.
func (a *Accountant) Alloc(component string, cells int) {
	if cells < 0 {
		panic(fmt.Sprintf("space: negative alloc %d for %s", cells, component))
	}
	a.current += cells
	a.byComp[component] += cells
	if a.current > a.peak {
		a.peak = a.current
	}
	if a.byComp[component] > a.peakBy[component] {
		a.peakBy[component] = a.byComp[component]
	}
}

// Free records cells released by component.
func (a *Accountant) Free(component string, cells int) {
	if cells < 0 || cells > a.byComp[component] {
		panic(fmt.Sprintf("space: bad free %d for %s (held %d)", cells, component, a.byComp[component]))
	}
	a.current -= cells
	a.byComp[component] -= cells
}

// Current returns the live cell count.
func (a *Accountant) Current() int { return a.current }

// Peak returns the maximum live cell count observed.
func (a *Accountant) Peak() int { return a.peak }

// Breakdown returns the peak cells per component, keys sorted for
// deterministic reporting.
func (a *Accountant) Breakdown() []ComponentPeak {
	out := make([]ComponentPeak, 0, len(a.peakBy))
	for name, cells := range a.peakBy {
		out = append(out, ComponentPeak{Component: name, Cells: cells})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// ComponentPeak is one row of Breakdown.
type ComponentPeak struct {
	Component string
	Cells     int
}

// Envelope is the declared space bound α·B + β·T + γ·⌈log₂T⌉. The constants
// are harness-declared, not derived.
type Envelope struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// Bound evaluates the envelope for block size B and block count T.
func (e Envelope) Bound(blockSize, numBlocks int) int {
	logT := 0.0
	if numBlocks > 1 {
		logT = math.Ceil(math.Log2(float64(numBlocks)))
	}
	return int(e.Alpha*float64(blockSize) + e.Beta*float64(numBlocks) + e.Gamma*logT)
}

// CheckBound verifies peak ≤ envelope, returning SpaceBoundExceeded with the
// numbers a regression test wants to see.
func (a *Accountant) CheckBound(e Envelope, blockSize, numBlocks int) error {
	bound := e.Bound(blockSize, numBlocks)
	if a.peak > bound {
		return rerr.Violate(fmt.Errorf("%w: peak %d cells > envelope %d (B=%d T=%d)",
			rerr.ErrSpaceBoundExceeded, a.peak, bound, blockSize, numBlocks))
	}
	return nil
}
