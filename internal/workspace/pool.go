// internal/workspace/pool.go
//
// One pre-sized buffer shared by every stage of an evaluation. Components
// own fixed, disjoint regions sized by the share table; a region is handed
// out as a slice and released on scope exit. The pool never grows after
// construction.
package workspace

import (
	"fmt"
	"math"
	"sort"

	"github.com/logannye/rosalind/internal/rerr"
	"github.com/logannye/rosalind/internal/space"
)

// Shares maps component name to its fraction of the pool. Fractions must sum
// to 1.0 (within rounding).
type Shares map[string]float64

// Validate checks the share table.
func (s Shares) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("workspace: empty share table")
	}
	sum := 0.0
	for name, frac := range s {
		if frac <= 0 {
			return fmt.Errorf("workspace: share %q must be positive, got %g", name, frac)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("workspace: shares sum to %g, want 1.0", sum)
	}
	return nil
}

// Capacity returns the pool capacity c·√n for a problem of n logical units.
func Capacity(n int, c float64) int {
	if n < 1 {
		n = 1
	}
	return int(math.Ceil(c * math.Sqrt(float64(n))))
}

type region struct {
	name   string
	off    int
	size   int
	active bool
}

// Pool is the single reusable buffer.
type Pool struct {
	buf     []byte
	regions map[string]*region
	acct    *space.Accountant
}

// New builds a pool of capacity bytes carved by shares. The accountant, when
// non-nil, observes every acquisition and release.
func New(capacity int, shares Shares, acct *space.Accountant) (*Pool, error) {
	if err := shares.Validate(); err != nil {
		return nil, err
	}
	if capacity < len(shares) {
		return nil, fmt.Errorf("workspace: capacity %d too small for %d components", capacity, len(shares))
	}

	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}
	sort.Strings(names)

	p := &Pool{
		buf:     make([]byte, capacity),
		regions: make(map[string]*region, len(shares)),
		acct:    acct,
	}
	off := 0
	for i, name := range names {
		size := int(shares[name] * float64(capacity))
		if i == len(names)-1 {
			size = capacity - off // remainder absorbs rounding
		}
		p.regions[name] = &region{name: name, off: off, size: size}
		off += size
	}
	return p, nil
}

// Capacity returns the total pool size in bytes.
func (p *Pool) Capacity() int { return len(p.buf) }

// RegionSize returns the byte capacity reserved for component.
func (p *Pool) RegionSize(component string) int {
	r, ok := p.regions[component]
	if !ok {
		return 0
	}
	return r.size
}

// Acquire hands out the first n bytes of component's region, zeroed. The
// returned release func gives the slice back; callers defer it so error
// paths release too. Acquiring a component twice without releasing is a
// programming error.
func (p *Pool) Acquire(component string, n int) ([]byte, func(), error) {
	r, ok := p.regions[component]
	if !ok {
		return nil, nil, fmt.Errorf("workspace: unknown component %q", component)
	}
	if r.active {
		err := fmt.Errorf("workspace: double acquisition of %q", component)
		if rerr.Debug {
			panic(err)
		}
		return nil, nil, err
	}
	if n > r.size {
		return nil, nil, fmt.Errorf("%w: component %q needs %d bytes, region holds %d",
			rerr.ErrWorkspaceExhausted, component, n, r.size)
	}
	r.active = true
	buf := p.buf[r.off : r.off+n]
	for i := range buf {
		buf[i] = 0
	}
	if p.acct != nil {
		p.acct.Alloc(component, n)
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		r.active = false
		if p.acct != nil {
			p.acct.Free(component, n)
		}
	}
	return buf, release, nil
}
