package space

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/rerr"
)

func TestPeakTracksHighWaterMark(t *testing.T) {
	a := New()
	a.Alloc("boundary", 100)
	a.Alloc("stack", 50)
	assert.Equal(t, 150, a.Current())
	a.Free("stack", 50)
	a.Alloc("stack", 20)
	assert.Equal(t, 120, a.Current())
	assert.Equal(t, 150, a.Peak())
}

func TestBreakdownIsPerComponentPeak(t *testing.T) {
	a := New()
	a.Alloc("boundary", 10)
	a.Alloc("ledger", 4)
	a.Free("boundary", 10)
	a.Alloc("boundary", 6)

	rows := a.Breakdown()
	require.Len(t, rows, 2)
	assert.Equal(t, ComponentPeak{Component: "boundary", Cells: 10}, rows[0])
	assert.Equal(t, ComponentPeak{Component: "ledger", Cells: 4}, rows[1])
}

func TestEnvelopeBound(t *testing.T) {
	e := Envelope{Alpha: 2, Beta: 1, Gamma: 8}
	// B=100, T=100: 200 + 100 + 8*7 = 356
	assert.Equal(t, 356, e.Bound(100, 100))
	// T=1 has no log term.
	assert.Equal(t, 201, e.Bound(100, 1))
}

func TestCheckBound(t *testing.T) {
	a := New()
	a.Alloc("boundary", 300)
	e := Envelope{Alpha: 2, Beta: 1, Gamma: 8}
	assert.NoError(t, a.CheckBound(e, 100, 100))

	a.Alloc("stack", 100)
	err := a.CheckBound(e, 100, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrSpaceBoundExceeded))
}

func TestBadFreePanics(t *testing.T) {
	a := New()
	a.Alloc("x", 5)
	assert.Panics(t, func() { a.Free("x", 6) })
}
