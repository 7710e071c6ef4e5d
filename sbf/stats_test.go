package sbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 1e-9

func TestStats_EmptyFilter(t *testing.T) {
	f := newTestFilter(t, 10, 2, 3)

	assert.Equal(t, 1.0, f.Sparsity())
	assert.Equal(t, 0.0, f.Fpp())
	assert.Equal(t, 0.0, f.APrioriFpp())

	s := f.Stats()
	assert.Equal(t, 1.0, s.Safeness)
	require.Len(t, s.Areas, 3)

	for _, a := range s.Areas {
		assert.Equal(t, -1.0, a.Emersion, "area %d", a.Area)
		assert.Equal(t, -1.0, a.Isep, "area %d", a.Area)
		assert.Equal(t, 0.0, a.Fpp, "area %d", a.Area)
		assert.Equal(t, 0, a.Cells, "area %d", a.Area)
		assert.True(t, f.AreaFlotation(a.Area), "area %d", a.Area)
	}
}

func TestStats_TwoAreas(t *testing.T) {
	f := newTestFilter(t, 10, 1, 2)

	require.NoError(t, f.Insert([]byte{1}, 1))
	require.NoError(t, f.Insert([]byte{2}, 2))

	cells := 1024.0
	q := 1 - 1/cells

	assert.InDelta(t, 1-2/cells, f.Sparsity(), delta)
	assert.InDelta(t, 2/cells, f.Fpp(), delta)
	assert.InDelta(t, 1-q*q, f.APrioriFpp(), delta)

	s := f.Stats()
	require.Len(t, s.Areas, 2)
	a1, a2 := s.Areas[0], s.Areas[1]

	// The broadest area keeps its raw tail probability; the narrower one
	// has the broader mass subtracted.
	assert.InDelta(t, 1/cells, a2.Fpp, delta)
	assert.InDelta(t, 1/cells, a1.Fpp, delta)

	assert.InDelta(t, 1-q, a2.APrioriFpp, delta)
	assert.InDelta(t, q*(1-q), a1.APrioriFpp, delta)

	// No collisions happened, so both areas fully emerge.
	assert.InDelta(t, 1.0, a1.Emersion, delta)
	assert.InDelta(t, 1.0, a2.Emersion, delta)
	assert.InDelta(t, q, a1.ExpectedEmersion, delta)
	assert.InDelta(t, 1.0, a2.ExpectedEmersion, delta)
	assert.Equal(t, 0.0, a1.Isep)
	assert.Equal(t, 0.0, a2.Isep)

	assert.Equal(t, 1, a1.ExpectedCells)
	assert.Equal(t, 1, a2.ExpectedCells)

	// Area 2 has nothing above it; area 1 risks exactly one member of
	// area 2 over-filling each of its slots.
	assert.Equal(t, 0.0, a2.APrioriIsep)
	assert.Equal(t, 1.0, a2.APrioriSafep)
	assert.InDelta(t, 1/cells, a1.APrioriIsep, delta)
	assert.InDelta(t, 1/cells, a1.ExpectedIse, delta)
	assert.InDelta(t, q, a1.APrioriSafep, delta)
	assert.InDelta(t, q, s.Safeness, delta)
}

func TestStats_Idempotent(t *testing.T) {
	f := newTestFilter(t, 10, 1, 3)

	require.NoError(t, f.Insert([]byte{1}, 1))
	require.NoError(t, f.Insert([]byte{1, 1}, 2))
	require.NoError(t, f.Insert([]byte{2}, 3))

	first := f.Stats()
	second := f.Stats()

	assert.Equal(t, first, second)
}

func TestStats_Bounds(t *testing.T) {
	f, err := New(8, HashMurmur3, 4, 3, zeroSaltFile(t, 4))
	require.NoError(t, err)

	for area := 1; area <= 3; area++ {
		for i := 0; i < 40; i++ {
			elem := []byte{byte(area), byte(i), byte(i * 7)}
			require.NoError(t, f.Insert(elem, area))
		}
	}

	s := f.Stats()

	assert.GreaterOrEqual(t, s.Sparsity, 0.0)
	assert.LessOrEqual(t, s.Sparsity, 1.0)
	assert.GreaterOrEqual(t, s.Fpp, 0.0)
	assert.LessOrEqual(t, s.Fpp, 1.0)
	assert.GreaterOrEqual(t, s.APrioriFpp, 0.0)
	assert.LessOrEqual(t, s.APrioriFpp, 1.0)
	assert.GreaterOrEqual(t, s.Safeness, 0.0)
	assert.LessOrEqual(t, s.Safeness, 1.0)

	for _, a := range s.Areas {
		assert.GreaterOrEqual(t, a.Fpp, 0.0, "area %d", a.Area)
		assert.GreaterOrEqual(t, a.APrioriFpp, 0.0, "area %d", a.Area)
		assert.GreaterOrEqual(t, a.Emersion, 0.0, "area %d", a.Area)
		assert.LessOrEqual(t, a.Emersion, 1.0, "area %d", a.Area)
	}
}

func TestStats_SentinelOnMemberlessArea(t *testing.T) {
	f := newTestFilter(t, 10, 2, 5)

	require.NoError(t, f.Insert([]byte{1}, 2))

	assert.Equal(t, -1.0, f.AreaEmersion(4))
	assert.Equal(t, -1.0, f.AreaIsep(4))
	assert.True(t, f.AreaFlotation(4))
}
