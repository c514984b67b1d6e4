package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, pairs ...any) *SparseIndex {
	t.Helper()
	idx := NewSparseIndex()
	for i := 0; i+1 < len(pairs); i += 2 {
		idx.Append(pairs[i].(string), uint64(pairs[i+1].(int)))
	}
	return idx
}

func TestSparseIndexBoundsExactHit(t *testing.T) {
	idx := buildIndex(t, "a", 0, "c", 10)

	rng, err := idx.Bounds("a")
	require.NoError(t, err)
	assert.Equal(t, ScanExact, rng.Kind)
	assert.Equal(t, uint64(0), rng.Offset)

	rng, err = idx.Bounds("c")
	require.NoError(t, err)
	assert.Equal(t, ScanExact, rng.Kind)
	assert.Equal(t, uint64(10), rng.Offset)
}

func TestSparseIndexBoundsRangeBetweenEntries(t *testing.T) {
	idx := buildIndex(t, "a", 0, "c", 10)

	rng, err := idx.Bounds("b")
	require.NoError(t, err)
	assert.Equal(t, ScanRange, rng.Kind)
	assert.Equal(t, uint64(0), rng.Start)
	assert.Equal(t, uint64(10), rng.End)
}

func TestSparseIndexBoundsFromBeginBelowMin(t *testing.T) {
	idx := buildIndex(t, "a", 0, "c", 10)

	rng, err := idx.Bounds("!")
	require.NoError(t, err)
	assert.Equal(t, ScanFromBegin, rng.Kind)
	assert.Equal(t, uint64(0), rng.End)
}

func TestSparseIndexBoundsToEndAboveMax(t *testing.T) {
	idx := buildIndex(t, "a", 0, "c", 10)

	rng, err := idx.Bounds("z")
	require.NoError(t, err)
	assert.Equal(t, ScanToEnd, rng.Kind)
	assert.Equal(t, uint64(10), rng.Start)
}

func TestSparseIndexFiveKeyStrideTwoMatchesSpecExample(t *testing.T) {
	// keys a,b,c,d,e at offsets 0,1,2,3,4 with stride=2: indexed a(0), c(2), e(4).
	idx := buildIndex(t, "a", 0, "c", 2, "e", 4)

	cases := map[string]ScanRangeKind{
		"a": ScanExact,
		"c": ScanExact,
		"b": ScanRange,
		"!": ScanFromBegin,
		"z": ScanToEnd,
	}
	for key, want := range cases {
		rng, err := idx.Bounds(key)
		require.NoError(t, err)
		assert.Equalf(t, want, rng.Kind, "key %q", key)
	}
}

func TestSparseIndexBoundsOnEmptyIndexIsInvariantViolation(t *testing.T) {
	idx := NewSparseIndex()

	_, err := idx.Bounds("anything")
	require.Error(t, err)

	var engErr *Error
	require.True(t, asError(err, &engErr))
	assert.Equal(t, KindInvariantViolation, engErr.Kind)
}

func TestSparseIndexRoundTrip(t *testing.T) {
	idx := buildIndex(t, "alpha", 0, "beta", 100, "gamma", 250)

	var buf bytes.Buffer
	require.NoError(t, idx.WriteTo(&buf))

	got, err := ReadSparseIndex(&buf)
	require.NoError(t, err)
	assert.Equal(t, idx.entries, got.entries)
}

func TestReadSparseIndexRejectsEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	_, err := ReadSparseIndex(&buf)
	require.Error(t, err)

	var engErr *Error
	require.True(t, asError(err, &engErr))
	assert.Equal(t, KindCorruptIndex, engErr.Kind)
}

func TestReadSparseIndexRejectsTruncatedEntry(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 3}) // key_len=3 but nothing follows

	_, err := ReadSparseIndex(&buf)
	require.Error(t, err)
}
