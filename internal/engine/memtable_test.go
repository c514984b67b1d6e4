package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTablePutGet(t *testing.T) {
	m := NewMemTable()
	m.Put("b", ValueSlot(StrValue("2")))
	m.Put("a", ValueSlot(StrValue("1")))

	slot, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", slot.Value.Str)
	assert.Equal(t, []string{"a", "b"}, m.keys)
}

func TestMemTablePutReplacesExistingKeyInPlace(t *testing.T) {
	m := NewMemTable()
	m.Put("a", ValueSlot(StrValue("old")))
	m.Put("a", ValueSlot(StrValue("newer")))

	assert.Equal(t, 1, m.Len())
	slot, _ := m.Get("a")
	assert.Equal(t, "newer", slot.Value.Str)
}

func TestMemTableSizeAccounting(t *testing.T) {
	m := NewMemTable()
	m.Put("ab", ValueSlot(StrValue("xyz"))) // 2 + 3
	assert.Equal(t, int64(5), m.Size())

	m.Put("ab", ValueSlot(StrValue("xy"))) // 2 + 2
	assert.Equal(t, int64(4), m.Size())

	m.Put("ab", TombstoneSlot()) // 2 + 0
	assert.Equal(t, int64(2), m.Size())
}

func TestMemTableDrainToOrdersByKeyAndBuildsIndexAtStride(t *testing.T) {
	m := NewMemTable()
	for _, k := range []string{"c", "a", "b"} {
		m.Put(k, ValueSlot(StrValue(k)))
	}

	var buf bytes.Buffer
	idx, err := m.DrainTo(&buf, 2)
	require.NoError(t, err)

	assert.True(t, m.IsEmpty())
	assert.Equal(t, int64(0), m.Size())

	recA, err := ReadRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, "a", recA.Key)
	recB, err := ReadRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, "b", recB.Key)
	recC, err := ReadRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, "c", recC.Key)

	assert.Equal(t, 2, idx.Len()) // indices 0 and 2 of a three-record stream
}
