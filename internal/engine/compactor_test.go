package engine

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactDropsTombstonesAndShadowedDuplicates(t *testing.T) {
	dir := t.TempDir()

	// T0 (newest): overwrites "a", deletes "b".
	t0 := writeTestTable(t, dir, 2, []Record{
		{Key: "a", Slot: ValueSlot(StrValue("new-a"))},
		{Key: "b", Slot: TombstoneSlot()},
	}, 1)
	// T1 (oldest): original values for a, b, c.
	t1 := writeTestTable(t, dir, 1, []Record{
		{Key: "a", Slot: ValueSlot(StrValue("old-a"))},
		{Key: "b", Slot: ValueSlot(StrValue("old-b"))},
		{Key: "c", Slot: ValueSlot(StrValue("old-c"))},
	}, 1)

	merged, err := compact(dir, []*SSTable{t0, t1}, 3, 1)
	require.NoError(t, err)

	slot, found, err := merged.Lookup(dir, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new-a", slot.Value.Str)

	_, found, err = merged.Lookup(dir, "b")
	require.NoError(t, err)
	assert.False(t, found, "tombstoned key must not survive compaction")

	slot, found, err = merged.Lookup(dir, "c")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "old-c", slot.Value.Str)
}

func TestCompactOutputIsStrictlyAscendingWithNoDuplicates(t *testing.T) {
	dir := t.TempDir()

	t0 := writeTestTable(t, dir, 2, []Record{
		{Key: "b", Slot: ValueSlot(StrValue("2-new"))},
		{Key: "d", Slot: ValueSlot(StrValue("4"))},
	}, 1)
	t1 := writeTestTable(t, dir, 1, []Record{
		{Key: "a", Slot: ValueSlot(StrValue("1"))},
		{Key: "b", Slot: ValueSlot(StrValue("2-old"))},
		{Key: "c", Slot: ValueSlot(StrValue("3"))},
	}, 1)

	merged, err := compact(dir, []*SSTable{t0, t1}, 3, 1)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, merged.DataPath))
	require.NoError(t, err)
	defer f.Close()
	br := bufio.NewReader(f)

	var keys []string
	for {
		rec, err := ReadRecord(br)
		if err != nil {
			break
		}
		keys = append(keys, rec.Key)
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	slot, found, err := merged.Lookup(dir, "b")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2-new", slot.Value.Str)
}

func TestCompactAllTombstonedInputYieldsEmptyLookupableTable(t *testing.T) {
	dir := t.TempDir()

	// Every live key across both tables ends up tombstoned: "a" is deleted
	// in the newer table, "b" only ever existed as a tombstone.
	t0 := writeTestTable(t, dir, 2, []Record{
		{Key: "a", Slot: TombstoneSlot()},
		{Key: "b", Slot: TombstoneSlot()},
	}, 1)
	t1 := writeTestTable(t, dir, 1, []Record{
		{Key: "a", Slot: ValueSlot(StrValue("old-a"))},
	}, 1)

	merged, err := compact(dir, []*SSTable{t0, t1}, 3, 1)
	require.NoError(t, err)

	require.NotNil(t, merged.Index)
	assert.Greater(t, merged.Index.Len(), 0, "compacted index must satisfy the nonempty-index invariant even with no surviving records")

	for _, key := range []string{"a", "b", "anything-else"} {
		_, found, err := merged.Lookup(dir, key)
		require.NoError(t, err)
		assert.False(t, found, "key %q must not be found in an all-tombstoned compaction output", key)
	}
}

func TestCompactorStartStopRunsOnTicker(t *testing.T) {
	calls := make(chan struct{}, 4)
	c := NewCompactor(1, func() error {
		select {
		case calls <- struct{}{}:
		default:
		}
		return nil
	}, nil)

	c.Start()
	<-calls
	c.Stop()
}
