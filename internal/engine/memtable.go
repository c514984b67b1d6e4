package engine

import "sort"

// MemTable is the in-memory write buffer: a lexicographically ordered
// mapping from key to slot. At most one slot exists per key; a Put replaces
// any prior slot in place. Concurrency is the Controller's responsibility
// (§5) — MemTable itself assumes single-writer access.
type MemTable struct {
	keys  []string // sorted ascending, kept in sync with slots
	slots map[string]Slot
	size  int64 // Σ(key.len + slot payload len)
}

// NewMemTable returns an empty memtable.
func NewMemTable() *MemTable {
	return &MemTable{slots: make(map[string]Slot)}
}

// Get returns the slot stored for key, if any.
func (m *MemTable) Get(key string) (Slot, bool) {
	s, ok := m.slots[key]
	return s, ok
}

// Put inserts or replaces the slot for key, maintaining ascending key order
// and the running byte-size total.
func (m *MemTable) Put(key string, slot Slot) {
	if old, exists := m.slots[key]; exists {
		m.size -= int64(len(key)) + int64(old.payloadLen())
		m.slots[key] = slot
		m.size += int64(len(key)) + int64(slot.payloadLen())
		return
	}

	m.slots[key] = slot
	m.size += int64(len(key)) + int64(slot.payloadLen())

	i := sort.SearchStrings(m.keys, key)
	m.keys = append(m.keys, "")
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = key
}

// Len reports the number of distinct keys currently buffered.
func (m *MemTable) Len() int { return len(m.keys) }

// Size reports the current byte-size accounting total.
func (m *MemTable) Size() int64 { return m.size }

// IsEmpty reports whether the memtable holds no entries at all.
func (m *MemTable) IsEmpty() bool { return len(m.keys) == 0 }

// recordWriter is the subset of io.Writer record.WriteTo needs; kept as its
// own name so DrainTo's signature reads clearly at call sites.
type recordWriter interface {
	Write(p []byte) (int, error)
}

// DrainTo consumes the memtable's entries in ascending key order, writing
// each as a record to w and building a sparse index with the given stride
// (every stride-th record, counting from zero, is indexed; stride must be
// >= 1). The memtable is empty afterward.
func (m *MemTable) DrainTo(w recordWriter, stride int) (*SparseIndex, error) {
	idx := NewSparseIndex()
	var offset uint64

	for i, key := range m.keys {
		rec := Record{Key: key, Slot: m.slots[key]}
		n, err := rec.WriteTo(w)
		if err != nil {
			return nil, err
		}
		if i%stride == 0 {
			idx.Append(key, offset)
		}
		offset += uint64(n)
	}

	m.keys = nil
	m.slots = make(map[string]Slot)
	m.size = 0

	return idx, nil
}
