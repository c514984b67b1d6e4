package engine

import (
	"encoding/binary"
	"io"
	"sort"
)

// indexEntry is one (key, offset) pair in a SparseIndex, kept in a slice
// instead of a map so bracketing lookups can binary search it directly.
type indexEntry struct {
	key    string
	offset uint64
}

// SparseIndex is an ordered, strictly-ascending mapping from a subset of an
// SSTable's keys to their byte offsets in the data file. Every stride-th
// record (counting from zero) contributes an entry during flush/compaction.
type SparseIndex struct {
	entries []indexEntry
}

// NewSparseIndex returns an empty, growable index. Callers append in
// strictly ascending key order via Append.
func NewSparseIndex() *SparseIndex {
	return &SparseIndex{}
}

// Append adds the next (key, offset) pair. The caller is responsible for
// respecting ascending order; Append does not re-sort.
func (idx *SparseIndex) Append(key string, offset uint64) {
	idx.entries = append(idx.entries, indexEntry{key: key, offset: offset})
}

// Len reports how many entries the index holds.
func (idx *SparseIndex) Len() int { return len(idx.entries) }

// ScanRangeKind discriminates the four reachable outcomes of bounds().
type ScanRangeKind int

const (
	ScanExact ScanRangeKind = iota
	ScanRange
	ScanFromBegin
	ScanToEnd
)

// ScanRange is the byte-offset interval bounds() guarantees contains the
// queried key's record, if it exists in the table at all.
type ScanRange struct {
	Kind   ScanRangeKind
	Offset uint64 // valid when Kind == ScanExact
	Start  uint64 // valid when Kind == ScanRange or ScanToEnd
	End    uint64 // valid when Kind == ScanRange or ScanFromBegin
}

// Bounds computes the bracketing scan range for key against idx, per §4.2.
// idx must be nonempty; an empty index is an invariant violation the caller
// must have already rejected when the SSTable was built or loaded.
func (idx *SparseIndex) Bounds(key string) (ScanRange, error) {
	n := len(idx.entries)
	if n == 0 {
		return ScanRange{}, newErr("sparseindex.bounds", KindInvariantViolation, "", errEmptyIndexBounds)
	}

	// i is the first entry with key >= the query key (upper bound candidate).
	i := sort.Search(n, func(i int) bool { return idx.entries[i].key >= key })

	var lowerIdx, upperIdx int
	haveLower, haveUpper := false, false

	if i < n && idx.entries[i].key == key {
		// Exact hit: lower and upper coincide.
		lowerIdx, upperIdx = i, i
		haveLower, haveUpper = true, true
	} else {
		if i < n {
			upperIdx = i
			haveUpper = true
		}
		if i > 0 {
			lowerIdx = i - 1
			haveLower = true
		}
	}

	switch {
	case haveLower && haveUpper && lowerIdx == upperIdx:
		return ScanRange{Kind: ScanExact, Offset: idx.entries[lowerIdx].offset}, nil
	case haveLower && haveUpper:
		return ScanRange{Kind: ScanRange, Start: idx.entries[lowerIdx].offset, End: idx.entries[upperIdx].offset}, nil
	case haveUpper:
		return ScanRange{Kind: ScanFromBegin, End: idx.entries[upperIdx].offset}, nil
	case haveLower:
		return ScanRange{Kind: ScanToEnd, Start: idx.entries[lowerIdx].offset}, nil
	default:
		return ScanRange{}, newErr("sparseindex.bounds", KindInvariantViolation, "", errEmptyIndexBounds)
	}
}

// WriteTo encodes the index as a concatenation of
// [u16 key_len][key bytes][u64 offset] entries.
func (idx *SparseIndex) WriteTo(w io.Writer) error {
	for _, e := range idx.entries {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(e.key)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return newErr("sparseindex.write", KindIOError, "", err)
		}
		if _, err := io.WriteString(w, e.key); err != nil {
			return newErr("sparseindex.write", KindIOError, "", err)
		}
		var offBuf [8]byte
		binary.BigEndian.PutUint64(offBuf[:], e.offset)
		if _, err := w.Write(offBuf[:]); err != nil {
			return newErr("sparseindex.write", KindIOError, "", err)
		}
	}
	return nil
}

// ReadSparseIndex decodes an index previously written by WriteTo. A clean
// EOF at an entry boundary ends the loop; an EOF mid-entry, or an empty
// result, is KindCorruptIndex.
func ReadSparseIndex(r io.Reader) (*SparseIndex, error) {
	idx := NewSparseIndex()

	for {
		var lenBuf [2]byte
		n, err := io.ReadFull(r, lenBuf[:])
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil {
			return nil, newErr("sparseindex.read", KindCorruptIndex, "", err)
		}

		keyLen := binary.BigEndian.Uint16(lenBuf[:])
		keyBuf := getBuf(int(keyLen))
		if _, err := io.ReadFull(r, *keyBuf); err != nil {
			putBuf(keyBuf)
			return nil, newErr("sparseindex.read", KindCorruptIndex, "", err)
		}
		key := string(*keyBuf)
		putBuf(keyBuf)

		var offBuf [8]byte
		if _, err := io.ReadFull(r, offBuf[:]); err != nil {
			return nil, newErr("sparseindex.read", KindCorruptIndex, "", err)
		}

		idx.entries = append(idx.entries, indexEntry{key: key, offset: binary.BigEndian.Uint64(offBuf[:])})
	}

	if len(idx.entries) == 0 {
		return nil, newErr("sparseindex.read", KindCorruptIndex, "", errEmptyIndex)
	}

	return idx, nil
}
