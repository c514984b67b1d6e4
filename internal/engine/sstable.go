package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SSTable is an immutable on-disk segment: a data file of strictly
// ascending, duplicate-free records plus the sparse index over it.
type SSTable struct {
	DataPath  string // relative to the data directory
	IndexPath string
	Index     *SparseIndex
}

func loadSSTable(dataDir string, entry SSTableEntry) (*SSTable, error) {
	idxFullPath := filepath.Join(dataDir, entry.IndexPath)
	f, err := os.Open(idxFullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErr("sstable.load", KindNotFound, idxFullPath, err)
		}
		return nil, newErr("sstable.load", KindIOError, idxFullPath, err)
	}
	defer f.Close()

	idx, err := ReadSparseIndex(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	dataFullPath := filepath.Join(dataDir, entry.DataPath)
	if _, err := os.Stat(dataFullPath); err != nil {
		if os.IsNotExist(err) {
			return nil, newErr("sstable.load", KindNotFound, dataFullPath, err)
		}
		return nil, newErr("sstable.load", KindIOError, dataFullPath, err)
	}

	return &SSTable{DataPath: entry.DataPath, IndexPath: entry.IndexPath, Index: idx}, nil
}

// Lookup implements §4.3: bracket the key via the sparse index, then seek
// and scan the data file for it. It returns (slot, found, err); found is
// false when the key is absent from this table altogether. A tombstone hit
// is reported as found=true with Slot.Tombstone set — the caller decides
// whether that shadows lower tables.
func (t *SSTable) Lookup(dataDir, key string) (Slot, bool, error) {
	rng, err := t.Index.Bounds(key)
	if err != nil {
		return Slot{}, false, err
	}

	dataFullPath := filepath.Join(dataDir, t.DataPath)
	f, err := os.Open(dataFullPath)
	if err != nil {
		return Slot{}, false, newErr("sstable.lookup", KindIOError, dataFullPath, err)
	}
	defer f.Close()

	switch rng.Kind {
	case ScanExact:
		if _, err := f.Seek(int64(rng.Offset), io.SeekStart); err != nil {
			return Slot{}, false, newErr("sstable.lookup", KindIOError, dataFullPath, err)
		}
		rec, err := ReadRecord(bufio.NewReader(f))
		if err != nil {
			return Slot{}, false, err
		}
		if rec.Key != key {
			return Slot{}, false, newErr("sstable.lookup", KindCorruptTable, dataFullPath, errExactKeyMismatch)
		}
		return rec.Slot, true, nil

	case ScanRange:
		return scanDataFile(f, dataFullPath, key, rng.Start, hasEnd(rng.End))
	case ScanFromBegin:
		return scanDataFile(f, dataFullPath, key, 0, hasEnd(rng.End))
	case ScanToEnd:
		return scanDataFile(f, dataFullPath, key, rng.Start, noEnd())
	default:
		return Slot{}, false, newErr("sstable.lookup", KindInvariantViolation, dataFullPath, errEmptyIndexBounds)
	}
}

// endBound represents an optional upper offset bound for scanDataFile.
type endBound struct {
	has   bool
	value uint64
}

func hasEnd(v uint64) endBound { return endBound{has: true, value: v} }
func noEnd() endBound          { return endBound{has: false} }

// scanDataFile seeks to start and reads records forward, stopping on an
// exact key match, an overrun past key (ascending order means the key is
// absent), crossing end (when bounded), or EOF.
func scanDataFile(f *os.File, path, key string, start uint64, end endBound) (Slot, bool, error) {
	if _, err := f.Seek(int64(start), io.SeekStart); err != nil {
		return Slot{}, false, newErr("sstable.lookup", KindIOError, path, err)
	}

	br := bufio.NewReader(f)
	offset := start

	for {
		if end.has && offset > end.value {
			return Slot{}, false, nil
		}

		rec, err := ReadRecord(br)
		if err == io.EOF {
			return Slot{}, false, nil
		}
		if err != nil {
			return Slot{}, false, err
		}

		recLen := recordHeaderLen + len(rec.Key) + rec.Slot.payloadLen()
		offset += uint64(recLen)

		if rec.Key == key {
			return rec.Slot, true, nil
		}
		if rec.Key > key {
			return Slot{}, false, nil
		}
	}
}

// SSTableSet is the ordered live table list [T0 .. Tn-1], T0 newest, plus
// the monotonic sequence counter used to name new files.
type SSTableSet struct {
	dataDir      string
	tables       []*SSTable
	lastSequence uint64
}

// buildSSTableSet loads every table named in the manifest, preserving its
// order (manifest order is newest-first, matching the set's invariant).
func buildSSTableSet(dataDir string, m *Manifest) (*SSTableSet, error) {
	tables := make([]*SSTable, 0, len(m.SSTables))
	for _, entry := range m.SSTables {
		t, err := loadSSTable(dataDir, entry)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return &SSTableSet{dataDir: dataDir, tables: tables, lastSequence: m.LastSequence}, nil
}

// Get iterates the tables newest-first, returning the first table's verdict
// on key: a tombstone or value slot (found=true) shadows every older table.
func (s *SSTableSet) Get(key string) (Slot, bool, error) {
	for _, t := range s.tables {
		slot, found, err := t.Lookup(s.dataDir, key)
		if err != nil {
			return Slot{}, false, err
		}
		if found {
			return slot, true, nil
		}
	}
	return Slot{}, false, nil
}

// Tables returns the live set, newest first. Callers must not mutate it.
func (s *SSTableSet) Tables() []*SSTable { return s.tables }

// NextSequence returns the sequence number the next structural change
// (flush or compaction) should allocate.
func (s *SSTableSet) NextSequence() uint64 { return s.lastSequence + 1 }

// Prepend installs a newly flushed table as T0 and records its sequence as
// the set's new last_sequence.
func (s *SSTableSet) Prepend(t *SSTable, seq uint64) {
	s.tables = append([]*SSTable{t}, s.tables...)
	s.lastSequence = seq
}

// Replace swaps the entire live set for a single compacted table, per the
// compaction procedure in §4.5.
func (s *SSTableSet) Replace(t *SSTable, seq uint64) {
	s.tables = []*SSTable{t}
	s.lastSequence = seq
}

// ToManifest snapshots the current set as the document the manifest file
// should hold.
func (s *SSTableSet) ToManifest() *Manifest {
	entries := make([]SSTableEntry, len(s.tables))
	for i, t := range s.tables {
		entries[i] = SSTableEntry{DataPath: t.DataPath, IndexPath: t.IndexPath}
	}
	return &Manifest{Version: EngineVersion, LastSequence: s.lastSequence, SSTables: entries}
}

// sequenceFileNames formats the {seq:05d}.db / {seq:05d}.idx pair used to
// name every table produced by flush or compaction.
func sequenceFileNames(seq uint64) (dataName, indexName string) {
	return fmt.Sprintf("%05d.db", seq), fmt.Sprintf("%05d.idx", seq)
}
