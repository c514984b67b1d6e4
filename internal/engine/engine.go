package engine

import (
	"bufio"
	"os"
	"path/filepath"
)

// Config parameterizes a single Engine instance.
type Config struct {
	DataDir          string
	SparseStride     int   // index every Nth record during flush/compact
	MemtableCapacity int64 // bytes; Set/Delete trigger a flush once exceeded
	CreateIfMissing  bool  // synthesize an empty manifest if none exists yet
}

// Engine is the single-node storage engine of §4.5: a memtable in front of
// an immutable, manifest-tracked SSTable set. It assumes single-writer
// access — Controller (§4.8) is what makes that assumption safe for
// concurrent callers.
type Engine struct {
	config Config
	mem    *MemTable
	tables *SSTableSet
}

// Open loads (or, when CreateIfMissing, initializes) the engine rooted at
// cfg.DataDir: the manifest, then every SSTable it names.
func Open(cfg Config) (*Engine, error) {
	if cfg.SparseStride < 1 {
		cfg.SparseStride = 1
	}

	m, err := loadManifest(cfg.DataDir, cfg.CreateIfMissing)
	if err != nil {
		return nil, err
	}

	set, err := buildSSTableSet(cfg.DataDir, m)
	if err != nil {
		return nil, err
	}

	if m.LastSequence == 0 && len(m.SSTables) == 0 {
		if err := m.store(cfg.DataDir); err != nil {
			return nil, err
		}
	}

	return &Engine{config: cfg, mem: NewMemTable(), tables: set}, nil
}

// Get resolves key against the memtable first, then the SSTable set
// newest-to-oldest, per §4.5's read path. A tombstone anywhere in that
// search order shadows every older occurrence and is reported as "absent".
func (e *Engine) Get(key string) (Value, bool, error) {
	if slot, ok := e.mem.Get(key); ok {
		if slot.Tombstone {
			return Value{}, false, nil
		}
		return slot.Value, true, nil
	}

	slot, found, err := e.tables.Get(key)
	if err != nil {
		return Value{}, false, err
	}
	if !found || slot.Tombstone {
		return Value{}, false, nil
	}
	return slot.Value, true, nil
}

// Set installs a live value for key, replacing whatever was there. It
// reports whether the memtable has since crossed MemtableCapacity, so a
// caller (the Controller) can decide to flush.
func (e *Engine) Set(key string, v Value) (overCapacity bool) {
	e.mem.Put(key, ValueSlot(v))
	return e.mem.Size() > e.config.MemtableCapacity
}

// Delete installs a tombstone for key. A key absent everywhere still
// accepts a tombstone: the memtable has no way to know whether an older
// SSTable holds a value it must shadow.
func (e *Engine) Delete(key string) (overCapacity bool) {
	e.mem.Put(key, TombstoneSlot())
	return e.mem.Size() > e.config.MemtableCapacity
}

// MemtableSize reports the memtable's current byte-size accounting total.
func (e *Engine) MemtableSize() int64 { return e.mem.Size() }

// TableCount reports how many SSTables are currently live.
func (e *Engine) TableCount() int { return len(e.tables.Tables()) }

// Flush drains the memtable to a new SSTable, prepends it to the live set
// as T0, and rewrites the manifest. A no-op when the memtable is empty. On
// error the memtable keeps the entries it held before the flush.
func (e *Engine) Flush() (err error) {
	if e.mem.IsEmpty() {
		return nil
	}

	saved := *e.mem
	defer func() {
		if err != nil {
			*e.mem = saved
		}
	}()

	seq := e.tables.NextSequence()
	dataName, indexName := sequenceFileNames(seq)
	dataPath := filepath.Join(e.config.DataDir, dataName)
	indexPath := filepath.Join(e.config.DataDir, indexName)

	dataTmp, err := os.CreateTemp(e.config.DataDir, dataName+".tmp.*")
	if err != nil {
		return newErr("engine.flush", KindIOError, dataPath, err)
	}
	defer os.Remove(dataTmp.Name())
	bw := bufio.NewWriter(dataTmp)

	idx, err := e.mem.DrainTo(bw, e.config.SparseStride)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return newErr("engine.flush", KindIOError, dataPath, err)
	}
	if err := dataTmp.Sync(); err != nil {
		return newErr("engine.flush", KindIOError, dataPath, err)
	}
	if err := dataTmp.Close(); err != nil {
		return newErr("engine.flush", KindIOError, dataPath, err)
	}

	indexTmp, err := os.CreateTemp(e.config.DataDir, indexName+".tmp.*")
	if err != nil {
		return newErr("engine.flush", KindIOError, indexPath, err)
	}
	defer os.Remove(indexTmp.Name())
	if err := idx.WriteTo(indexTmp); err != nil {
		return err
	}
	if err := indexTmp.Sync(); err != nil {
		return newErr("engine.flush", KindIOError, indexPath, err)
	}
	if err := indexTmp.Close(); err != nil {
		return newErr("engine.flush", KindIOError, indexPath, err)
	}

	if err := os.Rename(dataTmp.Name(), dataPath); err != nil {
		return newErr("engine.flush", KindIOError, dataPath, err)
	}
	if err := os.Rename(indexTmp.Name(), indexPath); err != nil {
		return newErr("engine.flush", KindIOError, indexPath, err)
	}

	e.tables.Prepend(&SSTable{DataPath: dataName, IndexPath: indexName, Index: idx}, seq)
	return e.tables.ToManifest().store(e.config.DataDir)
}

// Compact performs the full k-way merge of §4.6 across every live table,
// replacing the set with a single compacted table and rewriting the
// manifest. A no-op when there are fewer than two tables to merge.
func (e *Engine) Compact() error {
	tables := e.tables.Tables()
	if len(tables) < 2 {
		return nil
	}

	seq := e.tables.NextSequence()
	merged, err := compact(e.config.DataDir, tables, seq, e.config.SparseStride)
	if err != nil {
		return err
	}

	e.tables.Replace(merged, seq)
	if err := e.tables.ToManifest().store(e.config.DataDir); err != nil {
		return err
	}

	for _, t := range tables {
		removeTableFiles(e.config.DataDir, t)
	}
	return nil
}
