package engine

import (
	"bufio"
	"container/heap"
	"io"
	"os"
	"path/filepath"
	"time"
)

// mergeEntry is one table's current head record, tracked in the compaction
// heap. priority is the owning table's index in the live set — lower means
// newer, and newer wins when two tables hold the same key.
type mergeEntry struct {
	key      string
	slot     Slot
	priority int
	srcIdx   int
}

// mergeHeap orders entries by key ascending, then by priority ascending so
// that of several entries sharing a key, the newest surfaces first.
type mergeHeap []*mergeEntry

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].priority < h[j].priority
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(*mergeEntry)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// tableCursor streams one input table's records in ascending key order.
type tableCursor struct {
	file *os.File
	br   *bufio.Reader
}

func openCursor(dataDir string, t *SSTable) (*tableCursor, error) {
	path := filepath.Join(dataDir, t.DataPath)
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr("compact.open", KindIOError, path, err)
	}
	return &tableCursor{file: f, br: bufio.NewReader(f)}, nil
}

func (c *tableCursor) next() (Record, bool, error) {
	rec, err := ReadRecord(c.br)
	if err == io.EOF {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (c *tableCursor) close() { c.file.Close() }

// compact performs the full k-way streaming merge of §4.6: every live table
// is read once, strictly in key order, via a min-heap keyed on (key,
// priority). Tombstones and shadowed duplicates are dropped; what survives
// is written as a single new SSTable with a fresh sparse index built at the
// given stride. The manifest is not touched here — the caller installs the
// result into the live set and persists it.
func compact(dataDir string, tables []*SSTable, seq uint64, stride int) (*SSTable, error) {
	cursors := make([]*tableCursor, len(tables))
	for i, t := range tables {
		c, err := openCursor(dataDir, t)
		if err != nil {
			for _, prev := range cursors[:i] {
				prev.close()
			}
			return nil, err
		}
		cursors[i] = c
	}
	defer func() {
		for _, c := range cursors {
			c.close()
		}
	}()

	h := &mergeHeap{}
	heap.Init(h)
	for i, c := range cursors {
		rec, ok, err := c.next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, &mergeEntry{key: rec.Key, slot: rec.Slot, priority: i, srcIdx: i})
		}
	}

	dataName, indexName := sequenceFileNames(seq)
	dataPath := filepath.Join(dataDir, dataName)
	indexPath := filepath.Join(dataDir, indexName)

	dataTmp, err := os.CreateTemp(dataDir, dataName+".tmp.*")
	if err != nil {
		return nil, newErr("compact.write", KindIOError, dataPath, err)
	}
	defer os.Remove(dataTmp.Name())
	bw := bufio.NewWriter(dataTmp)

	idx := NewSparseIndex()
	var offset uint64
	var written int
	var lastKey string
	haveLast := false

	for h.Len() > 0 {
		entry := heap.Pop(h).(*mergeEntry)

		next, ok, err := cursors[entry.srcIdx].next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, &mergeEntry{key: next.Key, slot: next.Slot, priority: entry.srcIdx, srcIdx: entry.srcIdx})
		}

		if haveLast && entry.key == lastKey {
			continue // shadowed by a newer table's entry for the same key
		}
		lastKey, haveLast = entry.key, true

		if entry.slot.Tombstone {
			continue // compaction is a full merge: tombstones never survive it
		}

		rec := Record{Key: entry.key, Slot: entry.slot}
		n, err := rec.WriteTo(bw)
		if err != nil {
			return nil, err
		}
		if written%stride == 0 {
			idx.Append(entry.key, offset)
		}
		offset += uint64(n)
		written++
	}

	if err := bw.Flush(); err != nil {
		return nil, newErr("compact.write", KindIOError, dataPath, err)
	}
	if err := dataTmp.Sync(); err != nil {
		return nil, newErr("compact.write", KindIOError, dataPath, err)
	}
	if err := dataTmp.Close(); err != nil {
		return nil, newErr("compact.write", KindIOError, dataPath, err)
	}

	if written == 0 {
		// Every input key was tombstoned: degrade to a single self-referential
		// entry so the sparse index is never empty (ReadSparseIndex rejects an
		// empty index when the table is loaded again).
		idx.Append("", 0)
	}

	indexTmp, err := os.CreateTemp(dataDir, indexName+".tmp.*")
	if err != nil {
		return nil, newErr("compact.write", KindIOError, indexPath, err)
	}
	defer os.Remove(indexTmp.Name())
	if err := idx.WriteTo(indexTmp); err != nil {
		return nil, err
	}
	if err := indexTmp.Sync(); err != nil {
		return nil, newErr("compact.write", KindIOError, indexPath, err)
	}
	if err := indexTmp.Close(); err != nil {
		return nil, newErr("compact.write", KindIOError, indexPath, err)
	}

	if err := os.Rename(dataTmp.Name(), dataPath); err != nil {
		return nil, newErr("compact.write", KindIOError, dataPath, err)
	}
	if err := os.Rename(indexTmp.Name(), indexPath); err != nil {
		return nil, newErr("compact.write", KindIOError, indexPath, err)
	}

	return &SSTable{DataPath: dataName, IndexPath: indexName, Index: idx}, nil
}

// removeTableFiles deletes an old table's data and index files. Called only
// after the manifest has been rewritten to no longer reference them — the
// manifest, not the filesystem, is the source of truth for what is live.
func removeTableFiles(dataDir string, t *SSTable) {
	os.Remove(filepath.Join(dataDir, t.DataPath))
	os.Remove(filepath.Join(dataDir, t.IndexPath))
}

// Compactor drives full compaction on a fixed interval in the background,
// from a ticker goroutine that is shut down through a stop channel. A manual compact request (e.g. from the wire
// protocol) calls runFn directly and does not need this type at all; it
// exists for operators who'd rather not issue the command themselves.
type Compactor struct {
	interval time.Duration
	runFn    func() error
	onError  func(error)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCompactor builds a background compactor that invokes runFn every
// interval. onError, if non-nil, receives any error runFn returns; a nil
// onError silently drops them, matching a best-effort background task.
func NewCompactor(interval time.Duration, runFn func() error, onError func(error)) *Compactor {
	return &Compactor{interval: interval, runFn: runFn, onError: onError}
}

// Start begins the ticker loop. Calling Start twice without an intervening
// Stop is a programmer error.
func (c *Compactor) Start() {
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.runFn(); err != nil && c.onError != nil {
					c.onError(err)
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to finish. Safe to call on
// a Compactor that was never started.
func (c *Compactor) Stop() {
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
}
