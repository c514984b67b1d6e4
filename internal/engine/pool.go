package engine

import "sync"

// bufferPool hands out reusable byte slices so the record codec and the
// SSTable scan path don't allocate a fresh buffer for every key/value they
// decode off disk.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

func (bp *bufferPool) get(n int) *[]byte {
	if n > bp.size {
		buf := make([]byte, n)
		return &buf
	}
	buf := bp.pool.Get().(*[]byte)
	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[:n]
	}
	return buf
}

func (bp *bufferPool) put(buf *[]byte) {
	if cap(*buf) != bp.size {
		return
	}
	bp.pool.Put(buf)
}

// Global buffer pools for the record sizes records actually take: keys and
// values are capped at 65535 bytes by the wire format (§4.1), but most real
// workloads land well under 4KB.
var (
	smallBufferPool  = newBufferPool(4096)
	mediumBufferPool = newBufferPool(65536)
)

func getBuf(n int) *[]byte {
	if n <= 4096 {
		return smallBufferPool.get(n)
	}
	return mediumBufferPool.get(n)
}

func putBuf(buf *[]byte) {
	switch cap(*buf) {
	case 4096:
		smallBufferPool.put(buf)
	case 65536:
		mediumBufferPool.put(buf)
	}
}
