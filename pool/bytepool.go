// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool hands out fixed-size byte slices backed by sync.Pool.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = 1
	}
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Size returns the length of the buffers handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer from the pool.
func (b *BytePool) GetBuffer() []byte {
	return *(b.p.Get().(*[]byte))
}

// PutBuffer returns a buffer to the pool. Foreign sizes are left to the GC.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	buf = buf[:b.size]
	b.p.Put(&buf)
}

var (
	poolsMu sync.Mutex
	pools   = make(map[int]*BytePool)
)

// ForSize returns the process-wide pool for size-byte buffers.
func ForSize(size int) *BytePool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	if bp, ok := pools[size]; ok {
		return bp
	}
	bp := NewBytePool(size)
	pools[size] = bp
	return bp
}
