package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ByteBuffer Tests
// =============================================================================

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)
	bb.B = append(bb.B, []byte("hello")...)

	got := bb.Bytes()

	assert.Equal(t, []byte("hello"), got)
	assert.True(t, &bb.B[0] == &got[0], "Bytes() should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)
	bb.B = append(bb.B, []byte("some data")...)
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, len(bb.B), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, cap(bb.B), "Reset should preserve capacity")
}

func TestByteBuffer_Len(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)

	assert.Equal(t, 0, bb.Len(), "empty buffer should have zero length")

	bb.B = append(bb.B, []byte("test")...)
	assert.Equal(t, 4, bb.Len(), "buffer length should match data")

	bb.B = append(bb.B, []byte(" data")...)
	assert.Equal(t, 9, bb.Len(), "buffer length should update after append")
}

func TestByteBuffer_Cap(t *testing.T) {
	bb := NewByteBuffer(64)
	assert.Equal(t, 64, bb.Cap())
}

func TestByteBuffer_MustWrite(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)

	bb.MustWrite([]byte("hello"))
	assert.Equal(t, []byte("hello"), bb.B)

	bb.MustWrite([]byte(" world"))
	assert.Equal(t, []byte("hello world"), bb.B)
}

func TestByteBuffer_MustWrite_EmptyData(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)

	bb.MustWrite([]byte{})
	assert.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte("data"))
	bb.MustWrite([]byte{})
	assert.Equal(t, []byte("data"), bb.B)
}

func TestByteBuffer_Grow_WithinCapacity(t *testing.T) {
	bb := NewByteBuffer(16)
	originalCap := cap(bb.B)

	bb.Grow(4)

	assert.Equal(t, originalCap, cap(bb.B), "Grow should be a no-op when capacity already suffices")
}

func TestByteBuffer_Grow_BeyondCapacity(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.B = append(bb.B, []byte("abcd")...)

	bb.Grow(100)

	assert.GreaterOrEqual(t, cap(bb.B), 104)
	assert.Equal(t, []byte("abcd"), bb.B, "existing data must survive a grow")
}

func TestByteBuffer_Grow_LargeBufferGrowthRatio(t *testing.T) {
	bb := NewByteBuffer(4 * FieldBufferDefaultSize * 2)
	before := cap(bb.B)

	bb.Grow(before + 1)

	assert.Greater(t, cap(bb.B), before)
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)

	n, err := bb.Write([]byte("payload"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("payload"), bb.B)
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(FieldBufferDefaultSize)
	bb.MustWrite([]byte("record bytes"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)

	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "record bytes", out.String())
}

// =============================================================================
// ByteBufferPool Tests
// =============================================================================

func TestByteBufferPool_GetPut(t *testing.T) {
	pool := NewByteBufferPool(FieldBufferDefaultSize, FieldBufferMaxThreshold)

	bb := pool.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("reuse me"))

	pool.Put(bb)

	again := pool.Get()
	require.NotNil(t, again)
	assert.Equal(t, 0, again.Len(), "buffer returned to the pool must be reset before reuse")
}

func TestByteBufferPool_Put_NilIsNoop(t *testing.T) {
	pool := NewByteBufferPool(FieldBufferDefaultSize, FieldBufferMaxThreshold)
	assert.NotPanics(t, func() { pool.Put(nil) })
}

func TestByteBufferPool_Put_DropsOversizedBuffers(t *testing.T) {
	pool := NewByteBufferPool(16, 32)

	bb := NewByteBuffer(16)
	bb.Grow(64) // exceeds the 32-byte threshold

	pool.Put(bb)

	// The oversized buffer must not come back out; Get() should hand out a
	// fresh, small buffer from pool.New instead.
	got := pool.Get()
	assert.LessOrEqual(t, got.Cap(), 16)
}

func TestByteBufferPool_ConcurrentUse(t *testing.T) {
	pool := NewByteBufferPool(FieldBufferDefaultSize, FieldBufferMaxThreshold)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bb := pool.Get()
			bb.MustWrite([]byte("concurrent"))
			pool.Put(bb)
		}()
	}
	wg.Wait()
}

// =============================================================================
// Package-level default pool accessors
// =============================================================================

func TestGetPutFieldBuffer(t *testing.T) {
	bb := GetFieldBuffer()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("field"))
	PutFieldBuffer(bb)

	again := GetFieldBuffer()
	assert.Equal(t, 0, again.Len())
	PutFieldBuffer(again)
}

func TestGetPutBlockBuffer(t *testing.T) {
	bb := GetBlockBuffer()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("block"))
	PutBlockBuffer(bb)

	again := GetBlockBuffer()
	assert.Equal(t, 0, again.Len())
	PutBlockBuffer(again)
}
