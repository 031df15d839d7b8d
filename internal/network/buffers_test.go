package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBuffer_RespectsCapacity(t *testing.T) {
	w := NewWriteBuffer(8)

	assert.True(t, w.WriteInt32(7))
	assert.True(t, w.WriteUint16(3))
	assert.False(t, w.WriteInt32(1), "переполнение должно отклоняться")
	assert.Equal(t, 6, w.Len(), "при отказе ничего не дописывается")

	assert.False(t, w.WriteString("abc"), "2+3 байта не помещаются в оставшиеся 2")
	assert.Equal(t, 6, w.Len())
	assert.True(t, w.WriteUint16(9))
	assert.False(t, w.Fits(1))
}

func TestWriteBuffer_Unbounded(t *testing.T) {
	w := NewWriteBuffer(0)
	for i := 0; i < 10000; i++ {
		require.True(t, w.WriteInt32(int32(i)))
	}
	assert.Equal(t, 40000, w.Len())

	w.Reset()
	assert.Equal(t, 0, w.Len())
}

func TestBuffers_RoundTrip(t *testing.T) {
	w := NewWriteBuffer(0)
	require.True(t, w.WriteUint16(0xBEEF))
	require.True(t, w.WriteInt32(-42))
	require.True(t, w.WriteFloat32(3.5))
	require.True(t, w.WriteString("герой"))

	assert.Equal(t, []byte{0xBE, 0xEF}, w.Bytes()[:2], "big-endian")

	r := NewReadBuffer(w.Bytes())
	u, ok := r.ReadUint16()
	require.True(t, ok)
	assert.Equal(t, uint16(0xBEEF), u)

	i, ok := r.ReadInt32()
	require.True(t, ok)
	assert.Equal(t, int32(-42), i)

	f, ok := r.ReadFloat32()
	require.True(t, ok)
	assert.Equal(t, float32(3.5), f)

	s, ok := r.ReadString()
	require.True(t, ok)
	assert.Equal(t, "герой", s)
	assert.Equal(t, 0, r.Len())
}

func TestReadBuffer_StringCommitsOnlyWhenComplete(t *testing.T) {
	w := NewWriteBuffer(0)
	require.True(t, w.WriteString("hello"))
	data := w.Bytes()

	var r ReadBuffer
	r.Feed(data[:4])
	_, ok := r.ReadString()
	assert.False(t, ok)
	assert.Equal(t, 4, r.Len(), "неполная строка не потребляется")

	r.Feed(data[4:])
	s, ok := r.ReadString()
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	r.Compact()
	assert.Equal(t, 0, r.Len())
}

func TestReadBuffer_ShortReads(t *testing.T) {
	r := NewReadBuffer([]byte{1})
	_, ok := r.ReadUint16()
	assert.False(t, ok)
	_, ok = r.ReadInt32()
	assert.False(t, ok)
	_, ok = r.ReadFloat32()
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}
